// Package engine applies a resource graph through a Provider, the way a
// deployment engine would: it plans against recorded state, creates independent
// resources in parallel, resolves deferred values as their producers finish,
// and persists what it created.
//
// A failed call halts the run. Resources created before the failure stay in
// state; nothing is rolled back and nothing is retried.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lex00/wetwire-aurora-go/stack"
)

// DefaultParallelism bounds concurrent provider calls.
const DefaultParallelism = 4

// Engine runs plans against a provider.
type Engine struct {
	provider    Provider
	logger      *zap.Logger
	parallelism int
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithParallelism bounds concurrent provider calls.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// New creates an engine for p.
func New(p Provider, opts ...Option) *Engine {
	e := &Engine{
		provider:    p,
		logger:      zap.NewNop(),
		parallelism: DefaultParallelism,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result summarizes an apply.
type Result struct {
	RunID   string
	Plan    *Plan
	Outputs map[string]any
}

// Apply brings st in line with s. st is updated as each call succeeds, so
// after a failure it still records everything that was created.
func (e *Engine) Apply(ctx context.Context, s *stack.Stack, st *State) (*Result, error) {
	plan, err := Preview(s, st)
	if err != nil {
		return nil, err
	}

	runID := ulid.Make().String()
	log := e.logger.With(zap.String("stack", s.Name()), zap.String("run_id", runID))
	counts := plan.Counts()
	log.Info("apply started",
		zap.Int("create", counts[OpCreate]),
		zap.Int("update", counts[OpUpdate]),
		zap.Int("replace", counts[OpReplace]),
		zap.Int("delete", counts[OpDelete]),
		zap.Int("same", counts[OpSame]))

	st.RunID = runID
	// Replaced resources and everything built on them are torn down before
	// anything is created, so the recreate runs in dependency order.
	for _, name := range plan.replaced(st) {
		if err := e.destroyOne(ctx, st, name, log); err != nil {
			st.UpdatedAt = e.now()
			return &Result{RunID: runID, Plan: plan}, err
		}
	}
	if err := e.applyNodes(ctx, s, st, log); err != nil {
		st.UpdatedAt = e.now()
		return &Result{RunID: runID, Plan: plan}, err
	}

	for _, name := range removed(s, st) {
		if err := e.destroyOne(ctx, st, name, log); err != nil {
			st.UpdatedAt = e.now()
			return &Result{RunID: runID, Plan: plan}, err
		}
	}

	outputs := make(map[string]any)
	for _, o := range s.Outputs() {
		v, err := o.Value.Resolve(st)
		if err != nil {
			return &Result{RunID: runID, Plan: plan}, fmt.Errorf("output %s: %w", o.Name, err)
		}
		outputs[o.Name] = v
	}
	st.Outputs = outputs
	st.UpdatedAt = e.now()

	log.Info("apply finished", zap.Int("resources", len(st.Resources)))
	return &Result{RunID: runID, Plan: plan, Outputs: outputs}, nil
}

// applyNodes runs every node once its dependencies are done. Independent
// nodes run in parallel, bounded by the engine's parallelism.
func (e *Engine) applyNodes(ctx context.Context, s *stack.Stack, st *State, log *zap.Logger) error {
	var mu sync.Mutex
	done := make(map[string]chan struct{}, s.Len())
	for _, node := range s.Resources() {
		done[node.Name] = make(chan struct{})
	}
	sem := make(chan struct{}, e.parallelism)

	g, ctx := errgroup.WithContext(ctx)
	for _, node := range s.Resources() {
		g.Go(func() error {
			for _, dep := range node.Dependencies() {
				select {
				case <-done[dep]:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := e.applyNode(ctx, node, st, &mu, log); err != nil {
				return err
			}
			close(done[node.Name])
			return nil
		})
	}

	return g.Wait()
}

// applyNode creates, updates or replaces one node.
func (e *Engine) applyNode(ctx context.Context, node *stack.Node, st *State, mu *sync.Mutex, log *zap.Logger) error {
	mu.Lock()
	in, err := inputs(node, st)
	var props map[string]any
	if err == nil {
		props, err = request(node, st)
	}
	prior := st.Resources[node.Name]
	mu.Unlock()
	if err != nil {
		return &ResourceError{Resource: node.Name, Op: OpCreate, Err: err}
	}

	step := diffStep(node, in, prior)
	log = log.With(zap.String("resource", node.Name), zap.String("kind", node.Type()), zap.String("op", string(step.Op)))
	if step.Op == OpSame {
		log.Debug("unchanged")
		return nil
	}

	if step.Op == OpReplace {
		if err := e.provider.Delete(ctx, *prior); err != nil {
			log.Error("delete failed", zap.Error(err))
			return &ResourceError{Resource: node.Name, Op: OpReplace, Err: err}
		}
		mu.Lock()
		delete(st.Resources, node.Name)
		mu.Unlock()
		prior = nil
	}

	req := Request{Name: node.Name, Type: node.Type(), Properties: props, Prior: prior}
	var resp Response
	if step.Op == OpUpdate {
		resp, err = e.provider.Update(ctx, req)
	} else {
		resp, err = e.provider.Create(ctx, req)
	}
	if err != nil {
		log.Error("provider call failed", zap.Error(err))
		return &ResourceError{Resource: node.Name, Op: step.Op, Err: err}
	}

	attrs := make(map[string]any, len(resp.Attributes)+1)
	for k, v := range resp.Attributes {
		attrs[k] = v
	}
	if _, ok := attrs["id"]; !ok {
		attrs["id"] = resp.ID
	}

	mu.Lock()
	st.Resources[node.Name] = &ResourceState{
		Name:         node.Name,
		Type:         node.Type(),
		ID:           resp.ID,
		Inputs:       in,
		Attributes:   attrs,
		Dependencies: node.Dependencies(),
	}
	mu.Unlock()

	log.Info("applied", zap.String("id", resp.ID), zap.Strings("changes", step.Changes))
	return nil
}

// destroyOne removes one recorded resource.
func (e *Engine) destroyOne(ctx context.Context, st *State, name string, log *zap.Logger) error {
	res := st.Resources[name]
	log = log.With(zap.String("resource", name), zap.String("kind", res.Type), zap.String("op", string(OpDelete)))
	if err := e.provider.Delete(ctx, *res); err != nil {
		log.Error("delete failed", zap.Error(err))
		return &ResourceError{Resource: name, Op: OpDelete, Err: err}
	}
	delete(st.Resources, name)
	log.Info("deleted", zap.String("id", res.ID))
	return nil
}

// Destroy deletes every recorded resource, dependents first, and halts on
// the first failure.
func (e *Engine) Destroy(ctx context.Context, st *State) error {
	runID := ulid.Make().String()
	log := e.logger.With(zap.String("stack", st.Stack), zap.String("run_id", runID))

	names := make([]string, 0, len(st.Resources))
	for name := range st.Resources {
		names = append(names, name)
	}
	order := st.deleteOrder(names)
	log.Info("destroy started", zap.Int("resources", len(order)))

	st.RunID = runID
	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.destroyOne(ctx, st, name, log); err != nil {
			st.UpdatedAt = e.now()
			return err
		}
	}
	st.Outputs = nil
	st.UpdatedAt = e.now()
	log.Info("destroy finished")
	return nil
}

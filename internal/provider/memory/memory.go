// Package memory is an in-process engine.Provider. It assigns deterministic
// identifiers, ARNs and endpoints, records every call, and can be told to
// fail specific calls.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/lex00/wetwire-aurora-go/internal/engine"
	"github.com/lex00/wetwire-aurora-go/resources/iam"
	"github.com/lex00/wetwire-aurora-go/resources/rds"
)

// MySQLPort is the port every cluster and instance listens on.
const MySQLPort = 3306

// ErrInjected is returned by calls registered with FailOn.
var ErrInjected = errors.New("injected failure")

// Call records one provider invocation.
type Call struct {
	Op   engine.Op
	Name string
}

// Provider keeps resources in memory.
type Provider struct {
	region  string
	account string

	mu        sync.Mutex
	calls     []Call
	failures  map[Call]error
	resources map[string]engine.ResourceState
}

// Option configures a Provider.
type Option func(*Provider)

// WithRegion sets the region used in endpoints and ARNs.
func WithRegion(region string) Option {
	return func(p *Provider) { p.region = region }
}

// WithAccount sets the account id used in ARNs.
func WithAccount(account string) Option {
	return func(p *Provider) { p.account = account }
}

// WithState seeds the provider with resources recorded by an earlier run, so
// a later run can update or delete them.
func WithState(st *engine.State) Option {
	return func(p *Provider) {
		if st == nil {
			return
		}
		for name, res := range st.Resources {
			p.resources[name] = *res
		}
	}
}

// New creates an empty provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		region:    "ap-southeast-1",
		account:   "123456789012",
		failures:  make(map[Call]error),
		resources: make(map[string]engine.ResourceState),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FailOn makes the given operation on name fail with ErrInjected.
func (p *Provider) FailOn(op engine.Op, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[Call{Op: op, Name: name}] = fmt.Errorf("%s %s: %w", op, name, ErrInjected)
}

// Calls returns the recorded calls in order.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// Live returns the resources that currently exist.
func (p *Provider) Live() map[string]engine.ResourceState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]engine.ResourceState, len(p.resources))
	for k, v := range p.resources {
		out[k] = v
	}
	return out
}

// Create implements engine.Provider.
func (p *Provider) Create(ctx context.Context, req engine.Request) (engine.Response, error) {
	if err := p.record(ctx, engine.OpCreate, req.Name); err != nil {
		return engine.Response{}, err
	}
	p.mu.Lock()
	_, exists := p.resources[req.Name]
	p.mu.Unlock()
	if exists {
		return engine.Response{}, fmt.Errorf("%s already exists", req.Name)
	}
	return p.store(req)
}

// Update implements engine.Provider.
func (p *Provider) Update(ctx context.Context, req engine.Request) (engine.Response, error) {
	if err := p.record(ctx, engine.OpUpdate, req.Name); err != nil {
		return engine.Response{}, err
	}
	p.mu.Lock()
	_, exists := p.resources[req.Name]
	p.mu.Unlock()
	if !exists {
		return engine.Response{}, fmt.Errorf("%s does not exist", req.Name)
	}
	return p.store(req)
}

// Delete implements engine.Provider.
func (p *Provider) Delete(ctx context.Context, res engine.ResourceState) error {
	if err := p.record(ctx, engine.OpDelete, res.Name); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.resources, res.Name)
	return nil
}

func (p *Provider) record(ctx context.Context, op engine.Op, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, Call{Op: op, Name: name})
	return p.failures[Call{Op: op, Name: name}]
}

func (p *Provider) store(req engine.Request) (engine.Response, error) {
	id, attrs, err := p.attributes(req)
	if err != nil {
		return engine.Response{}, fmt.Errorf("%s: %w", req.Name, err)
	}
	attrs["id"] = id

	p.mu.Lock()
	defer p.mu.Unlock()
	p.resources[req.Name] = engine.ResourceState{
		Name:       req.Name,
		Type:       req.Type,
		ID:         id,
		Attributes: attrs,
	}
	return engine.Response{ID: id, Attributes: attrs}, nil
}

// attributes computes what the cloud would report for a resource.
func (p *Provider) attributes(req engine.Request) (string, map[string]any, error) {
	props := req.Properties
	suffix := p.hash(req.Name)

	switch req.Type {
	case rds.TypeSubnetGroup:
		return req.Name, map[string]any{
			rds.AttrName: req.Name,
			rds.AttrArn:  p.arn("rds", "subgrp:"+req.Name),
		}, nil

	case rds.TypeCluster:
		id := str(props, "clusterIdentifier")
		if id == "" {
			id = req.Name
		}
		return id, map[string]any{
			rds.AttrEndpoint:       fmt.Sprintf("%s.cluster-%s.%s.rds.amazonaws.com", id, suffix, p.region),
			rds.AttrReaderEndpoint: fmt.Sprintf("%s.cluster-ro-%s.%s.rds.amazonaws.com", id, suffix, p.region),
			rds.AttrEngineVersion:  str(props, "engineVersion"),
			rds.AttrPort:           MySQLPort,
			rds.AttrArn:            p.arn("rds", "cluster:"+id),
		}, nil

	case rds.TypeClusterInstance:
		if str(props, "clusterIdentifier") == "" {
			return "", nil, errors.New("clusterIdentifier is required")
		}
		return req.Name, map[string]any{
			rds.AttrEndpoint:      fmt.Sprintf("%s.%s.%s.rds.amazonaws.com", req.Name, suffix, p.region),
			rds.AttrEngineVersion: str(props, "engineVersion"),
			rds.AttrPort:          MySQLPort,
			rds.AttrArn:           p.arn("rds", "db:"+req.Name),
		}, nil

	case iam.TypeRole:
		arn := fmt.Sprintf("arn:aws:iam::%s:role/%s", p.account, req.Name)
		return req.Name, map[string]any{
			iam.AttrName: req.Name,
			iam.AttrArn:  arn,
		}, nil

	case iam.TypePolicy:
		arn := fmt.Sprintf("arn:aws:iam::%s:policy/%s", p.account, req.Name)
		return arn, map[string]any{
			iam.AttrName: req.Name,
			iam.AttrArn:  arn,
		}, nil

	case iam.TypeRolePolicyAttachment:
		role, policy := str(props, "role"), str(props, "policyArn")
		if role == "" || policy == "" {
			return "", nil, errors.New("role and policyArn are required")
		}
		return role + "-" + p.hash(policy), map[string]any{}, nil

	case rds.TypeProxy:
		name := str(props, "name")
		if name == "" {
			name = req.Name
		}
		return name, map[string]any{
			rds.AttrName:     name,
			rds.AttrEndpoint: fmt.Sprintf("%s.proxy-%s.%s.rds.amazonaws.com", name, suffix, p.region),
			rds.AttrArn:      p.arn("rds", "db-proxy:prx-"+suffix),
		}, nil

	case rds.TypeProxyDefaultTargetGroup:
		proxy := str(props, "dbProxyName")
		if proxy == "" {
			return "", nil, errors.New("dbProxyName is required")
		}
		return proxy, map[string]any{
			rds.AttrName: "default",
			rds.AttrArn:  p.arn("rds", "target-group:prx-tg-"+suffix),
		}, nil

	case rds.TypeProxyTarget:
		proxy, group, cluster := str(props, "dbProxyName"), str(props, "targetGroupName"), str(props, "dbClusterIdentifier")
		if proxy == "" || group == "" || cluster == "" {
			return "", nil, errors.New("dbProxyName, targetGroupName and dbClusterIdentifier are required")
		}
		return proxy + "," + group + ",TRACKED_CLUSTER," + cluster, map[string]any{}, nil
	}

	return "", nil, fmt.Errorf("unsupported resource type %s", req.Type)
}

func (p *Provider) arn(service, resource string) string {
	return fmt.Sprintf("arn:aws:%s:%s:%s:%s", service, p.region, p.account, resource)
}

func (p *Provider) hash(s string) string {
	sum := sha256.Sum256([]byte(p.account + "/" + s))
	return hex.EncodeToString(sum[:6])
}

func str(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

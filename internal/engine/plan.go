package engine

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"

	"github.com/lex00/wetwire-aurora-go/internal/differ"
	"github.com/lex00/wetwire-aurora-go/internal/serialize"
	"github.com/lex00/wetwire-aurora-go/pending"
	"github.com/lex00/wetwire-aurora-go/resources/iam"
	"github.com/lex00/wetwire-aurora-go/resources/rds"
	"github.com/lex00/wetwire-aurora-go/stack"
)

// Op is a planned operation.
type Op string

const (
	OpCreate  Op = "create"
	OpUpdate  Op = "update"
	OpReplace Op = "replace"
	OpDelete  Op = "delete"
	OpSame    Op = "same"
)

// Step is the planned operation for one resource.
type Step struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Op      Op       `json:"op"`
	Changes []string `json:"changes,omitempty"`
}

// Plan lists steps in execution order: creates and updates in dependency
// order, then deletes with dependents first.
type Plan struct {
	Steps []Step `json:"steps"`
}

// Counts tallies steps by operation.
func (p *Plan) Counts() map[Op]int {
	counts := make(map[Op]int)
	for _, s := range p.Steps {
		counts[s.Op]++
	}
	return counts
}

// Empty reports whether applying the plan would change nothing.
func (p *Plan) Empty() bool {
	for _, s := range p.Steps {
		if s.Op != OpSame {
			return false
		}
	}
	return true
}

// replaceOn lists, per type, the inputs that cannot change in place. "*"
// means any change replaces.
var replaceOn = map[string][]string{
	rds.TypeSubnetGroup:          {"description"},
	rds.TypeCluster:              {"clusterIdentifier", "engine", "engineMode", "databaseName", "masterUsername", "availabilityZones"},
	rds.TypeClusterInstance:      {"clusterIdentifier", "engine"},
	rds.TypeProxy:                {"name", "engineFamily"},
	rds.TypeProxyTarget:          {"*"},
	iam.TypeRole:                 {"path"},
	iam.TypePolicy:               {"path"},
	iam.TypeRolePolicyAttachment: {"*"},
}

// unresolved stands in for a reference whose producer has not been created.
func unresolved(ref pending.Ref) string {
	return "(known after apply: " + ref.String() + ")"
}

// inputs serializes node properties for comparison and storage. References
// resolve against st, or to a placeholder; secrets become fingerprints.
func inputs(node *stack.Node, st *State) (map[string]any, error) {
	props, err := serialize.Resource(node.Properties, serialize.Options{
		Deferred: func(d pending.Deferred) (any, error) {
			if ref, ok := d.Reference(); ok {
				if _, created := st.Attribute(ref.Resource, ref.Attribute); !created {
					return unresolved(ref), nil
				}
			}
			return d.ResolveAny(st)
		},
	})
	if err != nil {
		return nil, err
	}
	return normalize(props)
}

// request serializes node properties for the provider call, revealing secrets.
// Every reference must already resolve.
func request(node *stack.Node, r pending.Resolver) (map[string]any, error) {
	props, err := serialize.Resource(node.Properties, serialize.Options{
		Deferred: func(d pending.Deferred) (any, error) {
			return d.ResolveAny(r)
		},
		Secret: func(s pending.Secret) (any, error) {
			return s.Reveal(), nil
		},
	})
	if err != nil {
		return nil, err
	}
	return normalize(props)
}

func normalize(props map[string]any) (map[string]any, error) {
	data, err := json.Marshal(props)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// diffStep decides the operation for a node given its current inputs.
func diffStep(node *stack.Node, in map[string]any, prior *ResourceState) Step {
	step := Step{Name: node.Name, Type: node.Type()}
	if prior == nil {
		step.Op = OpCreate
		return step
	}
	if prior.Type != node.Type() {
		step.Op = OpReplace
		step.Changes = []string{fmt.Sprintf("type %s → %s", prior.Type, node.Type())}
		return step
	}

	step.Changes = differ.PropertyChanges(prior.Inputs, in)
	if !slices.Equal(prior.Dependencies, node.Dependencies()) {
		step.Changes = append(step.Changes, "dependencies changed")
	}
	switch {
	case len(step.Changes) == 0:
		step.Op = OpSame
	case replaces(node.Type(), step.Changes):
		step.Op = OpReplace
	default:
		step.Op = OpUpdate
	}
	return step
}

func replaces(typ string, changes []string) bool {
	keys := replaceOn[typ]
	for _, change := range changes {
		for _, key := range keys {
			if key == "*" || touches(change, key) {
				return true
			}
		}
	}
	return false
}

// touches matches a change path like "engine modified" or
// "availabilityZones added" against a top-level key.
func touches(change, key string) bool {
	if len(change) <= len(key) || change[:len(key)] != key {
		return false
	}
	next := change[len(key)]
	return next == ' ' || next == '.'
}

// Preview computes the plan for bringing st in line with s.
func Preview(s *stack.Stack, st *State) (*Plan, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	order, err := s.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	for _, name := range order {
		node, _ := s.Resource(name)
		in, err := inputs(node, st)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		plan.Steps = append(plan.Steps, diffStep(node, in, st.Resources[name]))
	}
	cascadeReplace(s, plan)

	for _, name := range removed(s, st) {
		plan.Steps = append(plan.Steps, Step{Name: name, Type: st.Resources[name].Type, Op: OpDelete})
	}
	return plan, nil
}

// cascadeReplace marks existing dependents of a replaced resource for
// replacement too. Steps are in dependency order, so a dependency's op is final
// before its dependents are visited.
func cascadeReplace(s *stack.Stack, plan *Plan) {
	index := make(map[string]int, len(plan.Steps))
	for i, step := range plan.Steps {
		index[step.Name] = i
	}
	for i := range plan.Steps {
		step := &plan.Steps[i]
		if step.Op != OpSame && step.Op != OpUpdate {
			continue
		}
		for _, dep := range s.Dependencies(step.Name) {
			if j, ok := index[dep]; ok && plan.Steps[j].Op == OpReplace {
				step.Op = OpReplace
				step.Changes = append(step.Changes, dep+" replaced")
				break
			}
		}
	}
}

// replaced returns the recorded resources the plan replaces, dependents first.
func (p *Plan) replaced(st *State) []string {
	var names []string
	for _, step := range p.Steps {
		if step.Op == OpReplace && st.Resources[step.Name] != nil {
			names = append(names, step.Name)
		}
	}
	return st.deleteOrder(names)
}

// removed returns resources in st that s no longer declares, in delete order.
func removed(s *stack.Stack, st *State) []string {
	var names []string
	for name := range st.Resources {
		if _, ok := s.Resource(name); !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return st.deleteOrder(names)
}

// Package stack holds the declared resource graph: named nodes, their
// properties and the dependency edges between them.
//
// Edges come from two places: explicit DependsOn options and the pending
// references found in a node's properties. Both are checked when the node is
// added, so a Stack is always a DAG whose edges point at existing nodes.
package stack

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	wetwire "github.com/lex00/wetwire-aurora-go"
	"github.com/lex00/wetwire-aurora-go/internal/serialize"
	"github.com/lex00/wetwire-aurora-go/pending"
)

var (
	// ErrDuplicate is returned when a node name is declared twice.
	ErrDuplicate = errors.New("duplicate resource name")

	// ErrUnknownDependency is returned when an edge points at an undeclared node.
	ErrUnknownDependency = errors.New("unknown dependency")

	// ErrCycle is returned when the graph contains a dependency cycle.
	ErrCycle = errors.New("circular dependency detected")
)

// Node is one declared resource.
type Node struct {
	Name       string
	Properties wetwire.Resource
	// Explicit holds the DependsOn edges, in declaration order.
	Explicit []string
	// Implicit holds the edges derived from pending references.
	Implicit []string
	// Parent is the owning component name, if any.
	Parent string
}

// Type returns the resource type token of the node.
func (n *Node) Type() string {
	return n.Properties.ResourceType()
}

// Dependencies returns the union of explicit and implicit edges, sorted.
func (n *Node) Dependencies() []string {
	seen := make(map[string]bool)
	var deps []string
	for _, d := range append(append([]string{}, n.Explicit...), n.Implicit...) {
		if !seen[d] {
			seen[d] = true
			deps = append(deps, d)
		}
	}
	sort.Strings(deps)
	return deps
}

// Output is an exported stack value.
type Output struct {
	Name        string
	Description string
	Value       pending.String
}

// Option configures a node as it is added.
type Option func(*Node)

// DependsOn adds explicit ordering edges to the named nodes.
func DependsOn(names ...string) Option {
	return func(n *Node) {
		n.Explicit = append(n.Explicit, names...)
	}
}

// Parent records the component that owns the node.
func Parent(name string) Option {
	return func(n *Node) {
		n.Parent = name
	}
}

// Stack is a named resource graph.
type Stack struct {
	name    string
	nodes   map[string]*Node
	order   []string
	outputs []Output
}

// New creates an empty stack.
func New(name string) *Stack {
	return &Stack{
		name:  name,
		nodes: make(map[string]*Node),
	}
}

// Name returns the stack name.
func (s *Stack) Name() string {
	return s.name
}

// Add declares a resource. Every dependency, explicit or implied by a pending
// reference, must already be declared.
func (s *Stack) Add(name string, props wetwire.Resource, opts ...Option) (*Node, error) {
	if name == "" {
		return nil, errors.New("resource name is required")
	}
	if props == nil {
		return nil, fmt.Errorf("%s: properties are required", name)
	}
	if _, exists := s.nodes[name]; exists {
		return nil, fmt.Errorf("%s: %w", name, ErrDuplicate)
	}

	node := &Node{Name: name, Properties: props}
	for _, opt := range opts {
		opt(node)
	}

	seen := make(map[string]bool)
	for _, ref := range serialize.References(props) {
		if !seen[ref.Resource] {
			seen[ref.Resource] = true
			node.Implicit = append(node.Implicit, ref.Resource)
		}
	}

	for _, dep := range node.Dependencies() {
		if dep == name {
			return nil, fmt.Errorf("%s depends on itself: %w", name, ErrCycle)
		}
		if _, exists := s.nodes[dep]; !exists {
			return nil, fmt.Errorf("%s -> %s: %w", name, dep, ErrUnknownDependency)
		}
	}

	s.nodes[name] = node
	s.order = append(s.order, name)
	return node, nil
}

// Resource returns the named node.
func (s *Stack) Resource(name string) (*Node, bool) {
	n, ok := s.nodes[name]
	return n, ok
}

// Resources returns all nodes in declaration order.
func (s *Stack) Resources() []*Node {
	out := make([]*Node, len(s.order))
	for i, name := range s.order {
		out[i] = s.nodes[name]
	}
	return out
}

// Len returns the number of declared nodes.
func (s *Stack) Len() int {
	return len(s.order)
}

// Dependencies returns the direct dependencies of the named node.
func (s *Stack) Dependencies(name string) []string {
	n, ok := s.nodes[name]
	if !ok {
		return nil
	}
	return n.Dependencies()
}

// Dependents returns the nodes that depend directly on name, sorted.
func (s *Stack) Dependents(name string) []string {
	var out []string
	for _, n := range s.nodes {
		for _, dep := range n.Dependencies() {
			if dep == name {
				out = append(out, n.Name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// DependsOnTransitively reports whether from reaches to through dependency edges.
func (s *Stack) DependsOnTransitively(from, to string) bool {
	visited := make(map[string]bool)
	var walk func(string) bool
	walk = func(name string) bool {
		if visited[name] {
			return false
		}
		visited[name] = true
		for _, dep := range s.Dependencies(name) {
			if dep == to || walk(dep) {
				return true
			}
		}
		return false
	}
	return walk(from)
}

// Export records a stack output.
func (s *Stack) Export(name, description string, value pending.String) error {
	for _, o := range s.outputs {
		if o.Name == name {
			return fmt.Errorf("output %s: %w", name, ErrDuplicate)
		}
	}
	if ref, ok := value.Reference(); ok {
		if _, exists := s.nodes[ref.Resource]; !exists {
			return fmt.Errorf("output %s -> %s: %w", name, ref.Resource, ErrUnknownDependency)
		}
	}
	s.outputs = append(s.outputs, Output{Name: name, Description: description, Value: value})
	return nil
}

// Outputs returns the exported values in declaration order.
func (s *Stack) Outputs() []Output {
	return append([]Output(nil), s.outputs...)
}

// Validate re-checks that every edge targets a declared node and that the
// graph is acyclic.
func (s *Stack) Validate() error {
	var errs []error
	for _, name := range s.order {
		for _, dep := range s.nodes[name].Dependencies() {
			if _, ok := s.nodes[dep]; !ok {
				errs = append(errs, fmt.Errorf("%s -> %s: %w", name, dep, ErrUnknownDependency))
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	_, err := s.TopologicalOrder()
	return err
}

// TopologicalOrder returns node names with every dependency before its
// dependents. Ties are broken alphabetically so the order is deterministic.
func (s *Stack) TopologicalOrder() ([]string, error) {
	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range s.nodes {
		graph[name] = nil
		inDegree[name] = 0
	}

	for name, node := range s.nodes {
		for _, dep := range node.Dependencies() {
			if _, exists := s.nodes[dep]; exists {
				graph[dep] = append(graph[dep], name)
				inDegree[name]++
			}
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(s.nodes) {
		return nil, s.detectCycle()
	}

	return result, nil
}

// ReverseOrder is TopologicalOrder reversed, the order for destroying.
func (s *Stack) ReverseOrder() ([]string, error) {
	order, err := s.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// detectCycle finds and reports a cycle in the dependency graph.
func (s *Stack) detectCycle() error {
	visited := make(map[string]bool)
	path := make(map[string]bool)

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		path[node] = true

		for _, dep := range s.nodes[node].Dependencies() {
			if _, exists := s.nodes[dep]; !exists {
				continue
			}
			if !visited[dep] {
				if findCycle(dep) {
					cycle = append([]string{node}, cycle...)
					return true
				}
			} else if path[dep] {
				cycle = append([]string{dep, node}, cycle...)
				return true
			}
		}

		path[node] = false
		return false
	}

	names := append([]string(nil), s.order...)
	sort.Strings(names)
	for _, name := range names {
		if !visited[name] && findCycle(name) {
			break
		}
	}

	if len(cycle) > 0 {
		return fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycle, " -> "))
	}
	return ErrCycle
}

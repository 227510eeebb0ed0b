package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// State is the persisted record of what the engine created.
type State struct {
	Stack     string                    `json:"stack"`
	RunID     string                    `json:"runId,omitempty"`
	UpdatedAt time.Time                 `json:"updatedAt,omitempty"`
	Resources map[string]*ResourceState `json:"resources"`
	Outputs   map[string]any            `json:"outputs,omitempty"`
}

// ResourceState is one created resource.
type ResourceState struct {
	Name string `json:"name"`
	Type string `json:"type"`
	ID   string `json:"id"`
	// Inputs are the resolved properties, with secrets replaced by fingerprints.
	Inputs       map[string]any `json:"inputs,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
}

// NewState returns an empty state for a stack.
func NewState(stack string) *State {
	return &State{Stack: stack, Resources: make(map[string]*ResourceState)}
}

// LoadState reads state from path. A missing file yields an empty state.
func LoadState(path, stack string) (*State, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewState(stack), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing state %s: %w", path, err)
	}
	if st.Stack != "" && st.Stack != stack {
		return nil, fmt.Errorf("state %s belongs to stack %q, not %q", path, st.Stack, stack)
	}
	st.Stack = stack
	if st.Resources == nil {
		st.Resources = make(map[string]*ResourceState)
	}
	return &st, nil
}

// Save writes the state to path, creating parent directories.
func (st *State) Save(path string) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return os.Rename(tmp, path)
}

// Attribute implements pending.Resolver over created resources.
func (st *State) Attribute(resource, attribute string) (any, bool) {
	rs, ok := st.Resources[resource]
	if !ok {
		return nil, false
	}
	v, ok := rs.Attributes[attribute]
	return v, ok
}

// deleteOrder returns the named resources with dependents before their
// dependencies. Dependencies outside names are ignored.
func (st *State) deleteOrder(names []string) []string {
	in := make(map[string]bool, len(names))
	for _, n := range names {
		in[n] = true
	}

	// dependents[x] counts the resources in names that still need x.
	dependents := make(map[string]int, len(names))
	for _, n := range names {
		for _, dep := range st.Resources[n].Dependencies {
			if in[dep] {
				dependents[dep]++
			}
		}
	}

	var queue []string
	for _, n := range names {
		if dependents[n] == 0 {
			queue = append(queue, n)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, dep := range st.Resources[n].Dependencies {
			if !in[dep] {
				continue
			}
			dependents[dep]--
			if dependents[dep] == 0 {
				queue = append(queue, dep)
				sort.Strings(queue)
			}
		}
	}
	return order
}

package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-aurora-go/pending"
)

type fakeResource struct {
	Kind string         `json:"-"`
	Ref  pending.String `json:"ref,omitempty"`
	Refs []pending.String
}

func (f fakeResource) ResourceType() string {
	if f.Kind == "" {
		return "test.Fake"
	}
	return f.Kind
}

func chain(t *testing.T) *Stack {
	t.Helper()
	s := New("dev")
	_, err := s.Add("role", fakeResource{})
	require.NoError(t, err)
	_, err = s.Add("policy", fakeResource{})
	require.NoError(t, err)
	_, err = s.Add("attachment", fakeResource{Refs: []pending.String{
		pending.Of[string]("role", "name"),
		pending.Of[string]("policy", "arn"),
	}})
	require.NoError(t, err)
	_, err = s.Add("proxy", fakeResource{Ref: pending.Of[string]("role", "arn")}, DependsOn("attachment"))
	require.NoError(t, err)
	return s
}

func TestAdd_ImplicitAndExplicitEdges(t *testing.T) {
	s := chain(t)

	assert.Equal(t, []string{"policy", "role"}, s.Dependencies("attachment"))
	assert.Equal(t, []string{"attachment", "role"}, s.Dependencies("proxy"))

	node, ok := s.Resource("proxy")
	require.True(t, ok)
	assert.Equal(t, []string{"attachment"}, node.Explicit)
	assert.Equal(t, []string{"role"}, node.Implicit)
	assert.Equal(t, "test.Fake", node.Type())
}

func TestAdd_Duplicate(t *testing.T) {
	s := New("dev")
	_, err := s.Add("role", fakeResource{})
	require.NoError(t, err)

	_, err = s.Add("role", fakeResource{})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestAdd_UnknownDependency(t *testing.T) {
	s := New("dev")

	_, err := s.Add("proxy", fakeResource{}, DependsOn("missing"))
	assert.ErrorIs(t, err, ErrUnknownDependency)

	_, err = s.Add("proxy", fakeResource{Ref: pending.Of[string]("missing", "arn")})
	assert.ErrorIs(t, err, ErrUnknownDependency)

	assert.Equal(t, 0, s.Len())
}

func TestAdd_SelfDependency(t *testing.T) {
	s := New("dev")
	_, err := s.Add("proxy", fakeResource{}, DependsOn("proxy"))
	assert.ErrorIs(t, err, ErrCycle)
}

func TestAdd_Invalid(t *testing.T) {
	s := New("dev")
	_, err := s.Add("", fakeResource{})
	assert.Error(t, err)
	_, err = s.Add("x", nil)
	assert.Error(t, err)
}

func TestResources_DeclarationOrder(t *testing.T) {
	s := chain(t)

	var names []string
	for _, n := range s.Resources() {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"role", "policy", "attachment", "proxy"}, names)
}

func TestTopologicalOrder(t *testing.T) {
	s := chain(t)

	order, err := s.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"policy", "role", "attachment", "proxy"}, order)

	reverse, err := s.ReverseOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"proxy", "attachment", "role", "policy"}, reverse)
}

func TestDependents(t *testing.T) {
	s := chain(t)
	assert.Equal(t, []string{"attachment", "proxy"}, s.Dependents("role"))
	assert.Empty(t, s.Dependents("proxy"))
	assert.Nil(t, s.Dependencies("missing"))
}

func TestDependsOnTransitively(t *testing.T) {
	s := chain(t)
	assert.True(t, s.DependsOnTransitively("proxy", "policy"))
	assert.False(t, s.DependsOnTransitively("policy", "proxy"))
}

func TestValidate_Cycle(t *testing.T) {
	s := chain(t)
	require.NoError(t, s.Validate())

	// Add never lets a cycle in, so build one by hand.
	s.nodes["role"].Explicit = append(s.nodes["role"].Explicit, "proxy")

	err := s.Validate()
	assert.ErrorIs(t, err, ErrCycle)
	assert.Contains(t, err.Error(), "->")
}

func TestValidate_DanglingEdge(t *testing.T) {
	s := chain(t)
	s.nodes["policy"].Explicit = []string{"gone"}
	assert.ErrorIs(t, s.Validate(), ErrUnknownDependency)
}

func TestExport(t *testing.T) {
	s := chain(t)

	require.NoError(t, s.Export("proxyEndpoint", "proxy endpoint", pending.Of[string]("proxy", "endpoint")))
	require.NoError(t, s.Export("dbName", "", pending.Known("demo")))

	assert.ErrorIs(t, s.Export("dbName", "", pending.Known("x")), ErrDuplicate)
	assert.ErrorIs(t, s.Export("bad", "", pending.Of[string]("missing", "endpoint")), ErrUnknownDependency)

	outputs := s.Outputs()
	require.Len(t, outputs, 2)
	assert.Equal(t, "proxyEndpoint", outputs[0].Name)
	assert.Equal(t, "dev", s.Name())
}

// Package pulumiyaml renders a resource graph as a Pulumi YAML program.
//
// Each graph node becomes one resource keyed by the camel-cased node name, with
// the provider type token, the node name as its physical name, and the node's
// ordering-only edges as options.dependsOn. References become ${key.attr}
// interpolations; secrets become secret config values.
package pulumiyaml

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/lex00/wetwire-aurora-go/internal/serialize"
	"github.com/lex00/wetwire-aurora-go/pending"
	"github.com/lex00/wetwire-aurora-go/resources/iam"
	"github.com/lex00/wetwire-aurora-go/resources/rds"
	"github.com/lex00/wetwire-aurora-go/stack"
)

// Program is a Pulumi YAML program.
type Program struct {
	Name        string               `yaml:"name"`
	Runtime     string               `yaml:"runtime"`
	Description string               `yaml:"description,omitempty"`
	Config      map[string]ConfigVar `yaml:"config,omitempty"`
	Resources   map[string]Resource  `yaml:"resources"`
	Outputs     map[string]any       `yaml:"outputs,omitempty"`
}

// ConfigVar declares a stack configuration value.
type ConfigVar struct {
	Type   string `yaml:"type"`
	Secret bool   `yaml:"secret,omitempty"`
}

// Resource is one program resource.
type Resource struct {
	Type       string         `yaml:"type"`
	Name       string         `yaml:"name,omitempty"`
	Properties map[string]any `yaml:"properties,omitempty"`
	Options    *Options       `yaml:"options,omitempty"`
}

// Options holds resource options.
type Options struct {
	DependsOn []string `yaml:"dependsOn,omitempty"`
}

// typeTokens maps graph types to provider type tokens.
var typeTokens = map[string]string{
	rds.TypeSubnetGroup:             "aws:rds:SubnetGroup",
	rds.TypeCluster:                 "aws:rds:Cluster",
	rds.TypeClusterInstance:         "aws:rds:ClusterInstance",
	rds.TypeProxy:                   "aws:rds:Proxy",
	rds.TypeProxyDefaultTargetGroup: "aws:rds:ProxyDefaultTargetGroup",
	rds.TypeProxyTarget:             "aws:rds:ProxyTarget",
	iam.TypeRole:                    "aws:iam:Role",
	iam.TypePolicy:                  "aws:iam:Policy",
	iam.TypeRolePolicyAttachment:    "aws:iam:RolePolicyAttachment",
}

// policyFields are properties the provider expects as JSON strings.
var policyFields = map[string][]string{
	iam.TypeRole:   {"assumeRolePolicy"},
	iam.TypePolicy: {"policy"},
}

// Key returns the program key for a node name.
func Key(name string) string {
	return serialize.ToCamelCase(name)
}

// Build renders s as a program named after the stack.
func Build(s *stack.Stack) (*Program, error) {
	order, err := s.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	p := &Program{
		Name:      s.Name(),
		Runtime:   "yaml",
		Resources: make(map[string]Resource, len(order)),
	}
	opts := p.options(s)

	for _, name := range order {
		node, _ := s.Resource(name)
		token, ok := typeTokens[node.Type()]
		if !ok {
			return nil, fmt.Errorf("%s: unknown resource type: %s", name, node.Type())
		}

		props, err := serialize.Resource(node.Properties, opts)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", name, err)
		}
		for _, field := range policyFields[node.Type()] {
			if doc, ok := props[field]; ok {
				props[field] = map[string]any{"fn::toJSON": doc}
			}
		}

		res := Resource{Type: token, Name: name, Properties: props}
		if len(node.Explicit) > 0 {
			deps := make([]string, len(node.Explicit))
			for i, dep := range node.Explicit {
				deps[i] = "${" + Key(dep) + "}"
			}
			sort.Strings(deps)
			res.Options = &Options{DependsOn: deps}
		}
		p.Resources[Key(name)] = res
	}

	if outputs := s.Outputs(); len(outputs) > 0 {
		p.Outputs = make(map[string]any, len(outputs))
		for _, o := range outputs {
			v, err := serialize.Value(o.Value, opts)
			if err != nil {
				return nil, fmt.Errorf("output %s: %w", o.Name, err)
			}
			p.Outputs[o.Name] = v
		}
	}

	return p, nil
}

// options returns serializer options that write references as interpolations
// and record secret config on p.
func (p *Program) options(s *stack.Stack) serialize.Options {
	return serialize.Options{
		Deferred: func(d pending.Deferred) (any, error) {
			ref, ok := d.Reference()
			if !ok {
				lit, _ := d.Literal()
				return lit, nil
			}
			if _, exists := s.Resource(ref.Resource); !exists {
				return nil, fmt.Errorf("%s: %w", ref, stack.ErrUnknownDependency)
			}
			return "${" + Key(ref.Resource) + "." + ref.Attribute + "}", nil
		},
		Secret: func(secret pending.Secret) (any, error) {
			if p.Config == nil {
				p.Config = make(map[string]ConfigVar)
			}
			p.Config[secret.Name()] = ConfigVar{Type: "string", Secret: true}
			return "${" + secret.Name() + "}", nil
		},
	}
}

// ToYAML serializes the program.
func ToYAML(p *Program) ([]byte, error) {
	return yaml.Marshal(p)
}

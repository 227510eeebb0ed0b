// Package template renders a resource graph as a CloudFormation template.
//
// Most graph nodes map to one template resource. Two do not, because
// CloudFormation models them as properties of another resource:
//   - iam.RolePolicyAttachment folds into the Roles list of the
//     AWS::IAM::ManagedPolicy it attaches
//   - rds.ProxyTarget folds into the DBClusterIdentifiers of the
//     AWS::RDS::DBProxyTargetGroup it registers with
//
// Secrets become NoEcho parameters.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	wetwire "github.com/lex00/wetwire-aurora-go"
	"github.com/lex00/wetwire-aurora-go/internal/serialize"
	"github.com/lex00/wetwire-aurora-go/intrinsics"
	"github.com/lex00/wetwire-aurora-go/pending"
	"github.com/lex00/wetwire-aurora-go/resources/iam"
	"github.com/lex00/wetwire-aurora-go/resources/rds"
	"github.com/lex00/wetwire-aurora-go/stack"
)

// ErrUnsupportedAttribute is returned for a reference CloudFormation cannot express.
var ErrUnsupportedAttribute = errors.New("attribute not available in CloudFormation")

// Builder constructs CloudFormation templates from a stack.
type Builder struct {
	stack *stack.Stack

	// Description is written to the template header.
	Description string

	parameters map[string]wetwire.Parameter
	// folded maps a folded node to the node that hosts it.
	folded map[string]string
	// attachments and targets are grouped by host node.
	attachments map[string][]iam.RolePolicyAttachment
	targets     map[string][]*stack.Node
}

// NewBuilder creates a template builder for s.
func NewBuilder(s *stack.Stack) *Builder {
	return &Builder{stack: s}
}

// LogicalID converts a node name to a CloudFormation logical id.
func LogicalID(name string) string {
	return serialize.ToPascalCase(name)
}

// Build constructs the CloudFormation template.
func (b *Builder) Build() (*wetwire.Template, error) {
	order, err := b.stack.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	b.parameters = make(map[string]wetwire.Parameter)
	b.folded = make(map[string]string)
	b.attachments = make(map[string][]iam.RolePolicyAttachment)
	b.targets = make(map[string][]*stack.Node)
	if err := b.fold(); err != nil {
		return nil, err
	}

	template := &wetwire.Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Description:              b.Description,
		Resources:                make(map[string]wetwire.ResourceDef),
	}

	for _, name := range order {
		if _, ok := b.folded[name]; ok {
			continue
		}
		node, _ := b.stack.Resource(name)

		def, err := b.lower(node)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", name, err)
		}
		def.DependsOn = b.dependsOn(node)

		props, err := normalize(def.Properties)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", name, err)
		}
		def.Properties = props
		template.Resources[LogicalID(name)] = def
	}

	if outputs := b.stack.Outputs(); len(outputs) > 0 {
		template.Outputs = make(map[string]wetwire.Output)
		for _, o := range outputs {
			value, err := b.value(o.Value)
			if err != nil {
				return nil, fmt.Errorf("output %s: %w", o.Name, err)
			}
			value, err = normalize(value)
			if err != nil {
				return nil, fmt.Errorf("output %s: %w", o.Name, err)
			}
			id := LogicalID(o.Name)
			template.Outputs[id] = wetwire.Output{
				Description: o.Description,
				Value:       value,
				Export: &wetwire.OutputExport{
					Name: map[string]any{"Fn::Sub": "${AWS::StackName}-" + id},
				},
			}
		}
	}

	if len(b.parameters) > 0 {
		template.Parameters = b.parameters
	}

	return template, nil
}

// fold records which nodes are rendered as part of another resource.
func (b *Builder) fold() error {
	for _, node := range b.stack.Resources() {
		switch props := node.Properties.(type) {
		case iam.RolePolicyAttachment:
			ref, ok := props.PolicyArn.Reference()
			if !ok {
				return fmt.Errorf("%s: policy must be declared in the stack", node.Name)
			}
			b.folded[node.Name] = ref.Resource
			b.attachments[ref.Resource] = append(b.attachments[ref.Resource], props)
		case rds.ProxyTarget:
			ref, ok := props.TargetGroupName.Reference()
			if !ok {
				return fmt.Errorf("%s: target group must be declared in the stack", node.Name)
			}
			b.folded[node.Name] = ref.Resource
			b.targets[ref.Resource] = append(b.targets[ref.Resource], node)
		}
	}
	return nil
}

// dependsOn returns the explicit edges of node, plus those of any node folded
// into it, as logical ids.
func (b *Builder) dependsOn(node *stack.Node) []string {
	edges := append([]string(nil), node.Explicit...)
	for _, target := range b.targets[node.Name] {
		edges = append(edges, target.Dependencies()...)
	}

	seen := map[string]bool{node.Name: true}
	var out []string
	for _, dep := range edges {
		if host, ok := b.folded[dep]; ok {
			dep = host
		}
		if seen[dep] {
			continue
		}
		seen[dep] = true
		out = append(out, LogicalID(dep))
	}
	sort.Strings(out)
	return out
}

// lower maps one node to its CloudFormation resource.
func (b *Builder) lower(node *stack.Node) (wetwire.ResourceDef, error) {
	switch p := node.Properties.(type) {
	case rds.SubnetGroup:
		return b.resource("AWS::RDS::DBSubnetGroup", map[string]any{
			"DBSubnetGroupDescription": p.Description,
			"SubnetIds":                p.SubnetIDs,
			"Tags":                     tags(p.Tags),
		})

	case rds.Cluster:
		def, err := b.resource("AWS::RDS::DBCluster", map[string]any{
			"DBClusterIdentifier":              p.ClusterIdentifier,
			"Engine":                           p.Engine,
			"EngineMode":                       p.EngineMode,
			"EngineVersion":                    p.EngineVersion,
			"DatabaseName":                     p.DatabaseName,
			"MasterUsername":                   p.MasterUsername,
			"MasterUserPassword":               p.MasterPassword,
			"ServerlessV2ScalingConfiguration": scaling(p.Serverlessv2ScalingConfiguration),
			"AssociatedRoles":                  associatedRoles(p.IAMRoles),
			"VpcSecurityGroupIds":              p.VpcSecurityGroupIDs,
			"DBSubnetGroupName":                p.DBSubnetGroupName,
			"DBClusterParameterGroupName":      p.DBClusterParameterGroupName,
			"AvailabilityZones":                p.AvailabilityZones,
			"BackupRetentionPeriod":            p.BackupRetentionPeriod,
			"PreferredMaintenanceWindow":       p.PreferredMaintenanceWindow,
			"CopyTagsToSnapshot":               p.CopyTagsToSnapshot,
			"Tags":                             tags(p.Tags),
		})
		def.DeletionPolicy = "Delete"
		if p.FinalSnapshotIdentifier != "" {
			def.DeletionPolicy = "Snapshot"
		}
		return def, err

	case rds.ClusterInstance:
		// The engine version follows the cluster and has no template attribute.
		return b.resource("AWS::RDS::DBInstance", map[string]any{
			"DBClusterIdentifier": p.ClusterIdentifier,
			"DBInstanceClass":     p.InstanceClass,
			"Engine":              p.Engine,
			"Tags":                tags(p.Tags),
		})

	case iam.Role:
		return b.resource("AWS::IAM::Role", map[string]any{
			"Path":                     p.Path,
			"AssumeRolePolicyDocument": p.AssumeRolePolicy,
			"Tags":                     tags(p.Tags),
		})

	case iam.Policy:
		var roles []pending.String
		for _, a := range b.attachments[node.Name] {
			roles = append(roles, a.Role)
		}
		return b.resource("AWS::IAM::ManagedPolicy", map[string]any{
			"Path":           p.Path,
			"Description":    p.Description,
			"PolicyDocument": p.Policy,
			"Roles":          roles,
		})

	case rds.Proxy:
		auths := make([]map[string]any, len(p.Auths))
		for i, a := range p.Auths {
			auths[i] = map[string]any{
				"AuthScheme":  a.AuthScheme,
				"Description": a.Description,
				"IAMAuth":     a.IAMAuth,
				"SecretArn":   a.SecretArn,
			}
		}
		return b.resource("AWS::RDS::DBProxy", map[string]any{
			"DBProxyName":         p.Name,
			"EngineFamily":        p.EngineFamily,
			"RoleArn":             p.RoleArn,
			"RequireTLS":          p.RequireTLS,
			"DebugLogging":        p.DebugLogging,
			"IdleClientTimeout":   p.IdleClientTimeout,
			"Auth":                auths,
			"VpcSubnetIds":        p.VpcSubnetIDs,
			"VpcSecurityGroupIds": p.VpcSecurityGroupIDs,
			"Tags":                tags(p.Tags),
		})

	case rds.ProxyDefaultTargetGroup:
		var clusters []pending.String
		for _, target := range b.targets[node.Name] {
			clusters = append(clusters, target.Properties.(rds.ProxyTarget).DBClusterIdentifier)
		}
		props := map[string]any{
			"DBProxyName":          p.DBProxyName,
			"TargetGroupName":      "default",
			"DBClusterIdentifiers": clusters,
		}
		if c := p.ConnectionPoolConfig; c != nil {
			props["ConnectionPoolConfigurationInfo"] = map[string]any{
				"ConnectionBorrowTimeout":   c.ConnectionBorrowTimeout,
				"MaxConnectionsPercent":     c.MaxConnectionsPercent,
				"MaxIdleConnectionsPercent": c.MaxIdleConnectionsPercent,
			}
		}
		return b.resource("AWS::RDS::DBProxyTargetGroup", props)

	default:
		return wetwire.ResourceDef{}, fmt.Errorf("unknown resource type: %s", node.Type())
	}
}

// resource serializes props, dropping zero values, into a ResourceDef.
func (b *Builder) resource(cfnType string, props map[string]any) (wetwire.ResourceDef, error) {
	out := make(map[string]any, len(props))
	for key, v := range props {
		serialized, err := b.value(v)
		if err != nil {
			return wetwire.ResourceDef{}, fmt.Errorf("%s: %w", key, err)
		}
		if isEmpty(serialized) {
			continue
		}
		out[key] = serialized
	}
	return wetwire.ResourceDef{Type: cfnType, Properties: out}, nil
}

// value serializes v, turning references into Ref/GetAtt and secrets into
// parameters.
func (b *Builder) value(v any) (any, error) {
	return serialize.Value(v, serialize.Options{
		Deferred: func(d pending.Deferred) (any, error) {
			ref, ok := d.Reference()
			if !ok {
				lit, _ := d.Literal()
				return lit, nil
			}
			return b.reference(ref)
		},
		Secret: func(s pending.Secret) (any, error) {
			id := LogicalID(s.Name())
			b.parameters[id] = wetwire.Parameter{
				Type:        "String",
				Description: s.Name(),
				NoEcho:      true,
			}
			return intrinsics.Param(id), nil
		},
	})
}

// reference maps a node attribute to its CloudFormation expression.
func (b *Builder) reference(ref pending.Ref) (any, error) {
	node, ok := b.stack.Resource(ref.Resource)
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref, stack.ErrUnknownDependency)
	}
	id := LogicalID(ref.Resource)

	attr, ok := attributes[node.Type()][ref.Attribute]
	if !ok {
		return nil, fmt.Errorf("%s (%s): %w", ref, node.Type(), ErrUnsupportedAttribute)
	}
	switch attr {
	case refAttr:
		return intrinsics.Ref{LogicalName: id}, nil
	case literalDefault:
		return "default", nil
	default:
		return intrinsics.GetAtt{LogicalName: id, Attribute: attr}, nil
	}
}

const (
	refAttr        = "Ref"
	literalDefault = "default"
)

// attributes maps graph attributes to CloudFormation Ref or GetAtt names.
var attributes = map[string]map[string]string{
	rds.TypeSubnetGroup: {
		rds.AttrName: refAttr,
		rds.AttrID:   refAttr,
	},
	rds.TypeCluster: {
		rds.AttrID:             refAttr,
		rds.AttrEndpoint:       "Endpoint.Address",
		rds.AttrReaderEndpoint: "ReadEndpoint.Address",
		rds.AttrPort:           "Endpoint.Port",
		rds.AttrArn:            "DBClusterArn",
	},
	rds.TypeClusterInstance: {
		rds.AttrID:       refAttr,
		rds.AttrEndpoint: "Endpoint.Address",
		rds.AttrPort:     "Endpoint.Port",
		rds.AttrArn:      "DBInstanceArn",
	},
	iam.TypeRole: {
		iam.AttrName: refAttr,
		iam.AttrArn:  "Arn",
		iam.AttrID:   "RoleId",
	},
	iam.TypePolicy: {
		iam.AttrArn: refAttr,
		iam.AttrID:  "PolicyArn",
	},
	rds.TypeProxy: {
		rds.AttrName:     refAttr,
		rds.AttrArn:      "DBProxyArn",
		rds.AttrEndpoint: "Endpoint",
	},
	rds.TypeProxyDefaultTargetGroup: {
		rds.AttrName: literalDefault,
		rds.AttrArn:  "TargetGroupArn",
	},
}

func tags(m map[string]string) []intrinsics.Tag {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]intrinsics.Tag, len(keys))
	for i, k := range keys {
		out[i] = intrinsics.Tag{Key: k, Value: m[k]}
	}
	return out
}

func scaling(s *rds.ScalingConfiguration) map[string]any {
	if s == nil {
		return nil
	}
	return map[string]any{"MinCapacity": s.MinCapacity, "MaxCapacity": s.MaxCapacity}
}

func associatedRoles(arns []pending.String) []map[string]any {
	out := make([]map[string]any, len(arns))
	for i, arn := range arns {
		out[i] = map[string]any{"RoleArn": arn}
	}
	return out
}

// isEmpty reports values that CloudFormation should not see.
func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case int64:
		return val == 0
	case bool:
		return !val
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	return false
}

// normalize converts intrinsics and nested structs into plain JSON values so
// the template marshals the same way to JSON and YAML.
func normalize[T any](v T) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

// ToJSON serializes the template to JSON.
func ToJSON(t *wetwire.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *wetwire.Template) ([]byte, error) {
	return yaml.Marshal(t)
}

// FromJSON parses a template, as written by ToJSON.
func FromJSON(data []byte) (*wetwire.Template, error) {
	var t wetwire.Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

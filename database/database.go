// Package database declares an Aurora Serverless v2 MySQL cluster and, when
// requested, the RDS Proxy chain that brokers credentials for it.
//
// New adds the nodes to a stack in this order: subnet group, cluster, cluster
// instance and, for Brokered access, the proxy role, secrets policy, policy
// attachment, proxy, default target group and target. Every node carries the
// edges it needs, so any engine that honors the graph creates them in a valid
// order.
package database

import (
	"errors"
	"fmt"
	"maps"

	"github.com/lex00/wetwire-aurora-go/internal/validation"
	"github.com/lex00/wetwire-aurora-go/pending"
	"github.com/lex00/wetwire-aurora-go/stack"
)

// Defaults applied to unset ClusterSpec fields.
const (
	DefaultEngine            = "aurora-mysql"
	DefaultEngineVersion     = "8.0.mysql_aurora.3.02.0"
	DefaultRetentionDays     = 7
	DefaultMaintenanceWindow = "Mon:02:00-Mon:04:00"
	DefaultMinCapacity       = 0.5
	DefaultMaxCapacity       = 1.0

	EngineMode    = "provisioned"
	InstanceClass = "db.serverless"
)

var (
	// ErrInvalidSpec wraps every ClusterSpec validation failure.
	ErrInvalidSpec = errors.New("invalid cluster spec")

	// ErrSnapshotPolicy reports a final-snapshot name and skip flag that disagree.
	ErrSnapshotPolicy = errors.New("final snapshot identifier and skip flag disagree")

	// ErrMissingSecret reports Brokered access without a secret ARN.
	ErrMissingSecret = errors.New("brokered access requires a secret ARN")
)

// ClusterSpec describes one cluster.
type ClusterSpec struct {
	Description string `validate:"required"`
	Tags        map[string]string

	SubnetIDs         []pending.String `validate:"min=1"`
	AvailabilityZones []string
	SecurityGroupIDs  []pending.String

	Engine        string
	EngineVersion string

	MasterUsername string `validate:"required"`
	MasterPassword pending.Secret
	DatabaseName   string `validate:"required"`

	Scaling Scaling
	Backup  BackupPolicy

	ClusterParameterGroupName string

	// Access selects Direct or Brokered; nil means Direct.
	Access Access `validate:"-"`
}

// Scaling is the Serverless v2 capacity range in ACUs.
type Scaling struct {
	Min float64 `validate:"gte=0"`
	Max float64 `validate:"gte=0"`
}

// BackupPolicy holds retention and final snapshot settings.
//
// A final snapshot is either configured (identifier set, skip false) or not
// (no identifier, skip true). SkipFinalSnapshot may be left nil, in which case
// it follows the identifier.
type BackupPolicy struct {
	RetentionDays           int `validate:"gte=0"`
	MaintenanceWindow       string
	FinalSnapshotIdentifier string
	SkipFinalSnapshot       *bool
}

// AdminRole is the shared administrative service role attached to every
// cluster. It is resolved once by the caller and passed in.
type AdminRole struct {
	ARN pending.String
}

// Access selects how clients reach the cluster.
type Access interface {
	isAccess()
}

// Direct clients connect to the cluster endpoints.
type Direct struct{}

// Brokered clients connect through an RDS Proxy.
type Brokered struct {
	Proxy ProxyConfig
}

func (Direct) isAccess()   {}
func (Brokered) isAccess() {}

// ProxyConfig configures the RDS Proxy.
type ProxyConfig struct {
	// IAM requires IAM authentication from clients.
	IAM bool
	// SecretARN is the Secrets Manager secret the proxy authenticates with.
	SecretARN string `validate:"required"`
}

// ProxySpec is the flag-style proxy configuration read from stack config.
type ProxySpec struct {
	Enabled   bool   `mapstructure:"enabled"`
	IAM       bool   `mapstructure:"iam"`
	SecretARN string `mapstructure:"secretArn"`
}

// Access converts the flags into the access variant.
func (p ProxySpec) Access() Access {
	if !p.Enabled {
		return Direct{}
	}
	return Brokered{Proxy: ProxyConfig{IAM: p.IAM, SecretARN: p.SecretARN}}
}

// Node name suffixes, appended to the component name.
const (
	SuffixSubnetGroup     = "-subnet-group"
	SuffixCluster         = "-cluster"
	SuffixInstance        = "-clusterInstance"
	SuffixProxyRole       = "-rds-proxy-role"
	SuffixProxyPolicy     = "-rds-proxy-policy"
	SuffixProxyAttachment = "-rds-proxy-attachment"
	SuffixProxy           = "-proxy"
	SuffixTargetGroup     = "-rds-proxy-target-group"
	SuffixTarget          = "-rds-proxy-target"
)

// Cluster is the declared component. Its accessors return deferred values
// that resolve once the owning node has been created.
type Cluster struct {
	name   string
	access Access

	subnetGroup string
	cluster     string
	instance    string
	chain       *BrokerChain
}

// BrokerChain holds the node names of the proxy chain.
type BrokerChain struct {
	Role        string
	Policy      string
	Attachment  string
	Proxy       string
	TargetGroup string
	Target      string
}

// Names returns the chain in creation order.
func (b BrokerChain) Names() []string {
	return []string{b.Role, b.Policy, b.Attachment, b.Proxy, b.TargetGroup, b.Target}
}

// New validates spec, applies defaults and declares the component on s.
func New(s *stack.Stack, name string, spec ClusterSpec, admin AdminRole) (*Cluster, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidSpec)
	}
	resolved, err := resolve(spec, admin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	c := &Cluster{name: name, access: resolved.Access}

	if c.subnetGroup, err = addSubnetGroup(s, name, resolved); err != nil {
		return nil, err
	}
	if c.cluster, err = addCluster(s, name, c.subnetGroup, resolved, admin); err != nil {
		return nil, err
	}
	if c.instance, err = addInstance(s, name, c.cluster, resolved); err != nil {
		return nil, err
	}

	switch access := resolved.Access.(type) {
	case Brokered:
		chain, err := addBrokerChain(s, name, c, resolved, access.Proxy)
		if err != nil {
			return nil, err
		}
		c.chain = chain
	case Direct:
	}

	return c, nil
}

// Name returns the component name.
func (c *Cluster) Name() string {
	return c.name
}

// Access returns the resolved access mode.
func (c *Cluster) Access() Access {
	return c.access
}

// Nodes returns the names of every node the component declared, in order.
func (c *Cluster) Nodes() []string {
	nodes := []string{c.subnetGroup, c.cluster, c.instance}
	if c.chain != nil {
		nodes = append(nodes, c.chain.Names()...)
	}
	return nodes
}

// BrokerChain returns the proxy chain node names, or false under Direct access.
func (c *Cluster) BrokerChain() (BrokerChain, bool) {
	if c.chain == nil {
		return BrokerChain{}, false
	}
	return *c.chain, true
}

// resolve validates the ClusterSpec and fills in defaults.
func resolve(spec ClusterSpec, admin AdminRole) (ClusterSpec, error) {
	if err := validation.Struct(spec); err != nil {
		return spec, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if spec.MasterPassword.IsZero() {
		return spec, fmt.Errorf("%w: field 'MasterPassword' is required", ErrInvalidSpec)
	}
	if admin.ARN.IsZero() {
		return spec, fmt.Errorf("%w: admin role ARN is required", ErrInvalidSpec)
	}

	if spec.Engine == "" {
		spec.Engine = DefaultEngine
	}
	if spec.EngineVersion == "" {
		spec.EngineVersion = DefaultEngineVersion
	}
	if spec.Scaling.Min == 0 {
		spec.Scaling.Min = DefaultMinCapacity
	}
	if spec.Scaling.Max == 0 {
		spec.Scaling.Max = DefaultMaxCapacity
	}
	if spec.Scaling.Min > spec.Scaling.Max {
		return spec, fmt.Errorf("%w: scaling min %.1f exceeds max %.1f", ErrInvalidSpec, spec.Scaling.Min, spec.Scaling.Max)
	}
	if spec.Backup.RetentionDays == 0 {
		spec.Backup.RetentionDays = DefaultRetentionDays
	}
	if spec.Backup.MaintenanceWindow == "" {
		spec.Backup.MaintenanceWindow = DefaultMaintenanceWindow
	}

	skip, err := snapshotPolicy(spec.Backup)
	if err != nil {
		return spec, err
	}
	spec.Backup.SkipFinalSnapshot = &skip

	if spec.Access == nil {
		spec.Access = Direct{}
	}
	if b, ok := spec.Access.(Brokered); ok {
		if err := validation.Struct(b.Proxy); err != nil {
			return spec, fmt.Errorf("%w: %w", ErrInvalidSpec, ErrMissingSecret)
		}
	}

	spec.Tags = maps.Clone(spec.Tags)
	return spec, nil
}

// snapshotPolicy returns the effective skip flag.
func snapshotPolicy(b BackupPolicy) (bool, error) {
	named := b.FinalSnapshotIdentifier != ""
	if b.SkipFinalSnapshot == nil {
		return !named, nil
	}
	skip := *b.SkipFinalSnapshot
	if named == skip {
		return false, fmt.Errorf("%w: %w (identifier %q, skip %t)",
			ErrInvalidSpec, ErrSnapshotPolicy, b.FinalSnapshotIdentifier, skip)
	}
	return skip, nil
}

// withName merges the base tags with a Name tag.
func withName(base map[string]string, name string) map[string]string {
	tags := maps.Clone(base)
	if tags == nil {
		tags = make(map[string]string)
	}
	tags["Name"] = name
	return tags
}

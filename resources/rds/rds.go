// Package rds contains the property types for the Amazon RDS resources used by an
// Aurora cluster and its RDS Proxy.
//
// Field json names follow the provider property names, so the same struct feeds
// the Pulumi YAML renderer and the local engine directly.
package rds

import (
	"github.com/lex00/wetwire-aurora-go/pending"
)

// Resource type tokens.
const (
	TypeSubnetGroup             = "rds.SubnetGroup"
	TypeCluster                 = "rds.Cluster"
	TypeClusterInstance         = "rds.ClusterInstance"
	TypeProxy                   = "rds.Proxy"
	TypeProxyDefaultTargetGroup = "rds.ProxyDefaultTargetGroup"
	TypeProxyTarget             = "rds.ProxyTarget"
)

// Output attribute names.
const (
	AttrID             = "id"
	AttrName           = "name"
	AttrArn            = "arn"
	AttrEndpoint       = "endpoint"
	AttrReaderEndpoint = "readerEndpoint"
	AttrEngineVersion  = "engineVersion"
	AttrPort           = "port"
)

// SubnetGroup is an aws:rds:SubnetGroup.
type SubnetGroup struct {
	Description string            `json:"description,omitempty"`
	SubnetIDs   []pending.String  `json:"subnetIds,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// ResourceType implements wetwire.Resource.
func (SubnetGroup) ResourceType() string { return TypeSubnetGroup }

// ScalingConfiguration is the Aurora Serverless v2 capacity range in ACUs.
type ScalingConfiguration struct {
	MinCapacity float64 `json:"minCapacity"`
	MaxCapacity float64 `json:"maxCapacity"`
}

// Cluster is an aws:rds:Cluster.
type Cluster struct {
	ClusterIdentifier                string                `json:"clusterIdentifier,omitempty"`
	Engine                           string                `json:"engine,omitempty"`
	EngineMode                       string                `json:"engineMode,omitempty"`
	EngineVersion                    string                `json:"engineVersion,omitempty"`
	DatabaseName                     string                `json:"databaseName,omitempty"`
	MasterUsername                   string                `json:"masterUsername,omitempty"`
	MasterPassword                   pending.Secret        `json:"masterPassword,omitempty"`
	Serverlessv2ScalingConfiguration *ScalingConfiguration `json:"serverlessv2ScalingConfiguration,omitempty"`
	IAMRoles                         []pending.String      `json:"iamRoles,omitempty"`
	VpcSecurityGroupIDs              []pending.String      `json:"vpcSecurityGroupIds,omitempty"`
	DBSubnetGroupName                pending.String        `json:"dbSubnetGroupName,omitempty"`
	DBClusterParameterGroupName      string                `json:"dbClusterParameterGroupName,omitempty"`
	AvailabilityZones                []string              `json:"availabilityZones,omitempty"`
	BackupRetentionPeriod            int                   `json:"backupRetentionPeriod,omitempty"`
	PreferredMaintenanceWindow       string                `json:"preferredMaintenanceWindow,omitempty"`
	FinalSnapshotIdentifier          string                `json:"finalSnapshotIdentifier,omitempty"`
	SkipFinalSnapshot                *bool                 `json:"skipFinalSnapshot,omitempty"`
	CopyTagsToSnapshot               bool                  `json:"copyTagsToSnapshot,omitempty"`
	Tags                             map[string]string     `json:"tags,omitempty"`
}

// ResourceType implements wetwire.Resource.
func (Cluster) ResourceType() string { return TypeCluster }

// ClusterInstance is an aws:rds:ClusterInstance.
type ClusterInstance struct {
	ClusterIdentifier pending.String    `json:"clusterIdentifier,omitempty"`
	InstanceClass     string            `json:"instanceClass,omitempty"`
	Engine            string            `json:"engine,omitempty"`
	EngineVersion     pending.String    `json:"engineVersion,omitempty"`
	Tags              map[string]string `json:"tags,omitempty"`
}

// ResourceType implements wetwire.Resource.
func (ClusterInstance) ResourceType() string { return TypeClusterInstance }

// ProxyAuth is one authentication entry of a proxy.
type ProxyAuth struct {
	AuthScheme  string         `json:"authScheme,omitempty"`
	Description string         `json:"description,omitempty"`
	IAMAuth     string         `json:"iamAuth,omitempty"`
	SecretArn   pending.String `json:"secretArn,omitempty"`
}

// Proxy is an aws:rds:Proxy.
type Proxy struct {
	Name                string            `json:"name,omitempty"`
	EngineFamily        string            `json:"engineFamily,omitempty"`
	RoleArn             pending.String    `json:"roleArn,omitempty"`
	RequireTLS          bool              `json:"requireTls,omitempty"`
	DebugLogging        *bool             `json:"debugLogging,omitempty"`
	IdleClientTimeout   int               `json:"idleClientTimeout,omitempty"`
	Auths               []ProxyAuth       `json:"auths,omitempty"`
	VpcSubnetIDs        []pending.String  `json:"vpcSubnetIds,omitempty"`
	VpcSecurityGroupIDs []pending.String  `json:"vpcSecurityGroupIds,omitempty"`
	Tags                map[string]string `json:"tags,omitempty"`
}

// ResourceType implements wetwire.Resource.
func (Proxy) ResourceType() string { return TypeProxy }

// ConnectionPoolConfig tunes how the proxy shares database connections.
type ConnectionPoolConfig struct {
	ConnectionBorrowTimeout   int `json:"connectionBorrowTimeout,omitempty"`
	MaxConnectionsPercent     int `json:"maxConnectionsPercent,omitempty"`
	MaxIdleConnectionsPercent int `json:"maxIdleConnectionsPercent,omitempty"`
}

// ProxyDefaultTargetGroup is an aws:rds:ProxyDefaultTargetGroup.
type ProxyDefaultTargetGroup struct {
	DBProxyName          pending.String        `json:"dbProxyName,omitempty"`
	ConnectionPoolConfig *ConnectionPoolConfig `json:"connectionPoolConfig,omitempty"`
}

// ResourceType implements wetwire.Resource.
func (ProxyDefaultTargetGroup) ResourceType() string { return TypeProxyDefaultTargetGroup }

// ProxyTarget is an aws:rds:ProxyTarget.
type ProxyTarget struct {
	DBClusterIdentifier pending.String `json:"dbClusterIdentifier,omitempty"`
	DBProxyName         pending.String `json:"dbProxyName,omitempty"`
	TargetGroupName     pending.String `json:"targetGroupName,omitempty"`
}

// ResourceType implements wetwire.Resource.
func (ProxyTarget) ResourceType() string { return TypeProxyTarget }

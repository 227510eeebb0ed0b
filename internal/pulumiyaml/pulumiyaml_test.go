package pulumiyaml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lex00/wetwire-aurora-go/database"
	"github.com/lex00/wetwire-aurora-go/pending"
	"github.com/lex00/wetwire-aurora-go/stack"
)

func declare(t *testing.T, access database.Access) *stack.Stack {
	t.Helper()
	s := stack.New("dev")
	c, err := database.New(s, "demo-db", database.ClusterSpec{
		Description:    "Demo",
		Tags:           map[string]string{"Project": "Demo"},
		SubnetIDs:      pending.Strings("subnet-a", "subnet-b"),
		MasterUsername: "admin",
		MasterPassword: pending.NewSecret("dbPassword", "s3cret"),
		DatabaseName:   "demo",
		Access:         access,
	}, database.AdminRole{ARN: pending.Known("arn:role")})
	require.NoError(t, err)
	require.NoError(t, c.Export(s))
	return s
}

func TestBuild_Direct(t *testing.T) {
	p, err := Build(declare(t, database.Direct{}))
	require.NoError(t, err)

	assert.Equal(t, "dev", p.Name)
	assert.Equal(t, "yaml", p.Runtime)
	assert.Len(t, p.Resources, 3)
	assert.Equal(t, map[string]ConfigVar{"dbPassword": {Type: "string", Secret: true}}, p.Config)

	cluster := p.Resources["demoDbCluster"]
	assert.Equal(t, "aws:rds:Cluster", cluster.Type)
	assert.Equal(t, "demo-db-cluster", cluster.Name)
	assert.Equal(t, "${dbPassword}", cluster.Properties["masterPassword"])
	assert.Equal(t, "${demoDbSubnetGroup.name}", cluster.Properties["dbSubnetGroupName"])
	assert.Equal(t, []any{"arn:role"}, cluster.Properties["iamRoles"])
	assert.Equal(t, "demo-db", cluster.Properties["clusterIdentifier"])
	assert.Nil(t, cluster.Options)

	instance := p.Resources["demoDbClusterInstance"]
	assert.Equal(t, "aws:rds:ClusterInstance", instance.Type)
	assert.Equal(t, "${demoDbCluster.id}", instance.Properties["clusterIdentifier"])
	assert.Equal(t, "${demoDbCluster.engineVersion}", instance.Properties["engineVersion"])

	assert.Equal(t, "${demoDbCluster.endpoint}", p.Outputs["clusterEndpoint"])
	assert.Equal(t, "${demoDbClusterInstance.port}", p.Outputs["dbPort"])
	assert.NotContains(t, p.Outputs, "proxyEndpoint")
}

func TestBuild_Brokered(t *testing.T) {
	p, err := Build(declare(t, database.Brokered{Proxy: database.ProxyConfig{IAM: true, SecretARN: "arn:secret:1"}}))
	require.NoError(t, err)

	assert.Len(t, p.Resources, 9)

	role := p.Resources["demoDbRdsProxyRole"]
	assert.Equal(t, "aws:iam:Role", role.Type)
	assert.Contains(t, role.Properties["assumeRolePolicy"], "fn::toJSON")

	policy := p.Resources["demoDbRdsProxyPolicy"]
	assert.Equal(t, "aws:iam:Policy", policy.Type)
	assert.Equal(t, []string{"${demoDbRdsProxyRole}"}, policy.Options.DependsOn)

	attachment := p.Resources["demoDbRdsProxyAttachment"]
	assert.Equal(t, "aws:iam:RolePolicyAttachment", attachment.Type)
	assert.Equal(t, "${demoDbRdsProxyRole.name}", attachment.Properties["role"])
	assert.Equal(t, "${demoDbRdsProxyPolicy.arn}", attachment.Properties["policyArn"])

	proxy := p.Resources["demoDbProxy"]
	assert.Equal(t, "aws:rds:Proxy", proxy.Type)
	assert.Equal(t, "${demoDbRdsProxyRole.arn}", proxy.Properties["roleArn"])
	assert.Equal(t, false, proxy.Properties["debugLogging"])
	assert.Equal(t, []string{"${demoDbRdsProxyAttachment}", "${demoDbRdsProxyPolicy}"}, proxy.Options.DependsOn)

	tg := p.Resources["demoDbRdsProxyTargetGroup"]
	assert.Equal(t, []string{"${demoDbCluster}"}, tg.Options.DependsOn)

	target := p.Resources["demoDbRdsProxyTarget"]
	assert.Equal(t, "aws:rds:ProxyTarget", target.Type)
	assert.Equal(t, "${demoDbRdsProxyTargetGroup.name}", target.Properties["targetGroupName"])
	assert.Equal(t, []string{"${demoDbClusterInstance}"}, target.Options.DependsOn)

	assert.Equal(t, "${demoDbProxy.endpoint}", p.Outputs["proxyEndpoint"])
}

func TestToYAML(t *testing.T) {
	p, err := Build(declare(t, database.Brokered{Proxy: database.ProxyConfig{SecretARN: "arn:secret:1"}}))
	require.NoError(t, err)

	data, err := ToYAML(p)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s3cret")
	assert.Contains(t, string(data), "runtime: yaml")
	assert.Contains(t, string(data), "type: aws:rds:ProxyDefaultTargetGroup")

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "resources")
}

type unknownResource struct{}

func (unknownResource) ResourceType() string { return "s3.Bucket" }

func TestBuild_UnknownType(t *testing.T) {
	s := stack.New("dev")
	_, err := s.Add("bucket", unknownResource{})
	require.NoError(t, err)

	_, err = Build(s)
	assert.ErrorContains(t, err, "unknown resource type")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "demoDbClusterInstance", Key("demo-db-clusterInstance"))
	assert.Equal(t, "demoDbRdsProxyTarget", Key("demo-db-rds-proxy-target"))
}

package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/lex00/wetwire-aurora-go/resources/iam"
	"github.com/lex00/wetwire-aurora-go/resources/rds"
	"github.com/lex00/wetwire-aurora-go/stack"
)

var brokerTypes = map[string]bool{
	iam.TypeRole:                    true,
	iam.TypePolicy:                  true,
	iam.TypeRolePolicyAttachment:    true,
	rds.TypeProxy:                   true,
	rds.TypeProxyDefaultTargetGroup: true,
	rds.TypeProxyTarget:             true,
}

func drawSpec(t *rapid.T) ClusterSpec {
	spec := baseSpec()
	spec.Engine = rapid.SampledFrom([]string{"", "aurora-mysql"}).Draw(t, "engine")
	spec.Backup.RetentionDays = rapid.IntRange(0, 35).Draw(t, "retention")
	if rapid.Bool().Draw(t, "enabled") {
		spec.Access = brokered(rapid.Bool().Draw(t, "iam"))
	} else if rapid.Bool().Draw(t, "explicitDirect") {
		spec.Access = Direct{}
	}
	return spec
}

func TestProperty_DirectHasNoBrokerEntities(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		spec := drawSpec(t)
		spec.Access = ProxySpec{
			Enabled:   false,
			IAM:       rapid.Bool().Draw(t, "iam"),
			SecretARN: rapid.SampledFrom([]string{"", "arn:secret:1"}).Draw(t, "secret"),
		}.Access()

		s := stack.New("dev")
		c, err := New(s, "demo-db", spec, admin())
		require.NoError(t, err)
		require.NoError(t, c.Export(s))

		for _, node := range s.Resources() {
			assert.False(t, brokerTypes[node.Type()], "unexpected broker entity %s", node.Name)
		}
		_, ok := c.ProxyEndpoint()
		assert.False(t, ok)
		for _, o := range s.Outputs() {
			assert.NotEqual(t, OutputProxyEndpoint, o.Name)
		}
	})
}

func TestProperty_IAMAuthMode(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		iamFlag := rapid.Bool().Draw(t, "iam")
		spec := drawSpec(t)
		spec.Access = ProxySpec{Enabled: true, IAM: iamFlag, SecretARN: "arn:secret:1"}.Access()

		s := stack.New("dev")
		c, err := New(s, "demo-db", spec, admin())
		require.NoError(t, err)

		chain, ok := c.BrokerChain()
		require.True(t, ok)
		node, _ := s.Resource(chain.Proxy)
		proxy := node.Properties.(rds.Proxy)

		want := "DISABLED"
		if iamFlag {
			want = "REQUIRED"
		}
		assert.Equal(t, want, proxy.Auths[0].IAMAuth)

		count := 0
		for _, n := range s.Resources() {
			if brokerTypes[n.Type()] {
				count++
			}
		}
		assert.Equal(t, 6, count)
	})
}

func TestProperty_GraphIsDAG(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := stack.New("dev")
		_, err := New(s, "demo-db", drawSpec(t), admin())
		require.NoError(t, err)

		order, err := s.TopologicalOrder()
		require.NoError(t, err)
		position := make(map[string]int, len(order))
		for i, name := range order {
			position[name] = i
		}
		for _, node := range s.Resources() {
			for _, dep := range node.Dependencies() {
				assert.Less(t, position[dep], position[node.Name], "%s before %s", dep, node.Name)
			}
		}
	})
}

func TestProperty_DefaultsAreStable(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		spec := drawSpec(t)

		first, second := stack.New("dev"), stack.New("dev")
		_, err := New(first, "demo-db", spec, admin())
		require.NoError(t, err)
		_, err = New(second, "demo-db", spec, admin())
		require.NoError(t, err)

		a, _ := first.Resource("demo-db-cluster")
		b, _ := second.Resource("demo-db-cluster")
		clusterA := a.Properties.(rds.Cluster)
		clusterB := b.Properties.(rds.Cluster)

		assert.Equal(t, "aurora-mysql", clusterA.Engine)
		if spec.Backup.RetentionDays == 0 {
			assert.Equal(t, 7, clusterA.BackupRetentionPeriod)
		} else {
			assert.Equal(t, spec.Backup.RetentionDays, clusterA.BackupRetentionPeriod)
		}
		assert.Equal(t, clusterA.Engine, clusterB.Engine)
		assert.Equal(t, clusterA.EngineVersion, clusterB.EngineVersion)
		assert.Equal(t, clusterA.BackupRetentionPeriod, clusterB.BackupRetentionPeriod)
	})
}

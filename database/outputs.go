package database

import (
	"strconv"

	"github.com/lex00/wetwire-aurora-go/pending"
	"github.com/lex00/wetwire-aurora-go/resources/rds"
	"github.com/lex00/wetwire-aurora-go/stack"
)

// ClusterEndpoint is the writer endpoint.
func (c *Cluster) ClusterEndpoint() pending.String {
	return pending.Of[string](c.cluster, rds.AttrEndpoint)
}

// ClusterReaderEndpoint is the load-balanced reader endpoint.
func (c *Cluster) ClusterReaderEndpoint() pending.String {
	return pending.Of[string](c.cluster, rds.AttrReaderEndpoint)
}

// ClusterID is the cluster identifier assigned by the provider.
func (c *Cluster) ClusterID() pending.String {
	return pending.Of[string](c.cluster, rds.AttrID)
}

// EngineVersion is the engine version the cluster reports.
func (c *Cluster) EngineVersion() pending.String {
	return pending.Of[string](c.cluster, rds.AttrEngineVersion)
}

// InstanceEndpoint is the endpoint of the writer instance.
func (c *Cluster) InstanceEndpoint() pending.String {
	return pending.Of[string](c.instance, rds.AttrEndpoint)
}

// InstancePort is the instance port as a string.
func (c *Cluster) InstancePort() pending.String {
	return pending.Apply(pending.Of[int](c.instance, rds.AttrPort), func(p int) (string, error) {
		return strconv.Itoa(p), nil
	})
}

// InstanceID is the instance identifier.
func (c *Cluster) InstanceID() pending.String {
	return pending.Of[string](c.instance, rds.AttrID)
}

// ProxyEndpoint is the proxy endpoint. ok is false under Direct access.
func (c *Cluster) ProxyEndpoint() (endpoint pending.String, ok bool) {
	if c.chain == nil {
		return pending.String{}, false
	}
	return pending.Of[string](c.chain.Proxy, rds.AttrEndpoint), true
}

// Output names used by Export.
const (
	OutputClusterEndpoint       = "clusterEndpoint"
	OutputClusterReaderEndpoint = "clusterReaderEndpoint"
	OutputDBEndpoint            = "dbEndpoint"
	OutputDBPort                = "dbPort"
	OutputDBID                  = "dbId"
	OutputProxyEndpoint         = "proxyEndpoint"

	// Exported by programs alongside the component outputs.
	OutputDBName     = "dbName"
	OutputDBUsername = "dbUsername"
)

// Export records the component's outputs on the stack. proxyEndpoint is only
// exported under Brokered access.
func (c *Cluster) Export(s *stack.Stack) error {
	type export struct {
		name, desc string
		value      pending.String
	}
	outputs := []export{
		{OutputClusterEndpoint, "Cluster writer endpoint", c.ClusterEndpoint()},
		{OutputClusterReaderEndpoint, "Cluster reader endpoint", c.ClusterReaderEndpoint()},
		{OutputDBEndpoint, "Writer instance endpoint", c.InstanceEndpoint()},
		{OutputDBPort, "Writer instance port", c.InstancePort()},
		{OutputDBID, "Writer instance identifier", c.InstanceID()},
	}
	if proxy, ok := c.ProxyEndpoint(); ok {
		outputs = append(outputs, export{OutputProxyEndpoint, "RDS Proxy endpoint", proxy})
	}
	for _, o := range outputs {
		if err := s.Export(o.name, o.desc, o.value); err != nil {
			return err
		}
	}
	return nil
}

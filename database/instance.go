package database

import (
	"github.com/lex00/wetwire-aurora-go/pending"
	"github.com/lex00/wetwire-aurora-go/resources/rds"
	"github.com/lex00/wetwire-aurora-go/stack"
)

// addInstance attaches one serverless writer instance. Its engine version is
// read from the created cluster rather than copied from the ClusterSpec.
func addInstance(s *stack.Stack, name, cluster string, spec ClusterSpec) (string, error) {
	nodeName := name + SuffixInstance
	_, err := s.Add(nodeName, rds.ClusterInstance{
		ClusterIdentifier: pending.Of[string](cluster, rds.AttrID),
		InstanceClass:     InstanceClass,
		Engine:            spec.Engine,
		EngineVersion:     pending.Of[string](cluster, rds.AttrEngineVersion),
	}, stack.Parent(name))
	return nodeName, err
}

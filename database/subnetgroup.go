package database

import (
	"github.com/lex00/wetwire-aurora-go/resources/rds"
	"github.com/lex00/wetwire-aurora-go/stack"
)

// addSubnetGroup declares the subnet group the cluster is placed in. The subnet
// ids are forwarded as given; zone coverage is checked by the provider.
func addSubnetGroup(s *stack.Stack, name string, spec ClusterSpec) (string, error) {
	nodeName := name + SuffixSubnetGroup
	_, err := s.Add(nodeName, rds.SubnetGroup{
		Description: spec.Description + " Subnet Group",
		SubnetIDs:   spec.SubnetIDs,
		Tags:        withName(spec.Tags, spec.Description+" Subnet Group"),
	}, stack.Parent(name))
	return nodeName, err
}

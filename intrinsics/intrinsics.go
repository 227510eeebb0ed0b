// Package intrinsics provides the CloudFormation intrinsic functions used when a
// resource graph is rendered to a template.
//
// This package re-exports the core intrinsic types from cloudformation-schema-go
// and adds IAM policy-specific types.
//
//	Ref{"DemoDbSubnetGroup"} → {"Ref": "DemoDbSubnetGroup"}
//	GetAtt{"DemoDbCluster", "Endpoint.Address"} → {"Fn::GetAtt": ["DemoDbCluster", "Endpoint.Address"]}
//	Sub{"${AWS::StackName}-ClusterEndpoint"} → {"Fn::Sub": "${AWS::StackName}-ClusterEndpoint"}
package intrinsics

import (
	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// GetAtt represents a CloudFormation Fn::GetAtt intrinsic function.
	GetAtt = intrinsics.GetAtt

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join

	// Tag represents a CloudFormation resource tag.
	Tag = intrinsics.Tag
)

// Param creates a Ref for a CloudFormation parameter.
var Param = intrinsics.Param

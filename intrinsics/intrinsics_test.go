package intrinsics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_MarshalJSON(t *testing.T) {
	ref := Ref{LogicalName: "DemoDbSubnetGroup"}
	data, err := json.Marshal(ref)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ref": "DemoDbSubnetGroup"}`, string(data))
}

func TestGetAtt_MarshalJSON(t *testing.T) {
	getAtt := GetAtt{LogicalName: "DemoDbCluster", Attribute: "Endpoint.Address"}
	data, err := json.Marshal(getAtt)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Fn::GetAtt": ["DemoDbCluster", "Endpoint.Address"]}`, string(data))
}

func TestSub_MarshalJSON(t *testing.T) {
	sub := Sub{String: "${AWS::StackName}-ClusterEndpoint"}
	data, err := json.Marshal(sub)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Fn::Sub": "${AWS::StackName}-ClusterEndpoint"}`, string(data))
}

func TestJoin_MarshalJSON(t *testing.T) {
	join := Join{Delimiter: ",", Values: []any{"subnet-a", "subnet-b"}}
	data, err := json.Marshal(join)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Fn::Join": [",", ["subnet-a", "subnet-b"]]}`, string(data))
}

func TestPseudoParameters(t *testing.T) {
	data, err := json.Marshal(AWS_STACK_NAME)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ref": "AWS::StackName"}`, string(data))

	data, err = json.Marshal(AWS_PARTITION)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ref": "AWS::Partition"}`, string(data))
}

func TestPolicyDocument(t *testing.T) {
	doc := NewPolicyDocument()
	doc.Statement = []any{PolicyStatement{
		Effect:    "Allow",
		Principal: ServicePrincipal{"rds.amazonaws.com"},
		Action:    []any{"sts:AssumeRole"},
	}}

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Version": "2012-10-17",
		"Statement": [{
			"Effect": "Allow",
			"Principal": {"Service": "rds.amazonaws.com"},
			"Action": ["sts:AssumeRole"]
		}]
	}`, string(data))
}

func TestServicePrincipal_Multiple(t *testing.T) {
	data, err := json.Marshal(ServicePrincipal{"rds.amazonaws.com", "ecs-tasks.amazonaws.com"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Service": ["rds.amazonaws.com", "ecs-tasks.amazonaws.com"]}`, string(data))
}

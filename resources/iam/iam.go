// Package iam contains the property types for the IAM resources of the RDS Proxy
// credential chain.
package iam

import (
	"github.com/lex00/wetwire-aurora-go/intrinsics"
	"github.com/lex00/wetwire-aurora-go/pending"
)

// Resource type tokens.
const (
	TypeRole                 = "iam.Role"
	TypePolicy               = "iam.Policy"
	TypeRolePolicyAttachment = "iam.RolePolicyAttachment"
)

// Output attribute names.
const (
	AttrArn  = "arn"
	AttrName = "name"
	AttrID   = "id"
)

// Role is an aws:iam:Role.
type Role struct {
	Path             string                    `json:"path,omitempty"`
	AssumeRolePolicy intrinsics.PolicyDocument `json:"assumeRolePolicy"`
	Tags             map[string]string         `json:"tags,omitempty"`
}

// ResourceType implements wetwire.Resource.
func (Role) ResourceType() string { return TypeRole }

// Policy is an aws:iam:Policy.
type Policy struct {
	Path        string                    `json:"path,omitempty"`
	Description string                    `json:"description,omitempty"`
	Policy      intrinsics.PolicyDocument `json:"policy"`
	Tags        map[string]string         `json:"tags,omitempty"`
}

// ResourceType implements wetwire.Resource.
func (Policy) ResourceType() string { return TypePolicy }

// RolePolicyAttachment is an aws:iam:RolePolicyAttachment.
type RolePolicyAttachment struct {
	Role      pending.String `json:"role,omitempty"`
	PolicyArn pending.String `json:"policyArn,omitempty"`
}

// ResourceType implements wetwire.Resource.
func (RolePolicyAttachment) ResourceType() string { return TypeRolePolicyAttachment }

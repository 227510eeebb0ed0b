package database

import (
	"fmt"

	"github.com/lex00/wetwire-aurora-go/intrinsics"
	"github.com/lex00/wetwire-aurora-go/pending"
	"github.com/lex00/wetwire-aurora-go/resources/iam"
	"github.com/lex00/wetwire-aurora-go/resources/rds"
	"github.com/lex00/wetwire-aurora-go/stack"
)

// Fixed proxy settings.
const (
	ProxyEngineFamily     = "MYSQL"
	ProxyAuthScheme       = "SECRETS"
	IAMAuthRequired       = "REQUIRED"
	IAMAuthDisabled       = "DISABLED"
	IdleClientTimeout     = 1800
	BorrowTimeout         = 120
	MaxConnectionsPercent = 100
	MaxIdlePercent        = 50
	ProxyServicePrincipal = "rds.amazonaws.com"
)

// SecretActions are the Secrets Manager actions granted to the proxy role.
var SecretActions = []string{
	"secretsmanager:GetSecretValue",
	"secretsmanager:GetRandomPassword",
	"secretsmanager:ListSecrets",
}

// IAMAuthMode maps the IAM flag to the proxy auth setting.
func IAMAuthMode(required bool) string {
	if required {
		return IAMAuthRequired
	}
	return IAMAuthDisabled
}

// addBrokerChain declares role, policy, attachment, proxy, target group and
// target. Edges already implied by a reference are not repeated as DependsOn.
func addBrokerChain(s *stack.Stack, name string, c *Cluster, spec ClusterSpec, cfg ProxyConfig) (*BrokerChain, error) {
	chain := &BrokerChain{
		Role:        name + SuffixProxyRole,
		Policy:      name + SuffixProxyPolicy,
		Attachment:  name + SuffixProxyAttachment,
		Proxy:       name + SuffixProxy,
		TargetGroup: name + SuffixTargetGroup,
		Target:      name + SuffixTarget,
	}
	parent := stack.Parent(name)

	if _, err := s.Add(chain.Role, iam.Role{
		Path: "/",
		AssumeRolePolicy: intrinsics.NewPolicyDocument(intrinsics.PolicyStatement{
			Effect:    "Allow",
			Principal: intrinsics.ServicePrincipal{ProxyServicePrincipal},
			Action:    "sts:AssumeRole",
		}),
		Tags: withName(spec.Tags, spec.Description+" RDS Proxy Role"),
	}, parent); err != nil {
		return nil, err
	}

	actions := make([]any, len(SecretActions))
	for i, a := range SecretActions {
		actions[i] = a
	}
	if _, err := s.Add(chain.Policy, iam.Policy{
		Path:        "/",
		Description: "IAM policy to allow the RDS proxy to get secrets from AWS Secret Manager",
		Policy: intrinsics.NewPolicyDocument(intrinsics.PolicyStatement{
			Effect:   "Allow",
			Action:   actions,
			Resource: cfg.SecretARN,
		}),
		Tags: withName(spec.Tags, spec.Description+" RDS Proxy Role"),
	}, parent, stack.DependsOn(chain.Role)); err != nil {
		return nil, err
	}

	if _, err := s.Add(chain.Attachment, iam.RolePolicyAttachment{
		Role:      pending.Of[string](chain.Role, iam.AttrName),
		PolicyArn: pending.Of[string](chain.Policy, iam.AttrArn),
	}, parent); err != nil {
		return nil, err
	}

	debug := false
	if _, err := s.Add(chain.Proxy, rds.Proxy{
		Name:              name,
		EngineFamily:      ProxyEngineFamily,
		RoleArn:           pending.Of[string](chain.Role, iam.AttrArn),
		RequireTLS:        true,
		DebugLogging:      &debug,
		IdleClientTimeout: IdleClientTimeout,
		Auths: []rds.ProxyAuth{{
			AuthScheme:  ProxyAuthScheme,
			Description: fmt.Sprintf("Authentication method used to connect the RDS proxy %s to the Aurora cluster %s", name, name),
			IAMAuth:     IAMAuthMode(cfg.IAM),
			SecretArn:   pending.Known(cfg.SecretARN),
		}},
		VpcSubnetIDs:        spec.SubnetIDs,
		VpcSecurityGroupIDs: spec.SecurityGroupIDs,
		Tags:                withName(spec.Tags, spec.Description+" RDS Proxy"),
	}, parent, stack.DependsOn(chain.Policy, chain.Attachment)); err != nil {
		return nil, err
	}

	if _, err := s.Add(chain.TargetGroup, rds.ProxyDefaultTargetGroup{
		DBProxyName: pending.Of[string](chain.Proxy, rds.AttrName),
		ConnectionPoolConfig: &rds.ConnectionPoolConfig{
			ConnectionBorrowTimeout:   BorrowTimeout,
			MaxConnectionsPercent:     MaxConnectionsPercent,
			MaxIdleConnectionsPercent: MaxIdlePercent,
		},
	}, parent, stack.DependsOn(c.cluster)); err != nil {
		return nil, err
	}

	if _, err := s.Add(chain.Target, rds.ProxyTarget{
		DBClusterIdentifier: pending.Of[string](c.cluster, rds.AttrID),
		DBProxyName:         pending.Of[string](chain.Proxy, rds.AttrName),
		TargetGroupName:     pending.Of[string](chain.TargetGroup, rds.AttrName),
	}, parent, stack.DependsOn(c.instance)); err != nil {
		return nil, err
	}

	return chain, nil
}

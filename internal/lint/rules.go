package lint

import (
	"fmt"

	"github.com/lex00/wetwire-aurora-go/intrinsics"
	"github.com/lex00/wetwire-aurora-go/resources/iam"
	"github.com/lex00/wetwire-aurora-go/resources/rds"
	"github.com/lex00/wetwire-aurora-go/stack"
)

// Rules:
//
//	WAU001: Place the cluster in at least two availability zones
//	WAU002: Give the subnet group at least two subnets
//	WAU003: Keep a final snapshot when the cluster is deleted
//	WAU004: Require IAM authentication on the proxy
//	WAU005: Scope policy statements to specific resources
//	WAU006: Retain backups for at least a week

// AllRules returns every rule with its defaults.
func AllRules() []Rule {
	return []Rule{
		SingleAvailabilityZone{},
		TooFewSubnets{},
		NoFinalSnapshot{},
		ProxyWithoutIAM{},
		WildcardPolicyResource{},
		ShortBackupRetention{MinDays: 7},
	}
}

// each calls fn for every node whose properties are a T.
func each[T any](s *stack.Stack, fn func(name string, props T)) {
	for _, n := range s.Resources() {
		if props, ok := n.Properties.(T); ok {
			fn(n.Name, props)
		}
	}
}

// SingleAvailabilityZone flags clusters pinned to fewer than two zones. The
// provider rejects them at create time.
type SingleAvailabilityZone struct{}

func (r SingleAvailabilityZone) ID() string { return "WAU001" }
func (r SingleAvailabilityZone) Description() string {
	return "Place the cluster in at least two availability zones"
}

func (r SingleAvailabilityZone) Check(s *stack.Stack) []Issue {
	var issues []Issue
	each(s, func(name string, c rds.Cluster) {
		if n := len(c.AvailabilityZones); n == 1 {
			issues = append(issues, Issue{
				Rule:       r.ID(),
				Severity:   SeverityWarning,
				Resource:   name,
				Message:    fmt.Sprintf("cluster lists only availability zone %s", c.AvailabilityZones[0]),
				Suggestion: "List two or more zones, or none to let RDS choose",
			})
		}
	})
	return issues
}

// TooFewSubnets flags subnet groups that cannot span two zones.
type TooFewSubnets struct{}

func (r TooFewSubnets) ID() string          { return "WAU002" }
func (r TooFewSubnets) Description() string { return "Give the subnet group at least two subnets" }

func (r TooFewSubnets) Check(s *stack.Stack) []Issue {
	var issues []Issue
	each(s, func(name string, g rds.SubnetGroup) {
		if len(g.SubnetIDs) < 2 {
			issues = append(issues, Issue{
				Rule:       r.ID(),
				Severity:   SeverityWarning,
				Resource:   name,
				Message:    fmt.Sprintf("subnet group has %d subnet(s)", len(g.SubnetIDs)),
				Suggestion: "Use private subnets in two or more availability zones",
			})
		}
	})
	return issues
}

// NoFinalSnapshot notes clusters that are deleted without a snapshot.
type NoFinalSnapshot struct{}

func (r NoFinalSnapshot) ID() string { return "WAU003" }
func (r NoFinalSnapshot) Description() string {
	return "Keep a final snapshot when the cluster is deleted"
}

func (r NoFinalSnapshot) Check(s *stack.Stack) []Issue {
	var issues []Issue
	each(s, func(name string, c rds.Cluster) {
		if c.SkipFinalSnapshot != nil && *c.SkipFinalSnapshot {
			issues = append(issues, Issue{
				Rule:       r.ID(),
				Severity:   SeverityInfo,
				Resource:   name,
				Message:    "deleting the cluster discards its data",
				Suggestion: "Set finalSnapshotIdentifier",
			})
		}
	})
	return issues
}

// ProxyWithoutIAM notes proxies that accept secret-based logins from clients.
type ProxyWithoutIAM struct{}

func (r ProxyWithoutIAM) ID() string          { return "WAU004" }
func (r ProxyWithoutIAM) Description() string { return "Require IAM authentication on the proxy" }

func (r ProxyWithoutIAM) Check(s *stack.Stack) []Issue {
	var issues []Issue
	each(s, func(name string, p rds.Proxy) {
		for _, auth := range p.Auths {
			if auth.IAMAuth != "REQUIRED" {
				issues = append(issues, Issue{
					Rule:       r.ID(),
					Severity:   SeverityInfo,
					Resource:   name,
					Message:    "clients may log in with the database password",
					Suggestion: "Set proxy.iam to true",
				})
				return
			}
		}
	})
	return issues
}

// WildcardPolicyResource flags policy statements granting on every resource.
type WildcardPolicyResource struct{}

func (r WildcardPolicyResource) ID() string { return "WAU005" }
func (r WildcardPolicyResource) Description() string {
	return "Scope policy statements to specific resources"
}

func (r WildcardPolicyResource) Check(s *stack.Stack) []Issue {
	var issues []Issue
	each(s, func(name string, p iam.Policy) {
		for _, stmt := range p.Policy.Statement {
			if st, ok := stmt.(intrinsics.PolicyStatement); ok && wildcard(st.Resource) {
				issues = append(issues, Issue{
					Rule:       r.ID(),
					Severity:   SeverityError,
					Resource:   name,
					Message:    fmt.Sprintf("statement grants %v on every resource", st.Action),
					Suggestion: "Set secretArn so the policy names the secret",
				})
			}
		}
	})
	return issues
}

func wildcard(resource any) bool {
	switch v := resource.(type) {
	case nil:
		return true
	case string:
		return v == "*"
	case []any:
		for _, item := range v {
			if item == "*" {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if item == "*" {
				return true
			}
		}
	}
	return false
}

// ShortBackupRetention notes clusters keeping backups for less than MinDays.
type ShortBackupRetention struct {
	MinDays int
}

func (r ShortBackupRetention) ID() string          { return "WAU006" }
func (r ShortBackupRetention) Description() string { return "Retain backups for at least a week" }

func (r ShortBackupRetention) Check(s *stack.Stack) []Issue {
	var issues []Issue
	each(s, func(name string, c rds.Cluster) {
		if c.BackupRetentionPeriod > 0 && c.BackupRetentionPeriod < r.MinDays {
			issues = append(issues, Issue{
				Rule:       r.ID(),
				Severity:   SeverityInfo,
				Resource:   name,
				Message:    fmt.Sprintf("backups are kept for %d day(s)", c.BackupRetentionPeriod),
				Suggestion: fmt.Sprintf("Set retentionDays to %d or more", r.MinDays),
			})
		}
	})
	return issues
}

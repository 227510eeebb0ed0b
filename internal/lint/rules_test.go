package lint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-aurora-go/database"
	"github.com/lex00/wetwire-aurora-go/intrinsics"
	"github.com/lex00/wetwire-aurora-go/pending"
	"github.com/lex00/wetwire-aurora-go/resources/iam"
	"github.com/lex00/wetwire-aurora-go/stack"
)

func spec() database.ClusterSpec {
	return database.ClusterSpec{
		Description:       "Demo",
		SubnetIDs:         pending.Strings("subnet-a", "subnet-b"),
		AvailabilityZones: []string{"ap-southeast-1a", "ap-southeast-1b"},
		MasterUsername:    "admin",
		MasterPassword:    pending.NewSecret("dbPassword", "pw"),
		DatabaseName:      "demo",
		Backup:            database.BackupPolicy{FinalSnapshotIdentifier: "demo-final"},
		Access:            database.Brokered{Proxy: database.ProxyConfig{IAM: true, SecretARN: "arn:secret:1"}},
	}
}

func declare(t *testing.T, spec database.ClusterSpec) *stack.Stack {
	t.Helper()
	s := stack.New("dev")
	_, err := database.New(s, "demo-db", spec, database.AdminRole{ARN: pending.Known("arn:aws:iam::123456789012:role/admin")})
	require.NoError(t, err)
	return s
}

func rules(issues []Issue) []string {
	var ids []string
	for _, i := range issues {
		ids = append(ids, i.Rule)
	}
	return ids
}

func TestLint_Clean(t *testing.T) {
	result := Lint(declare(t, spec()), Options{})
	assert.True(t, result.Success)
	assert.Empty(t, result.Issues)
}

func TestLint_Findings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*database.ClusterSpec)
		want   []string
	}{
		{
			name:   "single zone",
			mutate: func(s *database.ClusterSpec) { s.AvailabilityZones = []string{"ap-southeast-1a"} },
			want:   []string{"WAU001"},
		},
		{
			name:   "one subnet",
			mutate: func(s *database.ClusterSpec) { s.SubnetIDs = pending.Strings("subnet-a") },
			want:   []string{"WAU002"},
		},
		{
			name:   "no final snapshot",
			mutate: func(s *database.ClusterSpec) { s.Backup = database.BackupPolicy{} },
			want:   []string{"WAU003"},
		},
		{
			name: "proxy without IAM",
			mutate: func(s *database.ClusterSpec) {
				s.Access = database.Brokered{Proxy: database.ProxyConfig{SecretARN: "arn:secret:1"}}
			},
			want: []string{"WAU004"},
		},
		{
			name:   "short retention",
			mutate: func(s *database.ClusterSpec) { s.Backup.RetentionDays = 1 },
			want:   []string{"WAU006"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := spec()
			tt.mutate(&sp)
			result := Lint(declare(t, sp), Options{})
			assert.Equal(t, tt.want, rules(result.Issues))
			assert.True(t, result.Success, "only errors fail the lint")
		})
	}
}

func TestLint_WildcardPolicy(t *testing.T) {
	s := stack.New("dev")
	_, err := s.Add("open-policy", iam.Policy{
		Policy: intrinsics.NewPolicyDocument(intrinsics.PolicyStatement{
			Effect:   "Allow",
			Action:   []string{"secretsmanager:GetSecretValue"},
			Resource: "*",
		}),
	})
	require.NoError(t, err)

	result := Lint(s, Options{})
	require.Len(t, result.Issues, 1)
	assert.False(t, result.Success)
	assert.Equal(t, "WAU005", result.Issues[0].Rule)
	assert.Equal(t, SeverityError, result.Issues[0].Severity)
	assert.Contains(t, result.Issues[0].String(), "open-policy")
}

func TestLint_EnabledRules(t *testing.T) {
	sp := spec()
	sp.AvailabilityZones = []string{"ap-southeast-1a"}
	sp.Backup = database.BackupPolicy{}

	result := Lint(declare(t, sp), Options{EnabledRules: []string{"WAU003"}})
	assert.Equal(t, []string{"WAU003"}, rules(result.Issues))
}

func TestLint_MinRetentionDays(t *testing.T) {
	result := Lint(declare(t, spec()), Options{MinRetentionDays: 30})
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "WAU006", result.Issues[0].Rule)
	assert.Contains(t, result.Issues[0].Suggestion, "30")
}

func TestAllRules_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for _, r := range AllRules() {
		assert.False(t, seen[r.ID()], "duplicate rule %s", r.ID())
		seen[r.ID()] = true
		assert.NotEmpty(t, r.Description())
	}
}

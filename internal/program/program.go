// Package program assembles a stack from its settings: it reads the config
// and the networking outputs, resolves the admin role once, and declares the
// database component with its exports.
package program

import (
	"context"
	"fmt"

	"github.com/lex00/wetwire-aurora-go/database"
	"github.com/lex00/wetwire-aurora-go/internal/adminrole"
	"github.com/lex00/wetwire-aurora-go/internal/config"
	"github.com/lex00/wetwire-aurora-go/network"
	"github.com/lex00/wetwire-aurora-go/pending"
	"github.com/lex00/wetwire-aurora-go/stack"
)

// Program is a declared stack.
type Program struct {
	Config  *config.Config
	Network network.Outputs
	Stack   *stack.Stack
	Cluster *database.Cluster
}

// Spec maps settings and network outputs to a ClusterSpec.
func Spec(cfg *config.Config, net network.Outputs) database.ClusterSpec {
	return database.ClusterSpec{
		Description:       cfg.Description,
		Tags:              cfg.BaseTags(),
		SubnetIDs:         net.DBSubnetIDs(),
		AvailabilityZones: cfg.AvailabilityZones,
		SecurityGroupIDs:  net.DBSecurityGroupIDs(),
		EngineVersion:     cfg.EngineVersion,
		MasterUsername:    cfg.DBUsername,
		MasterPassword:    cfg.Password(),
		DatabaseName:      cfg.DBName,
		Scaling:           database.Scaling{Min: cfg.Scaling.Min, Max: cfg.Scaling.Max},
		Backup: database.BackupPolicy{
			RetentionDays:           cfg.RetentionDays,
			FinalSnapshotIdentifier: cfg.FinalSnapshotIdentifier,
		},
		ClusterParameterGroupName: cfg.ClusterParameterGroupName,
		Access:                    cfg.Proxy.Access(),
	}
}

// Build declares the stack.
func Build(cfg *config.Config, net network.Outputs, admin database.AdminRole) (*Program, error) {
	s := stack.New(cfg.Stack)
	c, err := database.New(s, cfg.Name, Spec(cfg, net), admin)
	if err != nil {
		return nil, err
	}
	if err := c.Export(s); err != nil {
		return nil, err
	}
	if err := s.Export(database.OutputDBName, "Initial database name", pending.Known(cfg.DBName)); err != nil {
		return nil, err
	}
	if err := s.Export(database.OutputDBUsername, "Master username", pending.Known(cfg.DBUsername)); err != nil {
		return nil, err
	}
	return &Program{Config: cfg, Network: net, Stack: s, Cluster: c}, nil
}

// Options controls Load.
type Options struct {
	// Dir holds wetwire-aurora.<stack>.yaml. Ignored when ConfigPath is set.
	Dir        string
	ConfigPath string
	Stack      string
	// AdminRoleARN overrides the configured admin role and skips the IAM lookup.
	AdminRoleARN string
}

// Load reads the settings, resolves the admin role and builds the stack.
func Load(ctx context.Context, opts Options) (*Program, error) {
	cfg, err := config.Load(opts.Dir, opts.ConfigPath, opts.Stack)
	if err != nil {
		return nil, err
	}
	net, err := network.Load(cfg.NetworkOutputs)
	if err != nil {
		return nil, err
	}

	resolver, err := AdminResolver(ctx, cfg, opts.AdminRoleARN)
	if err != nil {
		return nil, err
	}
	admin, err := resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving admin role: %w", err)
	}
	return Build(cfg, net, admin)
}

// AdminResolver picks a static ARN when one is known, otherwise an IAM lookup.
func AdminResolver(ctx context.Context, cfg *config.Config, override string) (adminrole.Resolver, error) {
	switch {
	case override != "":
		return adminrole.Static(override), nil
	case cfg.AdminRole.ARN != "":
		return adminrole.Static(cfg.AdminRole.ARN), nil
	}
	lookup, err := adminrole.NewIAMLookup(ctx, cfg.AdminRole.Name)
	if err != nil {
		return nil, err
	}
	return lookup, nil
}

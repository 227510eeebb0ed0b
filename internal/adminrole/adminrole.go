// Package adminrole resolves the shared administrative service role that
// every cluster is associated with. The role is looked up once, at the top
// of a program, and passed to database.New.
package adminrole

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iam"

	"github.com/lex00/wetwire-aurora-go/database"
	"github.com/lex00/wetwire-aurora-go/pending"
)

// DefaultRoleName is the service-linked role RDS creates in every account.
const DefaultRoleName = "AWSServiceRoleForRDS"

// ErrNotFound is returned when the role does not exist.
var ErrNotFound = errors.New("admin role not found")

// Resolver produces the admin role.
type Resolver interface {
	Resolve(ctx context.Context) (database.AdminRole, error)
}

// Static is a role whose ARN is already known.
type Static string

// Resolve implements Resolver.
func (s Static) Resolve(context.Context) (database.AdminRole, error) {
	arn := string(s)
	if !strings.HasPrefix(arn, "arn:") {
		return database.AdminRole{}, fmt.Errorf("admin role: %q is not an ARN", arn)
	}
	return database.AdminRole{ARN: pending.Known(arn)}, nil
}

type getRoleAPI interface {
	GetRole(ctx context.Context, params *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error)
}

// IAMLookup finds the role by name through the IAM API.
type IAMLookup struct {
	RoleName string
	api      getRoleAPI
}

// LookupOption configures an IAMLookup.
type LookupOption func(*lookupOptions)

type lookupOptions struct {
	api    getRoleAPI
	awsCfg *aws.Config
}

// WithAWSConfig uses cfg instead of the default credential chain.
func WithAWSConfig(cfg aws.Config) LookupOption {
	return func(o *lookupOptions) {
		cfgCopy := cfg
		o.awsCfg = &cfgCopy
	}
}

// WithAPI replaces the IAM client.
func WithAPI(api getRoleAPI) LookupOption {
	return func(o *lookupOptions) { o.api = api }
}

// NewIAMLookup builds a lookup for roleName, or DefaultRoleName when empty.
func NewIAMLookup(ctx context.Context, roleName string, options ...LookupOption) (*IAMLookup, error) {
	if roleName == "" {
		roleName = DefaultRoleName
	}
	opts := &lookupOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	if opts.api != nil {
		return &IAMLookup{RoleName: roleName, api: opts.api}, nil
	}

	var cfg aws.Config
	if opts.awsCfg != nil {
		cfg = *opts.awsCfg
	} else {
		loaded, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		cfg = loaded
	}
	return &IAMLookup{RoleName: roleName, api: iam.NewFromConfig(cfg)}, nil
}

// Resolve implements Resolver.
func (l *IAMLookup) Resolve(ctx context.Context) (database.AdminRole, error) {
	out, err := l.api.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(l.RoleName)})
	if err != nil {
		var apiErr interface{ ErrorCode() string }
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchEntity" {
			return database.AdminRole{}, fmt.Errorf("%s: %w", l.RoleName, ErrNotFound)
		}
		return database.AdminRole{}, fmt.Errorf("get role %s: %w", l.RoleName, err)
	}
	if out.Role == nil || aws.ToString(out.Role.Arn) == "" {
		return database.AdminRole{}, fmt.Errorf("%s: %w", l.RoleName, ErrNotFound)
	}
	return database.AdminRole{ARN: pending.Known(aws.ToString(out.Role.Arn))}, nil
}

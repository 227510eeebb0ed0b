// Package config loads the per-stack settings file,
// wetwire-aurora.<stack>.yaml, with WETWIRE_ environment overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/lex00/wetwire-aurora-go/database"
	"github.com/lex00/wetwire-aurora-go/internal/validation"
	"github.com/lex00/wetwire-aurora-go/pending"
)

// EnvPrefix is prepended to every environment override, so dbPassword is read
// from WETWIRE_DBPASSWORD and proxy.enabled from WETWIRE_PROXY_ENABLED.
const EnvPrefix = "WETWIRE"

// PasswordKey is the config key holding the master password. Renderers use it
// as the secret parameter name.
const PasswordKey = "dbPassword"

// Config is one stack's settings.
type Config struct {
	Stack string `mapstructure:"-"`

	Name        string `mapstructure:"name" validate:"required"`
	Description string `mapstructure:"description"`
	Region      string `mapstructure:"region" validate:"required"`
	Tags        []Tag  `mapstructure:"tags" validate:"dive"`

	DBUsername string `mapstructure:"dbUsername" validate:"required"`
	DBPassword string `mapstructure:"dbPassword" validate:"required"`
	DBName     string `mapstructure:"dbName" validate:"required"`

	FinalSnapshotIdentifier string `mapstructure:"finalSnapshotIdentifier"`
	SecretARN               string `mapstructure:"secretArn"`

	AvailabilityZones         []string `mapstructure:"availabilityZones"`
	EngineVersion             string   `mapstructure:"engineVersion"`
	ClusterParameterGroupName string   `mapstructure:"clusterParameterGroupName"`
	Scaling                   Scaling  `mapstructure:"scaling"`
	RetentionDays             int      `mapstructure:"retentionDays" validate:"gte=0"`

	Proxy     database.ProxySpec `mapstructure:"proxy"`
	AdminRole AdminRole          `mapstructure:"adminRole"`

	// NetworkOutputs is the networking stack's exported outputs file,
	// relative to the config file.
	NetworkOutputs string `mapstructure:"networkOutputs" validate:"required"`
}

// Tag is one base tag. Tags are a list because viper lower-cases map keys.
type Tag struct {
	Key   string `mapstructure:"key" validate:"required"`
	Value string `mapstructure:"value"`
}

// Scaling is the capacity range in ACUs. Zero means the default.
type Scaling struct {
	Min float64 `mapstructure:"min" validate:"gte=0"`
	Max float64 `mapstructure:"max" validate:"gte=0"`
}

// AdminRole names the shared administrative role. ARN wins over Name; with
// neither set the RDS service-linked role is looked up.
type AdminRole struct {
	ARN  string `mapstructure:"arn"`
	Name string `mapstructure:"name"`
}

// FileName is the settings file for stack.
func FileName(stack string) string {
	return "wetwire-aurora." + stack + ".yaml"
}

// defaults registers every key so that environment overrides apply even when
// the file leaves a key out.
var defaults = map[string]any{
	"name":                      "demo-db-instance",
	"description":               "",
	"region":                    "ap-southeast-1",
	"dbUsername":                "",
	"dbPassword":                "",
	"dbName":                    "",
	"finalSnapshotIdentifier":   "",
	"secretArn":                 "",
	"availabilityZones":         []string{},
	"engineVersion":             "",
	"clusterParameterGroupName": "",
	"scaling.min":               0.0,
	"scaling.max":               0.0,
	"retentionDays":             0,
	"proxy.enabled":             false,
	"proxy.iam":                 false,
	"proxy.secretArn":           "",
	"adminRole.arn":             "",
	"adminRole.name":            "",
	"networkOutputs":            "network.yaml",
}

// Load reads the settings for stack from path, or from FileName(stack) in dir
// when path is empty.
func Load(dir, path, stack string) (*Config, error) {
	if stack == "" {
		return nil, errors.New("stack name is required")
	}
	if path == "" {
		path = filepath.Join(dir, FileName(stack))
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Stack = stack

	if cfg.Proxy.SecretARN == "" {
		cfg.Proxy.SecretARN = cfg.SecretARN
	}
	if cfg.NetworkOutputs != "" && !filepath.IsAbs(cfg.NetworkOutputs) {
		cfg.NetworkOutputs = filepath.Join(filepath.Dir(path), cfg.NetworkOutputs)
	}
	if cfg.Description == "" {
		cfg.Description = cfg.Name
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Proxy.Enabled && c.Proxy.SecretARN == "" {
		return fmt.Errorf("config: proxy.enabled requires secretArn")
	}
	return nil
}

// Password is the master password as a secret.
func (c *Config) Password() pending.Secret {
	return pending.NewSecret(PasswordKey, c.DBPassword)
}

// BaseTags are the configured tags plus the stack name.
func (c *Config) BaseTags() map[string]string {
	tags := make(map[string]string, len(c.Tags)+1)
	for _, t := range c.Tags {
		tags[t.Key] = t.Value
	}
	if _, ok := tags["Stack"]; !ok {
		tags["Stack"] = c.Stack
	}
	return tags
}

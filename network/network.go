// Package network describes what the networking stack hands to the database
// component: the VPC, its subnets and the security group database traffic is
// allowed through. The networking stack itself is provisioned elsewhere.
package network

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lex00/wetwire-aurora-go/internal/validation"
	"github.com/lex00/wetwire-aurora-go/pending"
)

// Outputs are the networking stack's exports.
type Outputs struct {
	VpcID             string   `json:"vpcId" yaml:"vpcId" validate:"required"`
	PublicSubnetIDs   []string `json:"publicSubnetIds" yaml:"publicSubnetIds"`
	PrivateSubnetIDs  []string `json:"privateSubnetIds" yaml:"privateSubnetIds" validate:"min=1,dive,required"`
	DBSecurityGroupID string   `json:"dbSecurityGroupId" yaml:"dbSecurityGroupId" validate:"required"`
}

// Validate checks that the outputs can back a database.
func (o Outputs) Validate() error {
	if err := validation.Struct(o); err != nil {
		return fmt.Errorf("network outputs: %w", err)
	}
	return nil
}

// DBSubnetIDs are the subnets the database is placed in.
func (o Outputs) DBSubnetIDs() []pending.String {
	return pending.Strings(o.PrivateSubnetIDs...)
}

// DBSecurityGroupIDs are the security groups attached to the cluster.
func (o Outputs) DBSecurityGroupIDs() []pending.String {
	return pending.Strings(o.DBSecurityGroupID)
}

// Load reads outputs from a JSON or YAML file, chosen by extension.
func Load(path string) (Outputs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Outputs{}, fmt.Errorf("reading network outputs: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes outputs. ext is a file extension; anything other than
// ".json" is read as YAML.
func Parse(data []byte, ext string) (Outputs, error) {
	var o Outputs
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &o); err != nil {
			return Outputs{}, fmt.Errorf("parsing network outputs: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &o); err != nil {
			return Outputs{}, fmt.Errorf("parsing network outputs: %w", err)
		}
	}
	if err := o.Validate(); err != nil {
		return Outputs{}, err
	}
	return o, nil
}

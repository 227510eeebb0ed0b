package serialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-aurora-go/pending"
)

type testProxy struct {
	Name        string            `json:"name,omitempty"`
	RoleArn     pending.String    `json:"roleArn,omitempty"`
	SubnetIDs   []pending.String  `json:"vpcSubnetIds,omitempty"`
	Pool        *testPool         `json:"connectionPoolConfig,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	Password    pending.Secret    `json:"password,omitempty"`
	DebugLog    *bool             `json:"debugLogging,omitempty"`
	RequireTLS  bool              `json:"requireTls,omitempty"`
	Description string            `json:"-"`
}

type testPool struct {
	MaxConnectionsPercent int `json:"maxConnectionsPercent"`
}

func TestResource_SimpleStruct(t *testing.T) {
	props, err := Resource(testProxy{Name: "demo-proxy"}, Options{})
	require.NoError(t, err)

	assert.Equal(t, "demo-proxy", props["name"])
	assert.NotContains(t, props, "vpcSubnetIds")         // Empty slice should be omitted
	assert.NotContains(t, props, "connectionPoolConfig") // Nil pointer should be omitted
	assert.NotContains(t, props, "roleArn")              // Unset pending should be omitted
	assert.NotContains(t, props, "password")
}

func TestResource_WithNestedStruct(t *testing.T) {
	props, err := Resource(&testProxy{Pool: &testPool{MaxConnectionsPercent: 100}}, Options{})
	require.NoError(t, err)

	pool := props["connectionPoolConfig"].(map[string]any)
	assert.Equal(t, int64(100), pool["maxConnectionsPercent"])
}

func TestResource_FalsePointerIsKept(t *testing.T) {
	debug := false
	props, err := Resource(testProxy{DebugLog: &debug}, Options{})
	require.NoError(t, err)

	assert.Equal(t, false, props["debugLogging"])
	assert.NotContains(t, props, "requireTls")
}

func TestResource_SkipsDashTag(t *testing.T) {
	props, err := Resource(testProxy{Description: "x"}, Options{})
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestResource_DefaultDeferredEncoding(t *testing.T) {
	props, err := Resource(testProxy{
		RoleArn:   pending.Of[string]("demo-role", "arn"),
		SubnetIDs: pending.Strings("subnet-a"),
		Password:  pending.NewSecret("dbPassword", "pw"),
	}, Options{})
	require.NoError(t, err)

	assert.Equal(t, pending.Ref{Resource: "demo-role", Attribute: "arn"}, props["roleArn"])
	assert.Equal(t, []any{"subnet-a"}, props["vpcSubnetIds"])
	assert.Equal(t, pending.NewSecret("", "pw").Fingerprint(), props["password"])
}

func TestResource_CustomEncoders(t *testing.T) {
	opts := Options{
		Deferred: func(d pending.Deferred) (any, error) {
			if ref, ok := d.Reference(); ok {
				return "${" + ref.String() + "}", nil
			}
			lit, _ := d.Literal()
			return lit, nil
		},
		Secret: func(s pending.Secret) (any, error) {
			return "${" + s.Name() + "}", nil
		},
	}

	props, err := Resource(testProxy{
		RoleArn:  pending.Of[string]("demo-role", "arn"),
		Password: pending.NewSecret("dbPassword", "pw"),
	}, opts)
	require.NoError(t, err)

	assert.Equal(t, "${demo-role.arn}", props["roleArn"])
	assert.Equal(t, "${dbPassword}", props["password"])
}

func TestResource_WithMap(t *testing.T) {
	props, err := Resource(testProxy{Tags: map[string]string{"Name": "Demo RDS Proxy"}}, Options{})
	require.NoError(t, err)

	tags := props["tags"].(map[string]any)
	assert.Equal(t, "Demo RDS Proxy", tags["Name"])
}

func TestResource_NonStruct(t *testing.T) {
	props, err := Resource("not a struct", Options{})
	require.NoError(t, err)
	assert.Nil(t, props)
}

func TestReferences(t *testing.T) {
	refs := References(testProxy{
		RoleArn: pending.Of[string]("demo-role", "arn"),
		SubnetIDs: []pending.String{
			pending.Known("subnet-a"),
			pending.Of[string]("network", "subnet"),
			pending.Of[string]("demo-role", "arn"),
		},
	})

	assert.Equal(t, []pending.Ref{
		{Resource: "demo-role", Attribute: "arn"},
		{Resource: "network", Attribute: "subnet"},
	}, refs)
}

func TestReferences_Pointer(t *testing.T) {
	refs := References(&testProxy{RoleArn: pending.Of[string]("demo-role", "arn")})
	assert.Len(t, refs, 1)
	assert.Empty(t, References(testProxy{}))
}

func TestToPascalCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"demo-db-cluster", "DemoDbCluster"},
		{"demo-db-clusterInstance", "DemoDbClusterInstance"},
		{"bucket_name", "BucketName"},
		{"already", "Already"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToPascalCase(tt.input))
		})
	}
}

func TestToCamelCase(t *testing.T) {
	assert.Equal(t, "demoDbProxy", ToCamelCase("demo-db-proxy"))
	assert.Equal(t, "", ToCamelCase(""))
}

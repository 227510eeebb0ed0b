package app

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-aurora-go/database"
	"github.com/lex00/wetwire-aurora-go/pending"
	"github.com/lex00/wetwire-aurora-go/stack"
)

func cluster(t *testing.T, access database.Access) *database.Cluster {
	t.Helper()
	c, err := database.New(stack.New("dev"), "demo-db", database.ClusterSpec{
		Description:    "Demo",
		SubnetIDs:      pending.Strings("subnet-a", "subnet-b"),
		MasterUsername: "admin",
		MasterPassword: pending.NewSecret("dbPassword", "pw"),
		DatabaseName:   "demo",
		Access:         access,
	}, database.AdminRole{ARN: pending.Known("arn:aws:iam::123456789012:role/admin")})
	require.NoError(t, err)
	return c
}

func attrs(values map[string]any) pending.Resolver {
	return pending.ResolverFunc(func(resource, attribute string) (any, bool) {
		v, ok := values[resource+"."+attribute]
		return v, ok
	})
}

func TestFor_Primary(t *testing.T) {
	conn, err := For(cluster(t, nil), Primary, "demo", "admin", "ap-southeast-1")
	require.NoError(t, err)

	info, err := conn.Resolve(attrs(map[string]any{
		"demo-db-cluster.endpoint":         "demo-db.cluster-abc.ap-southeast-1.rds.amazonaws.com",
		"demo-db-clusterInstance.endpoint": "demo-db-clusterinstance.abc.ap-southeast-1.rds.amazonaws.com",
		"demo-db-clusterInstance.port":     3306,
	}))
	require.NoError(t, err)
	assert.Equal(t, ConnectionInfo{
		Host:         "demo-db.cluster-abc.ap-southeast-1.rds.amazonaws.com",
		Port:         3306,
		DatabaseName: "demo",
		Username:     "admin",
		Region:       "ap-southeast-1",
	}, info)
}

func TestFor_Proxy(t *testing.T) {
	c := cluster(t, database.Brokered{Proxy: database.ProxyConfig{IAM: true, SecretARN: "arn:secret:1"}})
	conn, err := For(c, Proxy, "demo", "admin", "ap-southeast-1")
	require.NoError(t, err)

	info, err := conn.Resolve(attrs(map[string]any{
		"demo-db-proxy.endpoint":           "demo-db.proxy-abc.ap-southeast-1.rds.amazonaws.com",
		"demo-db-clusterInstance.port":     3306,
		"demo-db-clusterInstance.endpoint": "unused",
	}))
	require.NoError(t, err)
	assert.Equal(t, "demo-db.proxy-abc.ap-southeast-1.rds.amazonaws.com", info.Host)
}

func TestFor_ProxyWithoutChain(t *testing.T) {
	_, err := For(cluster(t, database.Direct{}), Proxy, "demo", "admin", "ap-southeast-1")
	assert.ErrorIs(t, err, ErrNoProxy)
}

func TestConnection_Unresolved(t *testing.T) {
	conn, err := For(cluster(t, nil), Primary, "demo", "admin", "ap-southeast-1")
	require.NoError(t, err)
	_, err = conn.Resolve(attrs(nil))
	assert.ErrorIs(t, err, pending.ErrUnresolved)
}

func TestFromOutputs(t *testing.T) {
	outputs := map[string]any{
		database.OutputClusterEndpoint: "cluster.example",
		database.OutputDBEndpoint:      "instance.example",
		database.OutputDBPort:          "3306",
		database.OutputDBName:          "demo",
		database.OutputDBUsername:      "admin",
		database.OutputProxyEndpoint:   "proxy.example",
	}

	info, err := FromOutputs(outputs, Proxy, "ap-southeast-1")
	require.NoError(t, err)
	assert.Equal(t, "proxy.example", info.Host)
	assert.Equal(t, 3306, info.Port)

	assert.Equal(t, map[string]string{
		EnvHost:     "proxy.example",
		EnvUsername: "admin",
		EnvName:     "demo",
		EnvRegion:   "ap-southeast-1",
	}, info.Environment())

	delete(outputs, database.OutputProxyEndpoint)
	_, err = FromOutputs(outputs, Proxy, "ap-southeast-1")
	assert.ErrorIs(t, err, ErrNoProxy)

	info, err = FromOutputs(outputs, Primary, "ap-southeast-1")
	require.NoError(t, err)
	assert.Equal(t, "cluster.example", info.Host)

	delete(outputs, database.OutputClusterEndpoint)
	_, err = FromOutputs(outputs, Primary, "ap-southeast-1")
	assert.ErrorContains(t, err, "output clusterEndpoint is missing")

	outputs[database.OutputClusterEndpoint] = "cluster.example"
	outputs[database.OutputDBPort] = "not-a-port"
	_, err = FromOutputs(outputs, Primary, "ap-southeast-1")
	assert.ErrorContains(t, err, "invalid port")
}

func TestDSN(t *testing.T) {
	info := ConnectionInfo{Host: "db.example", Port: 3306, DatabaseName: "demo", Username: "admin"}

	plain, err := mysql.ParseDSN(info.DSN("pw", false))
	require.NoError(t, err)
	assert.Equal(t, "db.example:3306", plain.Addr)
	assert.Equal(t, "demo", plain.DBName)
	assert.Equal(t, "pw", plain.Passwd)
	assert.False(t, plain.AllowCleartextPasswords)

	token, err := mysql.ParseDSN(info.DSN("token", true))
	require.NoError(t, err)
	assert.True(t, token.AllowCleartextPasswords)
	assert.Equal(t, "skip-verify", token.TLSConfig)
}

func selfSignedPEM(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test RDS Root CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func TestDSN_VerifiedTLS(t *testing.T) {
	require.NoError(t, RegisterCABundle("rds-test", selfSignedPEM(t)))
	t.Cleanup(func() { mysql.DeregisterTLSConfig("rds-test") })

	info := ConnectionInfo{Host: "db.example", Port: 3306, Username: "admin", TLSConfig: "rds-test"}
	cfg, err := mysql.ParseDSN(info.DSN("token", true))
	require.NoError(t, err)
	assert.Equal(t, "rds-test", cfg.TLSConfig)
	assert.True(t, cfg.AllowCleartextPasswords)

	plain, err := mysql.ParseDSN(info.DSN("pw", false))
	require.NoError(t, err)
	assert.Empty(t, plain.TLSConfig)
}

func TestRegisterCABundle_NoCertificates(t *testing.T) {
	assert.ErrorContains(t, RegisterCABundle("rds-empty", []byte("not a pem")), "no PEM certificates")
}

func TestAuthToken(t *testing.T) {
	info := ConnectionInfo{Host: "demo-db.proxy-abc.ap-southeast-1.rds.amazonaws.com", Port: 3306, Username: "admin", Region: "ap-southeast-1"}
	creds := credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", "")

	token, err := info.AuthToken(context.Background(), creds)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "demo-db.proxy-abc.ap-southeast-1.rds.amazonaws.com:3306/?"))

	u, err := url.Parse("https://" + token)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "connect", q.Get("Action"))
	assert.Equal(t, "admin", q.Get("DBUser"))
	assert.Contains(t, q.Get("X-Amz-Credential"), "AKIDEXAMPLE")

	_, err = info.AuthToken(context.Background(), nil)
	assert.Error(t, err)
}

func TestParseTarget(t *testing.T) {
	tgt, err := ParseTarget("proxy")
	require.NoError(t, err)
	assert.Equal(t, Proxy, tgt)
	assert.Equal(t, "proxy", tgt.String())

	tgt, err = ParseTarget("")
	require.NoError(t, err)
	assert.Equal(t, Primary, tgt)

	_, err = ParseTarget("replica")
	assert.Error(t, err)
}

// Package app is the contract between the database component and the
// application that connects to it: which endpoint to use, the environment the
// container reads, and how a client authenticates through the proxy.
package app

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"
	"github.com/go-sql-driver/mysql"

	"github.com/lex00/wetwire-aurora-go/database"
	"github.com/lex00/wetwire-aurora-go/pending"
)

// Target selects the endpoint the application connects to.
type Target int

const (
	// Primary is the cluster writer endpoint, which follows the writer across
	// failovers.
	Primary Target = iota
	// Proxy is the RDS Proxy endpoint.
	Proxy
)

func (t Target) String() string {
	switch t {
	case Primary:
		return "primary"
	case Proxy:
		return "proxy"
	}
	return "Target(" + strconv.Itoa(int(t)) + ")"
}

// ParseTarget accepts "primary" or "proxy".
func ParseTarget(s string) (Target, error) {
	switch s {
	case "primary", "":
		return Primary, nil
	case "proxy":
		return Proxy, nil
	}
	return Primary, fmt.Errorf("unknown target %q (want primary or proxy)", s)
}

// ErrNoProxy is returned when Proxy is chosen for a cluster without one.
var ErrNoProxy = errors.New("cluster has no proxy")

// Environment variable names read by the application container.
const (
	EnvHost     = "DB_HOST"
	EnvUsername = "DB_USERNAME"
	EnvName     = "DB_NAME"
	EnvRegion   = "AWS_REGION"
)

// ConnectionInfo is everything a client needs to reach the database.
type ConnectionInfo struct {
	Host         string
	Port         int
	DatabaseName string
	Username     string
	Region       string
	// TLSConfig names a TLS config registered with RegisterCABundle. It is
	// used for IAM token connections.
	TLSConfig string
}

// RegisterCABundle registers a go-sql-driver/mysql TLS config named name that
// verifies the server against the PEM certificates in bundle, typically the
// RDS global CA bundle.
func RegisterCABundle(name string, bundle []byte) error {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(bundle) {
		return errors.New("CA bundle contains no PEM certificates")
	}
	if err := mysql.RegisterTLSConfig(name, &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}); err != nil {
		return fmt.Errorf("registering TLS config %s: %w", name, err)
	}
	return nil
}

// Addr is host:port.
func (c ConnectionInfo) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Environment projects the connection onto the container environment.
func (c ConnectionInfo) Environment() map[string]string {
	return map[string]string{
		EnvHost:     c.Host,
		EnvUsername: c.Username,
		EnvName:     c.DatabaseName,
		EnvRegion:   c.Region,
	}
}

// AuthToken signs an IAM authentication token for Username, valid for
// fifteen minutes.
func (c ConnectionInfo) AuthToken(ctx context.Context, creds aws.CredentialsProvider) (string, error) {
	if creds == nil {
		return "", errors.New("credentials provider is required")
	}
	token, err := auth.BuildAuthToken(ctx, c.Addr(), c.Region, c.Username, creds)
	if err != nil {
		return "", fmt.Errorf("building auth token for %s: %w", c.Username, err)
	}
	return token, nil
}

// DSN formats a go-sql-driver/mysql data source name. The password is either
// the master password or an IAM token. IAM tokens are sent in clear text and
// therefore require TLS, verified against c.TLSConfig when set. Without one
// the connection is encrypted but the server certificate is not verified, so
// the token is exposed to anyone able to intercept the connection until it
// expires.
func (c ConnectionInfo) DSN(password string, iamToken bool) string {
	cfg := mysql.NewConfig()
	cfg.User = c.Username
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = c.Addr()
	cfg.DBName = c.DatabaseName
	cfg.Timeout = 10 * time.Minute
	cfg.ParseTime = true
	if iamToken {
		cfg.AllowCleartextPasswords = true
		cfg.TLSConfig = "skip-verify"
		if c.TLSConfig != "" {
			cfg.TLSConfig = c.TLSConfig
		}
	}
	return cfg.FormatDSN()
}

// Connection is a ConnectionInfo whose endpoint is still deferred.
type Connection struct {
	Host         pending.String
	Port         pending.String
	DatabaseName string
	Username     string
	Region       string
}

// For picks the endpoint of c named by target.
func For(c *database.Cluster, target Target, dbName, username, region string) (Connection, error) {
	conn := Connection{
		Host:         c.ClusterEndpoint(),
		Port:         c.InstancePort(),
		DatabaseName: dbName,
		Username:     username,
		Region:       region,
	}
	if target == Proxy {
		host, ok := c.ProxyEndpoint()
		if !ok {
			return Connection{}, fmt.Errorf("%s: %w", c.Name(), ErrNoProxy)
		}
		conn.Host = host
	}
	return conn, nil
}

// Resolve fills in the endpoint once the cluster has been created.
func (c Connection) Resolve(r pending.Resolver) (ConnectionInfo, error) {
	host, err := c.Host.Resolve(r)
	if err != nil {
		return ConnectionInfo{}, fmt.Errorf("host: %w", err)
	}
	port, err := c.Port.Resolve(r)
	if err != nil {
		return ConnectionInfo{}, fmt.Errorf("port: %w", err)
	}
	return newInfo(host, port, c.DatabaseName, c.Username, c.Region)
}

// FromOutputs builds a ConnectionInfo from a database stack's outputs, the
// way a sibling stack reads them.
func FromOutputs(outputs map[string]any, target Target, region string) (ConnectionInfo, error) {
	hostKey := database.OutputClusterEndpoint
	if target == Proxy {
		hostKey = database.OutputProxyEndpoint
	}
	host, _ := outputs[hostKey].(string)
	if host == "" {
		if target == Proxy {
			return ConnectionInfo{}, ErrNoProxy
		}
		return ConnectionInfo{}, fmt.Errorf("output %s is missing", hostKey)
	}
	port := fmt.Sprint(outputs[database.OutputDBPort])
	name, _ := outputs[database.OutputDBName].(string)
	user, _ := outputs[database.OutputDBUsername].(string)
	return newInfo(host, port, name, user, region)
}

func newInfo(host, port, name, user, region string) (ConnectionInfo, error) {
	p, err := strconv.Atoi(port)
	if err != nil {
		return ConnectionInfo{}, fmt.Errorf("invalid port %q: %w", port, err)
	}
	return ConnectionInfo{Host: host, Port: p, DatabaseName: name, Username: user, Region: region}, nil
}

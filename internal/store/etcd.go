package store

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/cybertec-postgresql/census_runner/internal/retry"
)

// EtcdStore keeps every key below a prefix in etcd, so concurrent pipeline
// runners on different hosts share the same run id
type EtcdStore struct {
	client *clientv3.Client
	prefix string
}

// NewEtcdStore creates a new etcd store with DSN parsing
func NewEtcdStore(dsn string) (*EtcdStore, error) {
	config, err := parseEtcdDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse etcd DSN: %w", err)
	}

	client, err := clientv3.New(*config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	logrus.WithField("endpoints", config.Endpoints).Info("Connected to etcd successfully")

	return &EtcdStore{
		client: client,
		prefix: GetPrefix(dsn),
	}, nil
}

// NewEtcdStoreWithRetry creates a new etcd store and checks the connection with retry logic
func NewEtcdStoreWithRetry(ctx context.Context, dsn string) (*EtcdStore, error) {
	var s *EtcdStore
	err := retry.WithOperation(ctx, retry.EtcdDefaults(), func() error {
		var attemptErr error
		s, attemptErr = NewEtcdStore(dsn)
		if attemptErr != nil {
			return attemptErr
		}

		// Test the connection
		if _, testErr := s.client.Get(ctx, s.key("healthcheck")); testErr != nil {
			s.Close()
			return testErr
		}

		return nil
	}, "etcd connect")

	if err != nil {
		logrus.WithError(err).Error("Failed to establish etcd connection after all retries")
		return nil, err
	}

	return s, nil
}

func (s *EtcdStore) key(key string) string {
	return path.Join(s.prefix, key)
}

// Put stores value under key
func (s *EtcdStore) Put(ctx context.Context, key string, value []byte) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	resp, err := s.client.Put(ctx, s.key(cleaned), string(value))
	if err != nil {
		return fmt.Errorf("failed to put key %s: %w", key, err)
	}

	logrus.WithFields(logrus.Fields{
		"key":      s.key(cleaned),
		"revision": resp.Header.Revision,
	}).Debug("Put key to etcd")

	return nil
}

// Get retrieves the value of key
func (s *EtcdStore) Get(ctx context.Context, key string) ([]byte, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Get(ctx, s.key(cleaned))
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("%s: %w", s.key(cleaned), ErrNotFound)
	}

	return resp.Kvs[0].Value, nil
}

// Close closes the etcd client connection
func (s *EtcdStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// parseEtcdDSN parses etcd DSN format: etcd://[user:password@]host1:port1[,host2:port2]/[prefix]?param=value
func parseEtcdDSN(dsn string) (*clientv3.Config, error) {
	if dsn == "" {
		return nil, fmt.Errorf("etcd DSN is required")
	}

	if !strings.HasPrefix(dsn, "etcd://") {
		return nil, fmt.Errorf("etcd DSN must start with etcd://")
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("etcd DSN has no endpoints")
	}

	// Extract endpoints from host part
	endpoints := strings.Split(u.Host, ",")
	for i, endpoint := range endpoints {
		if !strings.Contains(endpoint, ":") {
			endpoints[i] = endpoint + ":2379" // Default etcd port
		}
	}

	config := &clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	}

	if u.User != nil {
		config.Username = u.User.Username()
		config.Password, _ = u.User.Password()
	}

	params := u.Query()

	if timeout := params.Get("dial_timeout"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid dial_timeout: %w", err)
		}
		config.DialTimeout = d
	}

	if tlsParam := params.Get("tls"); tlsParam == "enabled" {
		config.TLS = &tls.Config{
			InsecureSkipVerify: params.Get("tls_skip_verify") == "true",
		}
	}

	return config, nil
}

// GetPrefix extracts the prefix from the etcd DSN path
func GetPrefix(dsn string) string {
	if dsn == "" || !strings.HasPrefix(dsn, "etcd://") {
		return "/"
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "/"
	}

	if u.Path == "" {
		return "/"
	}

	return u.Path
}

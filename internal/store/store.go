// Package store provides the key-value artifact store that hands the sync run id
// and the raw Census responses from one census_runner invocation to the next.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ArtifactFolder is the job family folder inside the artifacts directory
const ArtifactFolder = "census-blueprints"

// ErrNotFound is returned by Get when nothing was stored under the key
var ErrNotFound = errors.New("key not found")

// Store keeps whole values under slash separated keys. Put always overwrites.
type Store interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Close() error
}

// Open returns the store described by dsn:
//
//	""                      files below DefaultArtifactsDir()
//	file:///some/dir        files below /some/dir
//	etcd://host:2379/prefix etcd keys below /prefix
//	s3://key:secret@host/bucket/prefix?secure=false
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case dsn == "":
		return NewFileStore(DefaultArtifactsDir())
	case strings.HasPrefix(dsn, "file://"):
		return NewFileStore(strings.TrimPrefix(dsn, "file://"))
	case strings.HasPrefix(dsn, "etcd://"):
		return NewEtcdStoreWithRetry(ctx, dsn)
	case strings.HasPrefix(dsn, "s3://"):
		return NewMinioStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported store DSN %q: expected file://, etcd:// or s3://", dsn)
	}
}

// DefaultArtifactsDir is $SHIPYARD_ARTIFACTS_DIRECTORY/census-blueprints, falling
// back to $USER-artifacts/census-blueprints
func DefaultArtifactsDir() string {
	base := os.Getenv("SHIPYARD_ARTIFACTS_DIRECTORY")
	if base == "" {
		base = os.Getenv("USER") + "-artifacts"
	}
	return filepath.Join(base, ArtifactFolder)
}

// cleanKey normalizes key and rejects anything escaping the store root
func cleanKey(key string) (string, error) {
	cleaned := path.Clean(strings.TrimPrefix(key, "/"))
	if key == "" || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid store key %q", key)
	}
	return cleaned, nil
}

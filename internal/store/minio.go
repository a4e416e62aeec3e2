package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// MinioStore keeps every key as an object in an S3 compatible bucket
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// s3Config is the parsed form of an s3:// DSN
type s3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Region    string
	Secure    bool
}

// NewMinioStore connects to the bucket named in dsn and checks that it exists
func NewMinioStore(ctx context.Context, dsn string) (*MinioStore, error) {
	cfg, err := parseS3DSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s3 DSN: %w", err)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}

	logrus.WithFields(logrus.Fields{
		"endpoint": cfg.Endpoint,
		"bucket":   cfg.Bucket,
		"prefix":   cfg.Prefix,
	}).Info("Connected to object storage successfully")

	return &MinioStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *MinioStore) object(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(path.Join(s.prefix, cleaned), "/"), nil
}

// Put uploads value as the object for key
func (s *MinioStore) Put(ctx context.Context, key string, value []byte) error {
	name, err := s.object(key)
	if err != nil {
		return err
	}
	info, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(value), int64(len(value)),
		minio.PutObjectOptions{ContentType: contentType(name)})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}

	logrus.WithFields(logrus.Fields{
		"bucket": s.bucket,
		"object": name,
		"etag":   info.ETag,
	}).Debug("Uploaded artifact")
	return nil
}

// Get downloads the object for key
func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, error) {
	name, err := s.object(key)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinioError(name, err)
	}
	defer func() {
		_ = obj.Close()
	}()

	// GetObject is lazy, a missing object only shows up on first read
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translateMinioError(name, err)
	}
	return data, nil
}

// Close is a no-op, the minio client holds no long lived connection
func (s *MinioStore) Close() error {
	return nil
}

func translateMinioError(name string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return fmt.Errorf("failed to download %s: %w", name, err)
}

func contentType(name string) string {
	if strings.HasSuffix(name, ".json") {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

// parseS3DSN parses s3://access:secret@host[:port]/bucket[/prefix]?secure=false&region=eu-central-1
func parseS3DSN(dsn string) (*s3Config, error) {
	if !strings.HasPrefix(dsn, "s3://") {
		return nil, fmt.Errorf("s3 DSN must start with s3://")
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("s3 DSN has no endpoint")
	}

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if parts[0] == "" {
		return nil, fmt.Errorf("s3 DSN has no bucket")
	}

	cfg := &s3Config{
		Endpoint: u.Host,
		Bucket:   parts[0],
		Secure:   true,
		Region:   u.Query().Get("region"),
	}
	if len(parts) == 2 {
		cfg.Prefix = parts[1]
	}
	if u.User != nil {
		cfg.AccessKey = u.User.Username()
		cfg.SecretKey, _ = u.User.Password()
	}
	if secure := u.Query().Get("secure"); secure == "false" {
		cfg.Secure = false
	}

	return cfg, nil
}

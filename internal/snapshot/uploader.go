// Package snapshot ships point-in-time copies of the finsight database to
// S3-compatible storage. When no bucket is configured the NoopUploader is
// used and snapshots stay on local disk.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hyperengineering/finsight/internal/config"
)

// ErrNotConfigured is returned when remote snapshot storage is not configured.
var ErrNotConfigured = errors.New("snapshot storage not configured")

// keyPrefix groups every snapshot object under one prefix in the bucket.
const keyPrefix = "finsight/snapshots/"

// Uploader ships snapshot files and hands out download links for them.
type Uploader interface {
	// Upload stores the file at filePath under the given snapshot name.
	Upload(ctx context.Context, name, filePath string) error

	// PresignedURL returns a time-limited download link for a snapshot.
	PresignedURL(ctx context.Context, name string) (url string, expiry time.Time, err error)

	// Remote reports whether uploads leave the machine.
	Remote() bool
}

type s3Client interface {
	FPutObject(ctx context.Context, bucket, objectName, filePath string) error
	PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error)
}

type minioClient struct {
	client *minio.Client
}

func (w *minioClient) FPutObject(ctx context.Context, bucket, objectName, filePath string) error {
	_, err := w.client.FPutObject(ctx, bucket, objectName, filePath, minio.PutObjectOptions{
		ContentType: "application/vnd.sqlite3",
	})
	return err
}

func (w *minioClient) PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error) {
	return w.client.PresignedGetObject(ctx, bucket, objectName, expiry, nil)
}

// S3Uploader uploads snapshots to an S3-compatible bucket.
type S3Uploader struct {
	client    s3Client
	bucket    string
	urlExpiry time.Duration
	now       func() time.Time
}

// Upload puts the snapshot file into the bucket.
func (u *S3Uploader) Upload(ctx context.Context, name, filePath string) error {
	if err := u.client.FPutObject(ctx, u.bucket, objectKey(name), filePath); err != nil {
		return fmt.Errorf("upload snapshot %s: %w", name, err)
	}
	return nil
}

// PresignedURL returns a pre-signed GET URL valid for the configured expiry.
func (u *S3Uploader) PresignedURL(ctx context.Context, name string) (string, time.Time, error) {
	presigned, err := u.client.PresignedGetObject(ctx, u.bucket, objectKey(name), u.urlExpiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign snapshot %s: %w", name, err)
	}
	return presigned.String(), u.now().Add(u.urlExpiry), nil
}

// Remote is always true for S3Uploader.
func (u *S3Uploader) Remote() bool { return true }

// NoopUploader keeps snapshots local.
type NoopUploader struct{}

func (NoopUploader) Upload(ctx context.Context, name, filePath string) error { return nil }

func (NoopUploader) PresignedURL(ctx context.Context, name string) (string, time.Time, error) {
	return "", time.Time{}, ErrNotConfigured
}

func (NoopUploader) Remote() bool { return false }

// NewUploader returns a NoopUploader when cfg.Bucket is empty and an
// S3Uploader otherwise. The endpoint may carry an http:// or https://
// scheme, which then decides TLS unless UseSSL is set explicitly.
func NewUploader(cfg config.SnapshotConfig) (Uploader, error) {
	if cfg.Bucket == "" {
		return NoopUploader{}, nil
	}

	useSSL := true
	endpoint := stripScheme(cfg.Endpoint, &useSSL)
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Uploader{
		client:    &minioClient{client: client},
		bucket:    cfg.Bucket,
		urlExpiry: time.Duration(cfg.URLExpiry),
		now:       time.Now,
	}, nil
}

// stripScheme removes an http(s) scheme from endpoint, setting *ssl to match.
// minio.New wants a bare host[:port].
func stripScheme(endpoint string, ssl *bool) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		*ssl = true
		return strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		*ssl = false
		return strings.TrimPrefix(endpoint, "http://")
	}
	return endpoint
}

func objectKey(name string) string {
	return keyPrefix + name
}

// Name returns the snapshot name for a point in time, e.g.
// "finsight-20261015T093000Z.db".
func Name(t time.Time) string {
	return "finsight-" + t.UTC().Format("20060102T150405Z") + ".db"
}

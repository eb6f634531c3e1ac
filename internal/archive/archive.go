// Package archive copies downloaded care plans into an S3 compatible bucket.
package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/config"
)

// Archive wraps MinIO/S3 interactions for care plan artifacts.
type Archive struct {
	client *minio.Client
	bucket string
	region string
}

// New creates a MinIO client from the archive settings.
func New(cfg config.ArchiveConfig) (*Archive, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("archive: endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Archive{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// EnsureBucket creates the bucket on first use.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", a.bucket, err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", a.bucket, err)
		}
	}
	return nil
}

// Put stores one artifact under ObjectKey and returns the key.
func (a *Archive) Put(ctx context.Context, orderID, filename string, r io.Reader, size int64, contentType string) (string, error) {
	key := ObjectKey(orderID, filename, time.Now().UTC())
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"order-id": orderID},
	}
	if _, err := a.client.PutObject(ctx, a.bucket, key, r, size, opts); err != nil {
		return "", fmt.Errorf("upload care plan: %w", err)
	}
	return key, nil
}

// ObjectKey lays artifacts out as careplans/{order_id}/{yyyymmdd}/{file}.
func ObjectKey(orderID, filename string, at time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = "careplan_" + orderID + ".txt"
	}
	return path.Join("careplans", orderID, at.Format("20060102"), name)
}

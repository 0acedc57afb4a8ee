package export

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("gamelearn/export")

// DownloadURLTTL is how long a presigned export download stays valid.
const DownloadURLTTL = 24 * time.Hour

// S3Config holds S3/MinIO configuration
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// ArtifactStore persists rendered export files and mints download URLs.
type ArtifactStore struct {
	client *minio.Client
	bucket string
}

// NewArtifactStore creates a new S3/MinIO artifact store, creating the
// bucket if it does not exist.
func NewArtifactStore(config S3Config) (*ArtifactStore, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, config.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &ArtifactStore{client: client, bucket: config.BucketName}, nil
}

// Put uploads a rendered artifact under key with the given content type.
func (s *ArtifactStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, span := tracer.Start(ctx, "artifacts.put")
	defer span.End()
	span.SetAttributes(
		attribute.String("object.key", key),
		attribute.Int("object.size", len(data)),
	)

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to upload artifact: %w", err)
	}
	return nil
}

// PresignDownload mints a time-limited download URL for an artifact. The
// filename parameter controls the browser's save-as name.
func (s *ArtifactStore) PresignDownload(ctx context.Context, key, filename string) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, DownloadURLTTL, params)
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}
	return u.String(), nil
}

// Delete removes an artifact. Used when a job record is deleted.
func (s *ArtifactStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

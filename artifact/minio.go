package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/trainmesh/core"
)

// Interface compliance (compile-time assertion)
var _ core.ArtifactStore = (*MinIOStore)(nil)

// DefaultBucket is used when MinIOConfig.Bucket is empty.
const DefaultBucket = "trainmesh-artifacts"

// MinIOConfig holds the connection settings of a MinIOStore.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// Prefix is prepended to every object key.
	Prefix string
}

// MinIOStore persists artifacts in an S3 compatible bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIOStore connects to the endpoint and creates the bucket when it does
// not exist yet.
func NewMinIOStore(ctx context.Context, cfg MinIOConfig) (*MinIOStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, core.NewConfigurationError("minio_endpoint", "endpoint is required for the minio artifact backend")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		bucket = DefaultBucket
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket %s: %w", bucket, err)
		}
	}
	return &MinIOStore{client: client, bucket: bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

// Bucket returns the bucket artifacts are written to.
func (s *MinIOStore) Bucket() string { return s.bucket }

func (s *MinIOStore) experimentPrefix(experimentID string) string {
	return path.Join(s.prefix, experimentID) + "/"
}

func (s *MinIOStore) objectName(experimentID, artifactID string) string {
	return s.experimentPrefix(experimentID) + strings.TrimPrefix(artifactID, "/")
}

// Save uploads the artifact bytes.
func (s *MinIOStore) Save(ctx context.Context, experimentID, artifactID string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(experimentID, artifactID),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	return err
}

// Get downloads the artifact bytes or returns ErrNotFound.
func (s *MinIOStore) Get(ctx context.Context, experimentID, artifactID string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(experimentID, artifactID), minio.GetObjectOptions{})
	if err != nil {
		return nil, mapNotFound(err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return data, nil
}

// List returns the sorted artifact ids stored for the experiment.
func (s *MinIOStore) List(ctx context.Context, experimentID string) ([]string, error) {
	prefix := s.experimentPrefix(experimentID)
	var ids []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		ids = append(ids, strings.TrimPrefix(obj.Key, prefix))
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the artifact or returns ErrNotFound.
func (s *MinIOStore) Delete(ctx context.Context, experimentID, artifactID string) error {
	name := s.objectName(experimentID, artifactID)
	if _, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{}); err != nil {
		return mapNotFound(err)
	}
	return s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{})
}

func mapNotFound(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return err
}

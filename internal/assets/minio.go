package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cellexec/internal/config"
)

// stageConcurrency bounds parallel downloads per staging run.
const stageConcurrency = 4

// MinioFetcher reads notebook sources and component assets from a MinIO
// bucket.
type MinioFetcher struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewMinioFetcher builds a fetcher from the storage configuration.
func NewMinioFetcher(cfg config.StorageConfig, logger *zap.Logger) (*MinioFetcher, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}
	return &MinioFetcher{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// Stat reports whether the object exists.
func (m *MinioFetcher) Stat(ctx context.Context, objectPath string) bool {
	_, err := m.client.StatObject(ctx, m.bucket, objectPath, minio.StatObjectOptions{})
	return err == nil
}

// Fetch downloads one object.
func (m *MinioFetcher) Fetch(ctx context.Context, objectPath string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", objectPath, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", objectPath, err)
	}
	return data, nil
}

// StageComponentAssets downloads the component's assets from the primary
// and legacy prefixes into destDir. Zero objects is not an error; download
// failures are collected into one aggregate error after staging what
// succeeded.
func (m *MinioFetcher) StageComponentAssets(ctx context.Context, componentID, destDir string) (int, error) {
	var keys []string
	for _, prefix := range assetPrefixes(componentID) {
		for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if obj.Err != nil {
				// A broken listing on one prefix must not block the other.
				m.logger.Warn("asset listing failed",
					zap.String("component_id", componentID),
					zap.String("prefix", prefix),
					zap.Error(obj.Err))
				break
			}
			if obj.Key == "" || obj.Key[len(obj.Key)-1] == '/' {
				continue
			}
			keys = append(keys, obj.Key)
		}
	}

	var (
		mu     sync.Mutex
		staged int
		errs   []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stageConcurrency)

	for _, key := range keys {
		g.Go(func() error {
			data, err := m.Fetch(gctx, key)
			if err == nil {
				dest := filepath.Join(destDir, path.Base(key))
				err = os.WriteFile(dest, data, 0644)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			} else {
				staged++
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		return staged, fmt.Errorf("failed to stage %d of %d assets: %w", len(errs), len(keys), errors.Join(errs...))
	}
	return staged, nil
}

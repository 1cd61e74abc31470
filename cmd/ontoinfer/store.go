package main

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/ontoinfer/blobstore"
	minioblob "github.com/hupe1980/ontoinfer/blobstore/minio"
	s3blob "github.com/hupe1980/ontoinfer/blobstore/s3"
	"github.com/hupe1980/ontoinfer/codec"
	"github.com/hupe1980/ontoinfer/internal/config"
)

// openBlobStore opens the configured artifact backend. A non-empty dir
// overrides the configuration with a local store rooted at dir.
func openBlobStore(ctx context.Context, cfg config.ArtifactsConfig, dir string) (blobstore.BlobStore, error) {
	var (
		store blobstore.BlobStore
		err   error
	)

	backend := cfg.Backend
	if dir != "" {
		backend = "local"
	} else {
		dir = cfg.Dir
	}

	switch backend {
	case "local":
		store = blobstore.NewLocalStore(dir)
	case "s3":
		var opts []s3blob.Option
		if cfg.S3.Prefix != "" {
			opts = append(opts, s3blob.WithPrefix(cfg.S3.Prefix))
		}
		if cfg.S3.Region != "" {
			opts = append(opts, s3blob.WithRegion(cfg.S3.Region))
		}
		if cfg.S3.Endpoint != "" {
			opts = append(opts, s3blob.WithEndpoint(cfg.S3.Endpoint))
		}
		store, err = s3blob.New(ctx, cfg.S3.Bucket, opts...)
	case "minio":
		store, err = openMinIO(ctx, cfg.MinIO)
	default:
		err = fmt.Errorf("unknown artifact backend %q", backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheBytes > 0 {
		store = blobstore.NewCachingStore(store, cfg.CacheBytes)
	}
	return store, nil
}

func openMinIO(ctx context.Context, cfg config.MinIOConfig) (*minioblob.Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	store := minioblob.NewStore(client, cfg.Bucket, cfg.Prefix)
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func artifactCodec(cfg config.ArtifactsConfig) (codec.Codec, error) {
	c, ok := codec.ByName(cfg.Codec)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", cfg.Codec)
	}
	return c, nil
}

package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/USA-RedDragon/upmyfee/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Storage is a flat store of named blobs.
type Storage interface {
	WriteFile(ctx context.Context, name string, data []byte) error
	ReadFile(ctx context.Context, name string) ([]byte, error)
	Close() error
}

func NewStorage(ctx context.Context, cfg config.Export) (Storage, error) {
	switch cfg.Driver {
	case config.ExportDriverFilesystem:
		err := os.MkdirAll(cfg.Directory, 0o700)
		if err != nil {
			return nil, fmt.Errorf("failed to create export directory: %w", err)
		}
		return newFilesystem(cfg.Directory)
	case config.ExportDriverS3:
		opts := []func(*awsconfig.LoadOptions) error{}
		if cfg.S3.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.S3.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = true
			if cfg.S3.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
			}
		})
		return NewS3(cfg.S3.Bucket, cfg.S3.Prefix, client), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}

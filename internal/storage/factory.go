package storage

import (
	"context"
	"fmt"

	"jogosescolares/internal/config"
)

func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch StorageType(cfg.Type) {
	case StorageTypeLocal, "":
		basePath := cfg.LocalPath
		if basePath == "" {
			basePath = "./data/documents"
		}
		return NewLocalStorage(basePath)

	case StorageTypeS3:
		if cfg.Bucket == "" || cfg.Region == "" {
			return nil, fmt.Errorf("S3 storage requires STORAGE_S3_BUCKET and STORAGE_S3_REGION")
		}
		return NewS3Storage(ctx, cfg.Bucket, cfg.Region, cfg.Endpoint)

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

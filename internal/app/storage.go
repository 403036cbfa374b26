package app

import (
	"context"
	"net/http"

	"github.com/oris-services/servicedesk/internal/platform/storage"
)

// NewStore builds the evidence store selected by STORAGE_DRIVER. The returned
// handler is non-nil only for the local driver, which the API serves itself.
func NewStore(ctx context.Context, cfg *Config) (storage.Store, http.Handler, error) {
	if cfg.StorageDriver == "s3" {
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
	store, err := storage.NewLocalStore(cfg.StorageLocalDir, cfg.StorageBaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Handler(), nil
}

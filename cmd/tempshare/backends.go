package main

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/tempshare/pkg/config"
	"github.com/dmitrymomot/tempshare/pkg/logger"
	"github.com/dmitrymomot/tempshare/pkg/storage"
)

// ProviderConfig groups the credentials of every optional provider.
// A provider is registered only when its settings are complete.
type ProviderConfig struct {
	S3           storage.S3Config
	S3Compatible storage.S3CompatibleConfig
	GCS          storage.GCSConfig
	Azure        storage.AzureConfig
	Drive        storage.DriveConfig
}

func openBackends(ctx context.Context, cfg AppConfig, log *slog.Logger) (*storage.Set, error) {
	var pc ProviderConfig
	if err := config.Load(&pc); err != nil {
		return nil, err
	}

	local, err := storage.NewLocalStorage(cfg.StorageDir)
	if err != nil {
		return nil, err
	}
	adapters := []storage.Storage{local}

	if pc.S3.Enabled() {
		s, err := storage.NewS3Storage(ctx, pc.S3)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, s)
	}
	if pc.S3Compatible.Enabled() {
		s, err := storage.NewS3CompatibleStorage(pc.S3Compatible)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, s)
	}
	if pc.GCS.Enabled() {
		s, err := storage.NewGCSStorage(pc.GCS)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, s)
	}
	if pc.Azure.Enabled() {
		s, err := storage.NewAzureStorage(pc.Azure)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, s)
	}
	if pc.Drive.Enabled() {
		s, err := storage.NewDriveStorage(ctx, pc.Drive)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, s)
	}

	for _, a := range adapters {
		log.DebugContext(ctx, "storage provider registered", logger.Provider(a.Provider()))
	}
	return storage.NewSet(adapters...)
}

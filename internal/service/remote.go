package service

import (
	"context"
	"errors"
	"fmt"

	"Mansoor88-6/coding-activity-agent/internal/client"
	"Mansoor88-6/coding-activity-agent/internal/config"
	"Mansoor88-6/coding-activity-agent/internal/database"
	"Mansoor88-6/coding-activity-agent/internal/repository"
	"Mansoor88-6/coding-activity-agent/internal/store"

	"go.uber.org/zap"
)

// OpenRemoteStore builds the document store selected by cfg.Driver.
// The none driver returns a nil store and no error.
func OpenRemoteStore(ctx context.Context, cfg config.RemoteConfig, logger *zap.Logger) (store.DocumentStore, error) {
	switch cfg.Driver {
	case config.DriverNone, "":
		return nil, nil
	case config.DriverHTTP:
		if cfg.HTTP.BaseURL == "" {
			return nil, errors.New("remote.http.base_url is not configured")
		}
		c := client.NewAPIClient(cfg.HTTP.BaseURL, cfg.HTTP.APIKey, cfg.HTTP.Timeout, logger)
		if err := c.HealthCheck(ctx); err != nil {
			c.Close()
			return nil, fmt.Errorf("remote backend unreachable: %w", err)
		}
		return c, nil
	case config.DriverSQLite:
		if cfg.SQLite.Path == "" {
			return nil, errors.New("remote.sqlite.path is not configured")
		}
		db, err := database.New(cfg.SQLite.Path, logger)
		if err != nil {
			return nil, err
		}
		return repository.NewDocumentRepository(db), nil
	case config.DriverFirestore:
		fs, err := store.NewFirestoreStore(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile, logger)
		if err != nil {
			return nil, err
		}
		return fs, nil
	default:
		return nil, fmt.Errorf("unknown remote driver %q", cfg.Driver)
	}
}

// InitRemoteStore opens the configured remote store. On failure the process
// runs local-only: the error is logged, the user is told once, and nil is
// returned.
func InitRemoteStore(ctx context.Context, cfg config.RemoteConfig, notifier Notifier, logger *zap.Logger) store.DocumentStore {
	remote, err := OpenRemoteStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize remote store, using local backup only",
			zap.String("driver", cfg.Driver),
			zap.Error(err),
		)
		if notifier != nil {
			notifier.Notify(NoticeError, "Failed to initialize remote storage. Activity is being saved locally.")
		}
		return nil
	}
	if remote == nil {
		logger.Info("Remote store disabled, using local backup only")
	}
	return remote
}

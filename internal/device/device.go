package device

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserIDKey is the secret store key holding the per-installation user id
const UserIDKey = "installationUserId"

// DeviceManager resolves the user id events are attributed to
type DeviceManager struct {
	secrets SecretStore
	logger  *zap.Logger
}

// NewDeviceManager creates a new device manager
func NewDeviceManager(secrets SecretStore, logger *zap.Logger) *DeviceManager {
	return &DeviceManager{
		secrets: secrets,
		logger:  logger,
	}
}

// GetOrGenerateUserID returns the configured id if set, then the stored
// installation id, and otherwise generates and stores a new one
func (dm *DeviceManager) GetOrGenerateUserID(ctx context.Context, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	existing, ok, err := dm.secrets.Get(ctx, UserIDKey)
	if err != nil {
		return "", fmt.Errorf("failed to read user id: %w", err)
	}
	if ok && existing != "" {
		return existing, nil
	}

	userID := uuid.New().String()
	if err := dm.secrets.Set(ctx, UserIDKey, userID); err != nil {
		return "", fmt.Errorf("failed to store user id: %w", err)
	}

	dm.logger.Info("Generated installation user id",
		zap.String("user_id", userID),
	)
	return userID, nil
}

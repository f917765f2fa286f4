package main

import (
	"context"
	"fmt"

	"Mansoor88-6/coding-activity-agent/internal/backup"
	"Mansoor88-6/coding-activity-agent/internal/config"
	"Mansoor88-6/coding-activity-agent/internal/device"
	"Mansoor88-6/coding-activity-agent/internal/logger"
	"Mansoor88-6/coding-activity-agent/internal/service"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds what PersistentPreRunE loaded for the subcommands
type app struct {
	configPath string
	cfg        *config.Config
	log        *logger.Logger
	fs         afero.Fs
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{fs: afero.NewOsFs()}

	rootCmd := &cobra.Command{
		Use:          "activity-agent",
		Short:        "Record coding activity and idle periods from the editor",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg

			log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.log = log
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "config/local.yaml", "Path to configuration file")

	rootCmd.AddCommand(
		newRunCmd(a),
		newEventsCmd(a),
		newWhoamiCmd(a),
	)
	return rootCmd, a
}

// sync flushes the logger whether or not the command succeeded
func (a *app) sync() {
	if a.log != nil {
		a.log.Sync()
	}
}

func (a *app) secretStore() device.SecretStore {
	if a.cfg.Secrets.Driver == config.SecretsKeyring {
		return device.NewKeyringSecretStore(a.cfg.Secrets.Service)
	}
	return device.NewFileSecretStore(a.fs, a.cfg.SecretsPath())
}

func (a *app) userID(ctx context.Context) (string, error) {
	dm := device.NewDeviceManager(a.secretStore(), a.log.Logger)
	return dm.GetOrGenerateUserID(ctx, a.cfg.Device.UserID)
}

// newSink wires the event sink. notifier may be nil.
func (a *app) newSink(ctx context.Context, userID string, notifier service.Notifier) (*service.EventSink, func()) {
	remote := service.InitRemoteStore(ctx, a.cfg.Remote, notifier, a.log.Logger)
	local := backup.NewLocalStore(a.fs, a.cfg.BackupDir(), a.log.Logger)
	sink := service.NewEventSink(remote, local, a.cfg.Remote.Collection, userID, a.log.Logger)

	closeFn := func() {}
	if remote != nil {
		closeFn = func() {
			if err := remote.Close(); err != nil {
				a.log.Warn("Failed to close remote store", zap.Error(err))
			}
		}
	}
	return sink, closeFn
}

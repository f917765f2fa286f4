package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Mansoor88-6/coding-activity-agent/internal/collector"
	"Mansoor88-6/coding-activity-agent/internal/editor"
	"Mansoor88-6/coding-activity-agent/internal/handler"
	"Mansoor88-6/coding-activity-agent/internal/router"
	"Mansoor88-6/coding-activity-agent/internal/server"
	"Mansoor88-6/coding-activity-agent/internal/service"
	"Mansoor88-6/coding-activity-agent/internal/tracker"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Track editor activity until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.run(ctx)
		},
	}
}

func (a *app) run(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	log.Info("Starting coding activity agent",
		zap.String("env", cfg.Env),
		zap.String("config_path", a.configPath),
		zap.String("remote_driver", cfg.Remote.Driver),
	)

	userID, err := a.userID(ctx)
	if err != nil {
		return err
	}

	notices := service.NewNoticeBoard(cfg.Server.NoticeTTL, log.Logger)
	defer notices.Stop()

	sink, closeRemote := a.newSink(ctx, userID, notices)
	defer closeRemote()

	bus := editor.NewBus()
	eventCollector := collector.NewEventCollector(sink, cfg.Tracking.QueueSize, log.Logger)
	activityTracker := tracker.NewActivityTracker(
		bus,
		eventCollector,
		cfg.Tracking.IdleThreshold,
		cfg.HostVersion,
		log.Logger,
		tracker.WithIdleCheckInterval(cfg.Tracking.IdleCheckInterval),
	)

	var watcher *editor.WorkspaceWatcher
	if cfg.Workspace.Watch && len(cfg.Workspace.Paths) > 0 {
		watcher = editor.NewWorkspaceWatcher(bus, cfg.Workspace.Paths, log.Logger)
	}

	trackingService := service.NewTrackingService(activityTracker, eventCollector, watcher, userID, log.Logger)

	// Sink writes must outlive the signal so the final drain still reaches the remote store
	if err := trackingService.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	var httpServer *http.Server
	if !cfg.Server.Disabled {
		addr := fmt.Sprintf("localhost:%d", cfg.Server.Port)
		httpServer = &http.Server{
			Addr: addr,
			Handler: router.New(
				server.NewBridgeServer(bus, trackingService, log.Logger),
				handler.NewEventHandler(sink, notices, log.Logger),
				cfg.Server.AllowedOrigins,
				log.Logger,
			),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		g.Go(func() error {
			log.Info("Starting bridge server", zap.String("address", addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("bridge server: %w", err)
			}
			return nil
		})
	} else {
		log.Info("Bridge server disabled in configuration")
	}

	log.Info("Coding activity agent started", zap.String("user_id", userID))

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down coding activity agent")

		// session_end first, then the drain, then the bridge
		trackingService.Stop()

		if httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Warn("Bridge server shutdown error", zap.Error(err))
			} else {
				log.Info("Bridge server stopped")
			}
		}
		return nil
	})

	err = g.Wait()
	log.Info("Coding activity agent stopped")
	return err
}

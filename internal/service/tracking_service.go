package service

import (
	"context"
	"fmt"
	"sync"

	"Mansoor88-6/coding-activity-agent/internal/collector"
	"Mansoor88-6/coding-activity-agent/internal/editor"
	"Mansoor88-6/coding-activity-agent/internal/tracker"

	"go.uber.org/zap"
)

// TrackingService orchestrates the tracking components for one session
type TrackingService struct {
	activityTracker *tracker.ActivityTracker
	eventCollector  *collector.EventCollector
	watcher         *editor.WorkspaceWatcher // Optional
	userID          string
	logger          *zap.Logger

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewTrackingService creates a new tracking service. watcher may be nil.
func NewTrackingService(
	activityTracker *tracker.ActivityTracker,
	eventCollector *collector.EventCollector,
	watcher *editor.WorkspaceWatcher,
	userID string,
	logger *zap.Logger,
) *TrackingService {
	return &TrackingService{
		activityTracker: activityTracker,
		eventCollector:  eventCollector,
		watcher:         watcher,
		userID:          userID,
		logger:          logger,
	}
}

// Start begins tracking. ctx bounds the collector's writes to the sink.
func (ts *TrackingService) Start(ctx context.Context) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.started {
		return fmt.Errorf("tracking service already started")
	}
	ts.started = true

	ts.logger.Info("Starting tracking service", zap.String("user_id", ts.userID))

	// Start the writer first so session_start is queued behind nothing
	ts.eventCollector.Start(ctx)

	if err := ts.activityTracker.StartTracking(); err != nil {
		ts.eventCollector.Stop()
		return fmt.Errorf("failed to start activity tracker: %w", err)
	}

	if ts.watcher != nil {
		if err := ts.watcher.Start(); err != nil {
			// Editor notifications still arrive over the bridge
			ts.logger.Warn("Failed to start workspace watcher", zap.Error(err))
			ts.watcher = nil
		}
	}

	ts.logger.Info("Tracking service started")
	return nil
}

// Stop ends the session and waits for every event to reach the sink
func (ts *TrackingService) Stop() {
	ts.mu.Lock()
	if ts.stopped || !ts.started {
		ts.stopped = true
		ts.mu.Unlock()
		return
	}
	ts.stopped = true
	ts.mu.Unlock()

	ts.logger.Info("Stopping tracking service")

	// Watcher first so no notification races the session_end
	if ts.watcher != nil {
		ts.watcher.Stop()
	}

	// Emits session_end
	ts.activityTracker.Dispose()

	// Drains the queue
	ts.eventCollector.Stop()

	ts.logger.Info("Tracking service stopped")
}

// GetStatus returns the current tracking status
func (ts *TrackingService) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		"user_id":           ts.userID,
		"current_state":     string(ts.activityTracker.State()),
		"last_activity":     ts.activityTracker.LastActivity(),
		"collector_pending": ts.eventCollector.GetPendingCount(),
	}
}

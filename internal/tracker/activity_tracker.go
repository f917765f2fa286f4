package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"Mansoor88-6/coding-activity-agent/internal/editor"
	"Mansoor88-6/coding-activity-agent/internal/models"

	"go.uber.org/zap"
)

// ActivityState represents the current activity state
type ActivityState string

const (
	StateActive   ActivityState = "active"
	StateIdle     ActivityState = "idle"
	StateDisposed ActivityState = "disposed"
)

const (
	DefaultIdleThreshold     = 5 * time.Minute
	DefaultIdleCheckInterval = 60 * time.Second
)

var (
	ErrAlreadyStarted = errors.New("activity tracker already started")
	ErrDisposed       = errors.New("activity tracker disposed")
)

// EventRecorder receives every event the tracker emits
type EventRecorder interface {
	Record(ctx context.Context, event models.Event) models.RecordResult
}

// Option configures an ActivityTracker
type Option func(*ActivityTracker)

// WithClock replaces time.Now as the source of event timestamps
func WithClock(now func() time.Time) Option {
	return func(at *ActivityTracker) { at.now = now }
}

// WithIdleCheckInterval sets the period of the idle check
func WithIdleCheckInterval(d time.Duration) Option {
	return func(at *ActivityTracker) { at.checkInterval = d }
}

// ActivityTracker turns editor notifications into activity events and
// detects idle periods
type ActivityTracker struct {
	source        editor.Source
	recorder      EventRecorder
	idleThreshold time.Duration
	checkInterval time.Duration
	hostVersion   string
	now           func() time.Time
	logger        *zap.Logger

	// mu guards the state below and is held across emission so an idle_end
	// and its activity reach the recorder back to back
	mu           sync.Mutex
	lastActivity time.Time
	isIdle       bool
	started      bool
	disposed     bool
	disposables  []editor.Disposable

	checkTicker *time.Ticker
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// NewActivityTracker creates a new activity tracker
func NewActivityTracker(
	source editor.Source,
	recorder EventRecorder,
	idleThreshold time.Duration,
	hostVersion string,
	logger *zap.Logger,
	opts ...Option,
) *ActivityTracker {
	at := &ActivityTracker{
		source:        source,
		recorder:      recorder,
		idleThreshold: idleThreshold,
		checkInterval: DefaultIdleCheckInterval,
		hostVersion:   hostVersion,
		now:           time.Now,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(at)
	}
	if at.idleThreshold <= 0 {
		at.idleThreshold = DefaultIdleThreshold
	}
	at.lastActivity = at.timestamp()
	return at
}

// StartTracking emits session_start, subscribes to editor notifications and
// starts the periodic idle check
func (at *ActivityTracker) StartTracking() error {
	at.mu.Lock()
	if at.disposed {
		at.mu.Unlock()
		return ErrDisposed
	}
	if at.started {
		at.mu.Unlock()
		return ErrAlreadyStarted
	}
	at.started = true
	now := at.timestamp()
	at.lastActivity = now
	at.emit(models.NewEvent(now, models.SessionStart{HostVersion: at.hostVersion}))

	at.disposables = append(at.disposables,
		at.source.Subscribe(editor.NotifyEditorChange, at.onEditorChange),
		at.source.Subscribe(editor.NotifyTextChange, at.onTextChange),
		at.source.Subscribe(editor.NotifySave, at.onSave),
		at.source.Subscribe(editor.NotifyWindowState, at.onWindowState),
	)

	at.checkTicker = time.NewTicker(at.checkInterval)
	at.wg.Add(1)
	go at.idleCheckLoop()
	at.mu.Unlock()

	at.logger.Info("Activity tracker started",
		zap.Duration("idle_threshold", at.idleThreshold),
		zap.Duration("idle_check_interval", at.checkInterval),
		zap.String("host_version", at.hostVersion),
	)
	return nil
}

// Dispose emits session_end, releases subscriptions and stops the idle
// check. Later calls are no-ops.
func (at *ActivityTracker) Dispose() {
	at.mu.Lock()
	if at.disposed {
		at.mu.Unlock()
		return
	}
	at.emit(models.NewEvent(at.timestamp(), models.SessionEnd{}))
	at.disposed = true
	disposables := at.disposables
	at.disposables = nil
	close(at.stopChan)
	at.mu.Unlock()

	for _, d := range disposables {
		d.Dispose()
	}

	at.wg.Wait()
	if at.checkTicker != nil {
		at.checkTicker.Stop()
	}
	at.logger.Info("Activity tracker disposed")
}

// State returns the current activity state
func (at *ActivityTracker) State() ActivityState {
	at.mu.Lock()
	defer at.mu.Unlock()
	switch {
	case at.disposed:
		return StateDisposed
	case at.isIdle:
		return StateIdle
	default:
		return StateActive
	}
}

// LastActivity returns the timestamp of last activity
func (at *ActivityTracker) LastActivity() time.Time {
	at.mu.Lock()
	defer at.mu.Unlock()
	return at.lastActivity
}

// RecordActivity records an activity event, ending an idle period first if
// one is open
func (at *ActivityTracker) RecordActivity(payload models.ActivityPayload) {
	at.mu.Lock()
	defer at.mu.Unlock()

	if at.disposed {
		return
	}

	now := at.timestamp()
	if at.isIdle {
		at.isIdle = false
		idleFor := now.Sub(at.lastActivity)
		at.emit(models.NewEvent(now, models.IdleEnd{IdleDurationMs: idleFor.Milliseconds()}))
		at.logger.Info("Activity state changed",
			zap.String("old_state", string(StateIdle)),
			zap.String("new_state", string(StateActive)),
			zap.Duration("idle_duration", idleFor),
		)
	}

	at.lastActivity = now
	at.emit(models.NewEvent(now, payload))
}

// CheckIdle runs one idle check. It is what the ticker calls every interval.
func (at *ActivityTracker) CheckIdle() {
	at.mu.Lock()
	defer at.mu.Unlock()

	if at.disposed || at.isIdle {
		return
	}

	now := at.timestamp()
	if now.Sub(at.lastActivity) <= at.idleThreshold {
		return
	}

	at.isIdle = true
	at.emit(models.NewEvent(now, models.IdleStart{IdleThresholdMs: at.idleThreshold.Milliseconds()}))
	at.logger.Info("Activity state changed",
		zap.String("old_state", string(StateActive)),
		zap.String("new_state", string(StateIdle)),
		zap.Time("last_activity", at.lastActivity),
	)
}

func (at *ActivityTracker) idleCheckLoop() {
	defer at.wg.Done()

	for {
		select {
		case <-at.checkTicker.C:
			at.CheckIdle()
		case <-at.stopChan:
			return
		}
	}
}

func (at *ActivityTracker) onEditorChange(n editor.Notification) {
	// The editor reports a change to "no active editor" when the last tab closes
	if n.Document == "" {
		return
	}
	at.RecordActivity(models.EditorChange{Document: n.Document})
}

func (at *ActivityTracker) onTextChange(n editor.Notification) {
	at.RecordActivity(models.TextEdit{Document: n.Document, Changes: n.Changes})
}

func (at *ActivityTracker) onSave(n editor.Notification) {
	at.RecordActivity(models.DocumentSave{Document: n.Document})
}

func (at *ActivityTracker) onWindowState(n editor.Notification) {
	if n.Focused {
		at.RecordActivity(models.WindowFocus{})
	} else {
		at.RecordActivity(models.WindowBlur{})
	}
}

// emit must be called with mu held
func (at *ActivityTracker) emit(event models.Event) {
	at.recorder.Record(context.Background(), event)
}

// timestamp truncates to the millisecond precision events are stored with
func (at *ActivityTracker) timestamp() time.Time {
	return at.now().Truncate(time.Millisecond)
}

package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"Mansoor88-6/coding-activity-agent/internal/backup"
	"Mansoor88-6/coding-activity-agent/internal/models"
	"Mansoor88-6/coding-activity-agent/internal/store"

	"go.uber.org/zap"
)

// DefaultCollection is the remote collection events are written to
const DefaultCollection = "coding-activity-events"

// SinkOption configures an EventSink
type SinkOption func(*EventSink)

// WithSinkClock replaces time.Now when picking the local backup file date
func WithSinkClock(now func() time.Time) SinkOption {
	return func(s *EventSink) { s.now = now }
}

// EventSink persists events to the remote document store and falls back to
// per-day local files when the remote is missing or failing
type EventSink struct {
	remote     store.DocumentStore
	local      *backup.LocalStore
	collection string
	userID     string
	now        func() time.Time
	logger     *zap.Logger
}

// NewEventSink creates a sink. A nil remote means local-only.
func NewEventSink(
	remote store.DocumentStore,
	local *backup.LocalStore,
	collection string,
	userID string,
	logger *zap.Logger,
	opts ...SinkOption,
) *EventSink {
	if collection == "" {
		collection = DefaultCollection
	}
	s := &EventSink{
		remote:     remote,
		local:      local,
		collection: collection,
		userID:     userID,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UserID returns the id every remote record is tagged with
func (s *EventSink) UserID() string {
	return s.userID
}

// Record persists one event. It never fails observably: the result says
// where the event went.
func (s *EventSink) Record(ctx context.Context, event models.Event) models.RecordResult {
	var remoteErr error
	if s.remote != nil {
		remoteErr = s.writeRemote(ctx, event)
		if remoteErr == nil {
			return models.RecordResult{Destination: models.DestinationRemote}
		}
		s.logger.Warn("Failed to write event to remote store, saving locally",
			zap.Error(remoteErr),
			zap.String("type", string(event.Kind())),
			zap.String("collection", s.collection),
		)
	}

	day := s.now()
	if err := s.local.Append(day, event); err != nil {
		s.logger.Error("Failed to save event to local backup",
			zap.Error(err),
			zap.String("type", string(event.Kind())),
			zap.String("path", s.local.FilePath(day)),
		)
		return models.RecordResult{Destination: models.DestinationLost, Err: err}
	}

	return models.RecordResult{Destination: models.DestinationLocal, Err: remoteErr}
}

func (s *EventSink) writeRemote(ctx context.Context, event models.Event) error {
	fields, err := models.ToRecord(s.userID, event)
	if err != nil {
		return err
	}
	if _, err := s.remote.Write(ctx, s.collection, "", fields); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// GetEventsInRange returns the events between start and end inclusive.
// The remote store answers when it can; otherwise the local files of every
// calendar date in the range are concatenated. The two are never merged.
func (s *EventSink) GetEventsInRange(ctx context.Context, start, end time.Time) ([]models.Event, models.Destination) {
	if s.remote != nil {
		events, err := s.queryRemote(ctx, start, end)
		if err == nil {
			return events, models.DestinationRemote
		}
		s.logger.Warn("Failed to query remote store, reading local backup",
			zap.Error(err),
			zap.Time("start", start),
			zap.Time("end", end),
		)
	}

	return s.local.ReadRange(start, end), models.DestinationLocal
}

func (s *EventSink) queryRemote(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	docs, err := s.remote.Query(ctx, s.collection,
		store.Filter{Field: models.FieldUserID, Op: store.OpEqual, Value: s.userID},
		store.Filter{Field: models.FieldTimestamp, Op: store.OpGreaterOrEqual, Value: models.FormatISO(start)},
		store.Filter{Field: models.FieldTimestamp, Op: store.OpLessOrEqual, Value: models.FormatISO(end)},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	events := make([]models.Event, 0, len(docs))
	for _, doc := range docs {
		event, err := models.EventFromRecord(doc.Fields)
		if err != nil {
			s.logger.Warn("Skipping malformed remote record",
				zap.String("id", doc.ID),
				zap.Error(err),
			)
			continue
		}
		events = append(events, event)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events, nil
}

// DayBounds returns the first and last millisecond of day's calendar date
func DayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end
}

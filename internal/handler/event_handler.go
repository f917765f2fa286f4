package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"Mansoor88-6/coding-activity-agent/internal/models"
	"Mansoor88-6/coding-activity-agent/internal/service"

	"go.uber.org/zap"
)

// DateLayout is the format of the start and end query parameters
const DateLayout = "2006-01-02"

// EventReader is the read side of the event sink
type EventReader interface {
	GetEventsInRange(ctx context.Context, start, end time.Time) ([]models.Event, models.Destination)
}

// NoticeLister lists user-visible notices
type NoticeLister interface {
	List() []service.Notice
}

// EventsResponse is the body of the events endpoint
type EventsResponse struct {
	Source models.Destination `json:"source"`
	Events []models.Event     `json:"events"`
}

type EventHandler struct {
	events  EventReader
	notices NoticeLister
	logger  *zap.Logger
}

func NewEventHandler(events EventReader, notices NoticeLister, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		events:  events,
		notices: notices,
		logger:  logger,
	}
}

// GetEvents returns the events of every calendar day from start to end.
// end defaults to start.
func (h *EventHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	startStr := r.URL.Query().Get("start")
	if startStr == "" {
		http.Error(w, "Missing start parameter", http.StatusBadRequest)
		return
	}
	start, err := time.ParseInLocation(DateLayout, startStr, time.Local)
	if err != nil {
		http.Error(w, "Invalid start parameter", http.StatusBadRequest)
		return
	}

	end := start
	if endStr := r.URL.Query().Get("end"); endStr != "" {
		end, err = time.ParseInLocation(DateLayout, endStr, time.Local)
		if err != nil {
			http.Error(w, "Invalid end parameter", http.StatusBadRequest)
			return
		}
	}
	if end.Before(start) {
		http.Error(w, "end is before start", http.StatusBadRequest)
		return
	}

	from, _ := service.DayBounds(start)
	_, to := service.DayBounds(end)
	events, source := h.events.GetEventsInRange(r.Context(), from, to)

	h.logger.Debug("Events read",
		zap.String("start", startStr),
		zap.String("source", string(source)),
		zap.Int("count", len(events)),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(EventsResponse{Source: source, Events: events})
}

// GetNotices returns the unexpired notices
func (h *EventHandler) GetNotices(w http.ResponseWriter, r *http.Request) {
	notices := []service.Notice{}
	if h.notices != nil {
		notices = h.notices.List()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"notices": notices,
	})
}

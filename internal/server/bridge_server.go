package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"Mansoor88-6/coding-activity-agent/internal/editor"

	"go.uber.org/zap"
)

// maxBodyBytes bounds editor event bodies
const maxBodyBytes = 64 << 10

// EditorEventRequest is the body the editor shim posts for each notification
type EditorEventRequest struct {
	Kind     editor.NotificationKind `json:"kind"`
	Document string                  `json:"document"`
	Changes  int                     `json:"changes"`
	Focused  bool                    `json:"focused"`
}

// StatusReporter describes the running tracking session
type StatusReporter interface {
	GetStatus() map[string]interface{}
}

// BridgeServer receives editor notifications from the editor shim
type BridgeServer struct {
	publisher editor.Publisher
	status    StatusReporter
	logger    *zap.Logger
}

// NewBridgeServer creates a new bridge server. status may be nil.
func NewBridgeServer(publisher editor.Publisher, status StatusReporter, logger *zap.Logger) *BridgeServer {
	return &BridgeServer{
		publisher: publisher,
		status:    status,
		logger:    logger,
	}
}

// HandleEditorEvent publishes one editor notification
func (s *BridgeServer) HandleEditorEvent(w http.ResponseWriter, r *http.Request) {
	var req EditorEventRequest

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.logger.Warn("Failed to decode editor event request", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !req.Kind.Valid() {
		s.logger.Warn("Rejected unknown editor event kind",
			zap.String("kind", string(req.Kind)),
		)
		http.Error(w, "Invalid event kind", http.StatusBadRequest)
		return
	}
	if req.Changes < 0 {
		http.Error(w, "Invalid changes count", http.StatusBadRequest)
		return
	}

	s.publisher.Publish(editor.Notification{
		Kind:     req.Kind,
		Document: req.Document,
		Changes:  req.Changes,
		Focused:  req.Focused,
	})

	s.logger.Debug("Editor event received",
		zap.String("kind", string(req.Kind)),
		zap.String("document", req.Document),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// HandleHealth provides a health check endpoint
func (s *BridgeServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	}
	if s.status != nil {
		body["tracking"] = s.status.GetStatus()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}

// OriginAllowed reports whether a browser origin may call the bridge.
// Entries match as prefixes so "vscode-webview://" admits every webview.
// Requests without an Origin header do not come from a browser page and
// are always allowed.
func OriginAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if a != "" && strings.HasPrefix(origin, a) {
			return true
		}
	}
	return false
}

// SetCORSHeaders sets CORS headers for an allowed editor webview origin
func SetCORSHeaders(w http.ResponseWriter, origin string) {
	w.Header().Add("Vary", "Origin")
	if origin == "" {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

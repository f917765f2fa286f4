package router

import (
	"net/http"

	"Mansoor88-6/coding-activity-agent/internal/handler"
	"Mansoor88-6/coding-activity-agent/internal/server"

	"go.uber.org/zap"
)

// New builds the bridge routes. Browser requests are only served for
// origins in allowedOrigins.
func New(bridge *server.BridgeServer, eventHandler *handler.EventHandler, allowedOrigins []string, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", bridge.HandleHealth)
	mux.HandleFunc("POST /api/v1/editor-events", bridge.HandleEditorEvent)
	mux.HandleFunc("GET /api/v1/events", eventHandler.GetEvents)
	mux.HandleFunc("GET /api/v1/notices", eventHandler.GetNotices)

	// CORS and logging middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if !server.OriginAllowed(origin, allowedOrigins) {
			logger.Warn("Rejected request from disallowed origin",
				zap.String("origin", origin),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
			http.Error(w, "Origin not allowed", http.StatusForbidden)
			return
		}

		server.SetCORSHeaders(w, origin)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
		)
		mux.ServeHTTP(w, r)
	})
}

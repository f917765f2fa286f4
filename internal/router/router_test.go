package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"Mansoor88-6/coding-activity-agent/internal/editor"
	"Mansoor88-6/coding-activity-agent/internal/handler"
	"Mansoor88-6/coding-activity-agent/internal/models"
	"Mansoor88-6/coding-activity-agent/internal/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type emptyReader struct{}

func (emptyReader) GetEventsInRange(context.Context, time.Time, time.Time) ([]models.Event, models.Destination) {
	return []models.Event{}, models.DestinationLocal
}

func newTestRouter(t *testing.T, bus *editor.Bus) http.Handler {
	logger := zaptest.NewLogger(t)
	return New(
		server.NewBridgeServer(bus, nil, logger),
		handler.NewEventHandler(emptyReader{}, nil, logger),
		[]string{"vscode-webview://"},
		logger,
	)
}

func TestRoutes(t *testing.T) {
	bus := editor.NewBus()
	var saves atomic.Int32
	bus.Subscribe(editor.NotifySave, func(editor.Notification) { saves.Add(1) })

	srv := httptest.NewServer(newTestRouter(t, bus))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/editor-events", strings.NewReader(`{"kind":"save","document":"a.go"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "vscode-webview://abc123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, int32(1), saves.Load())
	assert.Equal(t, "vscode-webview://abc123", resp.Header.Get("Access-Control-Allow-Origin"))

	for _, path := range []string{"/api/v1/health", "/api/v1/events?start=2024-01-01", "/api/v1/notices"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err = http.Get(srv.URL + "/api/v1/editor-events")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/editor-events", nil)
	req.Header.Set("Origin", "vscode-webview://abc123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRejectsForeignOrigin(t *testing.T) {
	bus := editor.NewBus()
	var saves atomic.Int32
	bus.Subscribe(editor.NotifySave, func(editor.Notification) { saves.Add(1) })

	srv := httptest.NewServer(newTestRouter(t, bus))
	defer srv.Close()

	for _, tc := range []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/v1/events?start=2024-01-01", ""},
		{http.MethodPost, "/api/v1/editor-events", `{"kind":"save","document":"x.go"}`},
		{http.MethodOptions, "/api/v1/events", ""},
	} {
		req, _ := http.NewRequest(tc.method, srv.URL+tc.path, strings.NewReader(tc.body))
		req.Header.Set("Origin", "https://evil.example")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, tc.path)
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	}
	assert.Zero(t, saves.Load())
}

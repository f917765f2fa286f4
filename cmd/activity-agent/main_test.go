package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Mansoor88-6/coding-activity-agent/internal/backup"
	"Mansoor88-6/coding-activity-agent/internal/config"
	"Mansoor88-6/coding-activity-agent/internal/handler"
	"Mansoor88-6/coding-activity-agent/internal/logger"
	"Mansoor88-6/coding-activity-agent/internal/models"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeConfig(t *testing.T, root string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	body := fmt.Sprintf(`storage_root: %q
log:
  level: error
  format: json
remote:
  driver: none
server:
  disabled: true
`, root)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd, _ := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestWhoamiIsStable(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir())

	first := strings.TrimSpace(execute(t, "--config", cfgPath, "whoami"))
	_, err := uuid.Parse(first)
	require.NoError(t, err)

	second := strings.TrimSpace(execute(t, "--config", cfgPath, "whoami"))
	assert.Equal(t, first, second)
}

func TestEventsReadsLocalBackup(t *testing.T) {
	root := t.TempDir()
	cfgPath := writeConfig(t, root)

	local := backup.NewLocalStore(afero.NewOsFs(), filepath.Join(root, "coding-activity-data"), zaptest.NewLogger(t))
	day := time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local)
	require.NoError(t, local.Append(day, models.NewEvent(day, models.SessionStart{HostVersion: "1.95.0"})))
	require.NoError(t, local.Append(day, models.NewEvent(day.Add(time.Minute), models.DocumentSave{Document: "main.go"})))

	out := execute(t, "--config", cfgPath, "events", "--from", "2024-01-01")
	assert.Contains(t, out, "Source: local")
	assert.Contains(t, out, "Events: 2")
	assert.Contains(t, out, "activity/document_save")

	out = execute(t, "--config", cfgPath, "events", "--from", "2023-12-31", "--to", "2024-01-01", "--json")
	var resp handler.EventsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, models.DestinationLocal, resp.Source)
	assert.Len(t, resp.Events, 2)
}

func TestEventsRejectsBadRange(t *testing.T) {
	cmd, a := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", writeConfig(t, t.TempDir()), "events", "--from", "2024-01-02", "--to", "2024-01-01"})
	assert.Error(t, cmd.Execute())

	// a failed command still leaves the logger for main to flush
	require.NotNil(t, a.log)
	assert.NotPanics(t, a.sync)
}

func TestRunRecordsSessionLocally(t *testing.T) {
	root := t.TempDir()
	cfg, err := config.LoadConfig(writeConfig(t, root))
	require.NoError(t, err)

	a := &app{
		cfg: cfg,
		log: &logger.Logger{Logger: zaptest.NewLogger(t)},
		fs:  afero.NewOsFs(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}

	local := backup.NewLocalStore(afero.NewOsFs(), cfg.BackupDir(), zaptest.NewLogger(t))
	events := local.ReadRange(time.Now().AddDate(0, 0, -1), time.Now())
	require.Len(t, events, 2)
	assert.Equal(t, models.KindSessionStart, events[0].Kind())
	assert.Equal(t, models.KindSessionEnd, events[1].Kind())
}

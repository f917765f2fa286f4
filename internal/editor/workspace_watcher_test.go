package editor

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingPublisher struct {
	mu    sync.Mutex
	saved []string
}

func (p *recordingPublisher) Publish(n Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, n.Document)
}

func (p *recordingPublisher) documents() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.saved...)
}

func TestWorkspaceWatcherPublishesSaves(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))

	pub := &recordingPublisher{}
	ww := NewWorkspaceWatcher(pub, []string{root}, zaptest.NewLogger(t))
	require.NoError(t, ww.Start())
	defer ww.Stop()

	file := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(file, []byte("package main\n"), 0o644))

	require.Eventually(t, func() bool {
		for _, doc := range pub.documents() {
			if doc == file {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	ignored := filepath.Join(root, "node_modules", "dep.js")
	require.NoError(t, os.WriteFile(ignored, []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.NotContains(t, pub.documents(), ignored)
}

func TestWorkspaceWatcherStartFailsForMissingRoot(t *testing.T) {
	ww := NewWorkspaceWatcher(&recordingPublisher{}, []string{filepath.Join(t.TempDir(), "nope")}, zaptest.NewLogger(t))
	assert.Error(t, ww.Start())
}

func TestWorkspaceWatcherStopIsIdempotent(t *testing.T) {
	ww := NewWorkspaceWatcher(&recordingPublisher{}, []string{t.TempDir()}, zaptest.NewLogger(t))
	require.NoError(t, ww.Start())
	ww.Stop()
	ww.Stop()
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"Mansoor88-6/coding-activity-agent/internal/backup"
	"Mansoor88-6/coding-activity-agent/internal/models"
	"Mansoor88-6/coding-activity-agent/internal/store"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errUnavailable = errors.New("remote unavailable")

// failingStore errors on every call
type failingStore struct {
	calls int
}

func (f *failingStore) Write(context.Context, string, string, map[string]any) (string, error) {
	f.calls++
	return "", errUnavailable
}

func (f *failingStore) Get(context.Context, string, string) (map[string]any, error) {
	f.calls++
	return nil, errUnavailable
}

func (f *failingStore) Query(context.Context, string, ...store.Filter) ([]store.Document, error) {
	f.calls++
	return nil, errUnavailable
}

func (f *failingStore) Close() error { return nil }

// memStore evaluates filters on string fields the way the real drivers do
type memStore struct {
	mu   sync.Mutex
	docs map[string][]store.Document
	seq  int
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string][]store.Document)}
}

func (m *memStore) Write(_ context.Context, collection, id string, fields map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if id == "" {
		id = string(rune('a' + m.seq))
	}
	m.docs[collection] = append(m.docs[collection], store.Document{ID: id, Fields: fields})
	return id, nil
}

func (m *memStore) Get(_ context.Context, collection, id string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs[collection] {
		if d.ID == id {
			return d.Fields, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) Query(_ context.Context, collection string, filters ...store.Filter) ([]store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Document
	for _, d := range m.docs[collection] {
		if matches(d.Fields, filters) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs[collection])
}

func matches(fields map[string]any, filters []store.Filter) bool {
	for _, f := range filters {
		got, _ := fields[f.Field].(string)
		want, _ := f.Value.(string)
		var ok bool
		switch f.Op {
		case store.OpEqual:
			ok = got == want
		case store.OpGreaterOrEqual:
			ok = got >= want
		case store.OpLessOrEqual:
			ok = got <= want
		case store.OpGreater:
			ok = got > want
		case store.OpLess:
			ok = got < want
		}
		if !ok {
			return false
		}
	}
	return true
}

var jan1 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local)

func newSink(t *testing.T, remote store.DocumentStore) (*EventSink, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	local := backup.NewLocalStore(fs, "/data/coding-activity-data", zaptest.NewLogger(t))
	sink := NewEventSink(remote, local, "", "user-1", zaptest.NewLogger(t),
		WithSinkClock(func() time.Time { return jan1 }),
	)
	return sink, fs
}

func threeEvents() []models.Event {
	return []models.Event{
		models.NewEvent(jan1, models.SessionStart{HostVersion: "1.95.0"}),
		models.NewEvent(jan1.Add(time.Second), models.TextEdit{Document: "main.go", Changes: 2}),
		models.NewEvent(jan1.Add(2*time.Second), models.DocumentSave{Document: "main.go"}),
	}
}

func TestRecordFallsBackWhenRemoteFails(t *testing.T) {
	remote := &failingStore{}
	sink, fs := newSink(t, remote)
	ctx := context.Background()

	for _, ev := range threeEvents() {
		res := sink.Record(ctx, ev)
		assert.Equal(t, models.DestinationLocal, res.Destination)
		assert.ErrorIs(t, res.Err, errUnavailable)
	}
	assert.Equal(t, 3, remote.calls)

	data, err := afero.ReadFile(fs, "/data/coding-activity-data/2024-01-01.json")
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 3)
	assert.Equal(t, "session_start", raw[0]["type"])
	assert.Equal(t, "activity", raw[1]["type"])
	assert.Equal(t, "text_edit", raw[1]["subtype"])
	assert.Equal(t, "document_save", raw[2]["subtype"])
	assert.Contains(t, string(data), "\n  {", "pretty-printed with two spaces")
}

func TestRecordGoesRemoteWhenHealthy(t *testing.T) {
	remote := newMemStore()
	sink, fs := newSink(t, remote)

	for _, ev := range threeEvents() {
		res := sink.Record(context.Background(), ev)
		assert.Equal(t, models.DestinationRemote, res.Destination)
		assert.NoError(t, res.Err)
	}
	assert.Equal(t, 3, remote.count(DefaultCollection))

	exists, err := afero.Exists(fs, "/data/coding-activity-data/2024-01-01.json")
	require.NoError(t, err)
	assert.False(t, exists)

	doc := remote.docs[DefaultCollection][0].Fields
	assert.Equal(t, "user-1", doc[models.FieldUserID])
	assert.Equal(t, "session_start", doc[models.FieldType])
}

func TestRecordWithoutRemoteIsLocal(t *testing.T) {
	sink, _ := newSink(t, nil)

	res := sink.Record(context.Background(), threeEvents()[0])
	assert.Equal(t, models.DestinationLocal, res.Destination)
	assert.NoError(t, res.Err)
}

func TestRecordLostWhenLocalFails(t *testing.T) {
	local := backup.NewLocalStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/data", zaptest.NewLogger(t))
	sink := NewEventSink(&failingStore{}, local, "", "user-1", zaptest.NewLogger(t))

	res := sink.Record(context.Background(), threeEvents()[0])
	assert.Equal(t, models.DestinationLost, res.Destination)
	assert.Error(t, res.Err)
}

func TestGetEventsInRangeRemote(t *testing.T) {
	remote := newMemStore()
	sink, _ := newSink(t, remote)
	ctx := context.Background()

	events := threeEvents()
	// written out of order; the read path sorts by timestamp
	for _, i := range []int{2, 0, 1} {
		sink.Record(ctx, events[i])
	}
	other := NewEventSink(remote, nil, "", "user-2", zaptest.NewLogger(t))
	other.Record(ctx, models.NewEvent(jan1, models.WindowFocus{}))

	start, end := DayBounds(jan1)
	got, src := sink.GetEventsInRange(ctx, start, end)
	assert.Equal(t, models.DestinationRemote, src)
	require.Len(t, got, 3)
	for i := range events {
		assert.True(t, events[i].Timestamp.Equal(got[i].Timestamp))
		assert.Equal(t, events[i].Payload, got[i].Payload)
	}

	// the next day has nothing
	start, end = DayBounds(jan1.AddDate(0, 0, 1))
	got, _ = sink.GetEventsInRange(ctx, start, end)
	assert.Empty(t, got)
}

func TestGetEventsInRangeFallsBackToLocal(t *testing.T) {
	remote := &failingStore{}
	sink, fs := newSink(t, remote)
	ctx := context.Background()

	for _, ev := range threeEvents() {
		sink.Record(ctx, ev)
	}
	// a corrupt neighbouring day is skipped
	require.NoError(t, afero.WriteFile(fs, "/data/coding-activity-data/2023-12-31.json", []byte("not json"), 0o644))

	got, src := sink.GetEventsInRange(ctx, jan1.AddDate(0, 0, -1), jan1.AddDate(0, 0, 1))
	assert.Equal(t, models.DestinationLocal, src)
	require.Len(t, got, 3)
	assert.Equal(t, models.KindSessionStart, got[0].Kind())
	assert.Equal(t, models.SubtypeDocumentSave, got[2].Subtype())
}

func TestGetEventsInRangeNoData(t *testing.T) {
	sink, _ := newSink(t, nil)

	got, src := sink.GetEventsInRange(context.Background(), jan1, jan1)
	assert.Equal(t, models.DestinationLocal, src)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDayBounds(t *testing.T) {
	start, end := DayBounds(time.Date(2024, 3, 5, 17, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 5, 23, 59, 59, int(999*time.Millisecond), time.UTC), end)
}

package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"Mansoor88-6/coding-activity-agent/internal/models"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DateLayout names the per-day backup files
const DateLayout = "2006-01-02"

const lockFileName = ".lock"

// LocalStore keeps one JSON array of events per calendar day under dir
type LocalStore struct {
	fs     afero.Fs
	dir    string
	logger *zap.Logger
	lock   func(path string) (func(), error)
	mu     sync.Mutex
}

// NewLocalStore creates a store rooted at dir. On the OS filesystem writes
// are also serialised across processes with a lock file.
func NewLocalStore(fs afero.Fs, dir string, logger *zap.Logger) *LocalStore {
	ls := &LocalStore{
		fs:     fs,
		dir:    dir,
		logger: logger,
	}
	if _, ok := fs.(*afero.OsFs); ok {
		ls.lock = lockFile
	}
	return ls
}

// Dir returns the storage directory
func (ls *LocalStore) Dir() string {
	return ls.dir
}

// FilePath returns the backup file for the calendar day of t (in t's location)
func (ls *LocalStore) FilePath(t time.Time) string {
	return filepath.Join(ls.dir, t.Format(DateLayout)+".json")
}

// Append adds event to the file for day, rewriting the whole file
func (ls *LocalStore) Append(day time.Time, event models.Event) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if err := ls.fs.MkdirAll(ls.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	if ls.lock != nil {
		unlock, err := ls.lock(filepath.Join(ls.dir, lockFileName))
		if err != nil {
			return fmt.Errorf("failed to lock storage directory: %w", err)
		}
		defer unlock()
	}

	path := ls.FilePath(day)
	entries, err := ls.readEntries(path)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	// entries this version cannot decode are carried over untouched
	entries = append(entries, encoded)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	if err := ls.writeFile(path, data); err != nil {
		return err
	}

	ls.logger.Debug("Event stored locally",
		zap.String("path", path),
		zap.String("type", string(event.Kind())),
		zap.Int("day_count", len(entries)),
	)
	return nil
}

// ReadDay returns the events stored for the calendar day of t. Entries
// that do not decode are logged and skipped; only a file that is not a
// JSON array is an error.
func (ls *LocalStore) ReadDay(t time.Time) ([]models.Event, error) {
	ls.mu.Lock()
	path := ls.FilePath(t)
	entries, err := ls.readEntries(path)
	ls.mu.Unlock()
	if err != nil {
		return nil, err
	}

	events := make([]models.Event, 0, len(entries))
	for i, entry := range entries {
		var event models.Event
		if err := json.Unmarshal(entry, &event); err != nil {
			ls.logger.Warn("Skipping unreadable backup entry",
				zap.String("path", path),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// ReadRange concatenates the files of every calendar date in [start, end],
// ascending. Unreadable files are logged and skipped.
func (ls *LocalStore) ReadRange(start, end time.Time) []models.Event {
	result := []models.Event{}
	for _, day := range Days(start, end) {
		events, err := ls.ReadDay(day)
		if err != nil {
			ls.logger.Error("Failed to read local backup",
				zap.String("path", ls.FilePath(day)),
				zap.Error(err),
			)
			continue
		}
		result = append(result, events...)
	}
	return result
}

// Days lists the calendar dates from start to end inclusive, in start's location
func Days(start, end time.Time) []time.Time {
	loc := start.Location()
	end = end.In(loc)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)

	var days []time.Time
	for !day.After(last) {
		days = append(days, day)
		day = day.AddDate(0, 0, 1)
	}
	return days
}

// readEntries returns the raw array elements of path, or none if it does not exist
func (ls *LocalStore) readEntries(path string) ([]json.RawMessage, error) {
	data, err := afero.ReadFile(ls.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return entries, nil
}

// writeFile replaces path through a temp file in the same directory
func (ls *LocalStore) writeFile(path string, data []byte) (err error) {
	tmp, err := afero.TempFile(ls.fs, ls.dir, filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			ls.fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err = ls.fs.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

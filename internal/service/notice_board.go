package service

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Notifier shows a message to the user
type Notifier interface {
	Notify(level NoticeLevel, message string)
}

type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a user-visible message with the time it was posted
type Notice struct {
	Level     NoticeLevel `json:"level"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

// NoticeBoard keeps recent notices for the editor shim to poll.
// Notices expire after the TTL.
type NoticeBoard struct {
	mu        sync.RWMutex
	notices   map[string]*Notice
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
	cleanupWg sync.WaitGroup
}

// NewNoticeBoard creates a notice board with TTL-based expiration
func NewNoticeBoard(ttl time.Duration, logger *zap.Logger) *NoticeBoard {
	board := &NoticeBoard{
		notices:  make(map[string]*Notice),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
		stopChan: make(chan struct{}),
	}

	board.cleanupWg.Add(1)
	go board.cleanupLoop()

	return board
}

// Notify posts a notice. Posting the same message again refreshes it.
func (b *NoticeBoard) Notify(level NoticeLevel, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.notices[message] = &Notice{
		Level:     level,
		Message:   message,
		Timestamp: b.now(),
	}

	b.logger.Info("Posted notice",
		zap.String("level", string(level)),
		zap.String("message", message),
	)
}

// List returns the unexpired notices, oldest first
func (b *NoticeBoard) List() []Notice {
	b.mu.RLock()
	defer b.mu.RUnlock()

	now := b.now()
	out := make([]Notice, 0, len(b.notices))
	for _, n := range b.notices {
		if now.Sub(n.Timestamp) > b.ttl {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func (b *NoticeBoard) cleanupLoop() {
	defer b.cleanupWg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.cleanup()
		case <-b.stopChan:
			return
		}
	}
}

// cleanup removes expired notices
func (b *NoticeBoard) cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	expiredCount := 0

	for key, n := range b.notices {
		if now.Sub(n.Timestamp) > b.ttl {
			delete(b.notices, key)
			expiredCount++
		}
	}

	if expiredCount > 0 {
		b.logger.Debug("Cleaned up expired notices",
			zap.Int("count", expiredCount),
		)
	}
}

// Stop stops the cleanup goroutine
func (b *NoticeBoard) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopChan)
		b.cleanupWg.Wait()
		b.logger.Info("Notice board stopped")
	})
}

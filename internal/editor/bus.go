package editor

import (
	"sync"
)

// Bus is an in-process Source fed through Publish
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[NotificationKind]map[uint64]func(Notification)
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[NotificationKind]map[uint64]func(Notification)),
	}
}

func (b *Bus) Subscribe(kind NotificationKind, handler func(Notification)) Disposable {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.handlers[kind] == nil {
		b.handlers[kind] = make(map[uint64]func(Notification))
	}
	b.handlers[kind][id] = handler
	b.mu.Unlock()

	var once sync.Once
	return DisposeFunc(func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers[kind], id)
			b.mu.Unlock()
		})
	})
}

// Publish delivers n synchronously to every handler subscribed to n.Kind
func (b *Bus) Publish(n Notification) {
	b.mu.RLock()
	handlers := make([]func(Notification), 0, len(b.handlers[n.Kind]))
	for _, h := range b.handlers[n.Kind] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(n)
	}
}


package collector

import (
	"context"
	"sync"
	"sync/atomic"

	"Mansoor88-6/coding-activity-agent/internal/models"

	"go.uber.org/zap"
)

// EventSink is where collected events are forwarded
type EventSink interface {
	Record(ctx context.Context, event models.Event) models.RecordResult
}

// EventCollector is an ordered single-writer queue in front of the sink.
// Producers never wait on remote I/O, and the sink sees events in the
// order they were recorded.
type EventCollector struct {
	sink    EventSink
	queue   chan models.Event
	logger  *zap.Logger
	pending atomic.Int64

	mu      sync.Mutex
	started bool
	stopped bool
	drained chan struct{}
	wg      sync.WaitGroup
}

// NewEventCollector creates a new event collector
func NewEventCollector(sink EventSink, bufferSize int, logger *zap.Logger) *EventCollector {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &EventCollector{
		sink:    sink,
		queue:   make(chan models.Event, bufferSize),
		logger:  logger,
		drained: make(chan struct{}),
	}
}

// Start launches the writer goroutine. ctx is passed to every sink call.
func (ec *EventCollector) Start(ctx context.Context) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if ec.started || ec.stopped {
		return
	}
	ec.started = true

	ec.wg.Add(1)
	go ec.writeLoop(ctx)

	ec.logger.Info("Event collector started",
		zap.Int("buffer_size", cap(ec.queue)),
	)
}

// Stop closes the queue and waits until every queued event reached the sink
func (ec *EventCollector) Stop() {
	ec.mu.Lock()
	if ec.stopped {
		ec.mu.Unlock()
		return
	}
	ec.stopped = true
	started := ec.started
	close(ec.queue)
	ec.mu.Unlock()

	if started {
		ec.wg.Wait()
	}
	close(ec.drained)

	ec.logger.Info("Event collector stopped")
}

// Record queues the event. Before Start and after Stop it is written
// through to the sink synchronously.
func (ec *EventCollector) Record(ctx context.Context, event models.Event) models.RecordResult {
	ec.mu.Lock()
	if !ec.started || ec.stopped {
		stopped := ec.stopped
		ec.mu.Unlock()
		if stopped {
			// keep order behind whatever is still draining
			<-ec.drained
		}
		return ec.sink.Record(ctx, event)
	}
	ec.pending.Add(1)
	// blocks while the buffer is full; holding mu keeps Stop from closing
	// the channel under a pending send
	ec.queue <- event
	ec.mu.Unlock()

	return models.RecordResult{Destination: models.DestinationQueued}
}

// GetPendingCount returns the number of events not yet handed to the sink
func (ec *EventCollector) GetPendingCount() int {
	return int(ec.pending.Load())
}

func (ec *EventCollector) writeLoop(ctx context.Context) {
	defer ec.wg.Done()

	for event := range ec.queue {
		result := ec.sink.Record(ctx, event)
		ec.pending.Add(-1)
		if result.Destination == models.DestinationLost {
			ec.logger.Error("Event lost",
				zap.String("type", string(event.Kind())),
				zap.Error(result.Err),
			)
		}
	}
}

package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cardhaus/card-exchange-backend/internal/service/bidding"
)

// Transport delivers an event to subscribers
type Transport interface {
	Publish(ctx context.Context, event bidding.Event) error
}

// EmitterConfig tunes the async emitter
type EmitterConfig struct {
	QueueSize      int
	Workers        int
	MaxRetries     int
	RetryBackoff   time.Duration
	PublishTimeout time.Duration
}

func DefaultEmitterConfig() EmitterConfig {
	return EmitterConfig{
		QueueSize:      1024,
		Workers:        4,
		MaxRetries:     3,
		RetryBackoff:   100 * time.Millisecond,
		PublishTimeout: 5 * time.Second,
	}
}

// AsyncEmitter queues events and delivers them to its transports from
// worker goroutines. Delivery is at-least-once per transport with a
// bounded retry budget; events that exhaust it are logged and dropped.
// Emit never blocks the bidding path: a full queue drops the event.
type AsyncEmitter struct {
	transports []Transport
	logger     *zap.Logger
	cfg        EmitterConfig

	queue chan bidding.Event
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewAsyncEmitter(logger *zap.Logger, cfg EmitterConfig, transports ...Transport) *AsyncEmitter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}

	e := &AsyncEmitter{
		transports: transports,
		logger:     logger,
		cfg:        cfg,
		queue:      make(chan bidding.Event, cfg.QueueSize),
	}

	for i := 0; i < cfg.Workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}

	return e
}

// Emit queues the event for delivery; fire and forget
func (e *AsyncEmitter) Emit(event bidding.Event) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	select {
	case e.queue <- event:
	default:
		e.logger.Warn("event queue full, dropping event",
			zap.String("type", string(event.Type)),
			zap.String("auction_id", event.AuctionID.String()))
	}
}

// Close stops accepting events and drains the queue
func (e *AsyncEmitter) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	close(e.queue)
	e.wg.Wait()
}

func (e *AsyncEmitter) worker() {
	defer e.wg.Done()
	for event := range e.queue {
		e.deliver(event)
	}
}

func (e *AsyncEmitter) deliver(event bidding.Event) {
	for _, t := range e.transports {
		var lastErr error
		for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), e.cfg.PublishTimeout)
			lastErr = t.Publish(ctx, event)
			cancel()
			if lastErr == nil {
				break
			}
			time.Sleep(e.cfg.RetryBackoff * time.Duration(attempt+1))
		}
		if lastErr != nil {
			e.logger.Error("event delivery failed, dropping",
				zap.String("type", string(event.Type)),
				zap.String("auction_id", event.AuctionID.String()),
				zap.Int("attempts", e.cfg.MaxRetries),
				zap.Error(lastErr))
		}
	}
}

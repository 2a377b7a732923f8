package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/wsconn/internal/buffer"
	"github.com/rickgao/wsconn/internal/connection"
)

// Recorder consumes recorded frames and events and writes them in batches.
// Record* methods never block on the database.
type Recorder struct {
	cfg    Config
	logger *slog.Logger

	// Pending entries from the connection callbacks
	input *buffer.Queue[entry]

	// Database
	db DB

	// Batching
	messages    []messageRow
	events      []eventRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics Stats
	now     func() time.Time
}

// New creates a Recorder writing to db.
func New(cfg Config, db DB, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = def.BufferSize
	}
	return &Recorder{
		cfg:      cfg,
		db:       db,
		logger:   logger.With("component", "recorder"),
		input:    buffer.NewQueue[entry](cfg.BufferSize),
		messages: make([]messageRow, 0, cfg.BatchSize),
		now:      time.Now,
		ctx:      context.Background(),
	}
}

// Start begins consuming entries and writing to the database.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.flushTicker = time.NewTicker(r.cfg.FlushInterval)

	// Consumer goroutine
	r.wg.Add(1)
	go r.consumeLoop()

	// Flush ticker goroutine
	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("recorder started",
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop drains pending entries, performs a final flush and shuts down.
func (r *Recorder) Stop(ctx context.Context) error {
	r.logger.Info("stopping recorder")

	if r.cancel != nil {
		r.cancel()
	}
	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("recorder stop timed out")
	}

	// Final flush runs on the caller's context since ours is cancelled
	for _, e := range r.input.Drain() {
		r.handleEntry(e)
	}
	r.flushWith(ctx)

	r.logger.Info("recorder stopped")
	return nil
}

// Stats returns current metrics.
func (r *Recorder) Stats() Stats {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	s := r.metrics
	s.Dropped = r.input.Stats().TotalEvicted
	return s
}

// RecordMessage queues a frame for ws_messages.
func (r *Recorder) RecordMessage(sessionID uuid.UUID, dir Direction, msg connection.Message) {
	r.input.Push(entry{message: &messageRow{
		SessionID:  sessionID,
		Direction:  dir,
		Kind:       msg.Type.String(),
		Payload:    append([]byte(nil), msg.Data...),
		ReceivedAt: r.now(),
	}})
}

// RecordEvent queues a lifecycle event for ws_events.
func (r *Recorder) RecordEvent(sessionID uuid.UUID, event, detail string) {
	r.input.Push(entry{event: &eventRow{
		SessionID: sessionID,
		Event:     event,
		Detail:    detail,
		At:        r.now(),
	}})
}

// consumeLoop moves entries from the input buffer into the batches.
func (r *Recorder) consumeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
			e, ok := r.input.Pop()
			if !ok {
				// Buffer empty, wait a bit before trying again
				select {
				case <-r.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}

			r.handleEntry(e)
		}
	}
}

// flushLoop periodically flushes the batches.
func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.flushTicker.C:
			r.flush()
		}
	}
}

func (r *Recorder) handleEntry(e entry) {
	r.batchMu.Lock()
	switch {
	case e.message != nil:
		r.messages = append(r.messages, *e.message)
	case e.event != nil:
		r.events = append(r.events, *e.event)
	}
	shouldFlush := len(r.messages)+len(r.events) >= r.cfg.BatchSize
	r.batchMu.Unlock()

	if shouldFlush {
		r.flush()
	}
}

func (r *Recorder) flush() {
	r.flushWith(r.ctx)
}

// flushWith writes the current batches to the database.
func (r *Recorder) flushWith(ctx context.Context) {
	r.batchMu.Lock()
	if len(r.messages) == 0 && len(r.events) == 0 {
		r.batchMu.Unlock()
		return
	}

	// Take ownership of current batches
	messages, events := r.messages, r.events
	r.messages = make([]messageRow, 0, r.cfg.BatchSize)
	r.events = nil
	r.batchMu.Unlock()

	start := time.Now()

	if err := r.batchInsert(ctx, messages, events); err != nil {
		r.logger.Error("batch insert failed",
			"error", err,
			"messages", len(messages),
			"events", len(events),
		)
		r.batchMu.Lock()
		r.metrics.Errors++
		r.batchMu.Unlock()
		return
	}

	r.batchMu.Lock()
	r.metrics.Messages += int64(len(messages))
	r.metrics.Events += int64(len(events))
	r.metrics.Flushes++
	r.batchMu.Unlock()

	r.logger.Debug("flushed recorder batch",
		"messages", len(messages),
		"events", len(events),
		"duration", time.Since(start),
	)
}

// batchInsert writes rows using one pgx.Batch round trip.
func (r *Recorder) batchInsert(ctx context.Context, messages []messageRow, events []eventRow) error {
	batch := &pgx.Batch{}
	for _, m := range messages {
		batch.Queue(`
			INSERT INTO ws_messages (session_id, direction, kind, payload, received_at)
			VALUES ($1, $2, $3, $4, $5)
		`, m.SessionID, string(m.Direction), m.Kind, m.Payload, m.ReceivedAt)
	}
	for _, e := range events {
		batch.Queue(`
			INSERT INTO ws_events (session_id, event, detail, at)
			VALUES ($1, $2, $3, $4)
		`, e.SessionID, e.Event, e.Detail, e.At)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

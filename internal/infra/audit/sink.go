package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"content-gate/internal/domain/access"
)

// Writer is the persistence side of the sink.
type Writer interface {
	Insert(ctx context.Context, e *Entry) error
}

const writeTimeout = 5 * time.Second

// AsyncSink hands audit records to a background writer. Record never blocks:
// when the buffer is full or the sink is closed the record is dropped and
// logged. Write failures are logged and never reach the caller.
type AsyncSink struct {
	writer Writer
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan access.AuditRecord
	done   chan struct{}
}

func NewAsyncSink(writer Writer, buffer int, logger *slog.Logger) *AsyncSink {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &AsyncSink{
		writer: writer,
		logger: logger,
		queue:  make(chan access.AuditRecord, buffer),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *AsyncSink) Record(_ context.Context, rec access.AuditRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.logger.Warn("audit sink closed, dropping record", recordAttrs(rec)...)
		return
	}
	select {
	case s.queue <- rec:
	default:
		s.logger.Warn("audit buffer full, dropping record", recordAttrs(rec)...)
	}
}

// Close stops accepting records and waits for queued ones to be written or
// for ctx to expire.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("audit: sink drain interrupted"), ctx.Err())
	}
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for rec := range s.queue {
		s.write(rec)
	}
}

func (s *AsyncSink) write(rec access.AuditRecord) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("audit writer panicked", append(recordAttrs(rec), slog.Any("panic", r))...)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.writer.Insert(ctx, EntryFrom(rec)); err != nil {
		s.logger.Error("audit write failed", append(recordAttrs(rec), slog.Any("error", err))...)
	}
}

func recordAttrs(rec access.AuditRecord) []any {
	return []any{
		slog.String("user_id", rec.UserID),
		slog.String("resource", string(rec.Resource)),
		slog.String("action", string(rec.Action)),
		slog.String("resource_id", rec.ResourceID),
		slog.Bool("allowed", rec.Allowed),
	}
}

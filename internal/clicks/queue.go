package clicks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"url-shortener/internal/db"
)

var (
	ErrQueueFull   = errors.New("click queue is full")
	ErrQueueClosed = errors.New("click queue is shut down")
)

// DefaultQueueCapacity is used when NewQueue is given a non-positive capacity.
const DefaultQueueCapacity = 100

// Sink is where queued clicks are finally written.
type Sink interface {
	Record(ctx context.Context, click *db.Click) error
}

// QueueStatus is a snapshot of queue activity.
type QueueStatus struct {
	WorkerCount int   `json:"worker_count"`
	QueueLength int   `json:"queue_length"`
	Capacity    int   `json:"capacity"`
	Processed   int64 `json:"processed"`
	Failed      int64 `json:"failed"`
	Dropped     int64 `json:"dropped"`
}

// Queue moves click writes off the redirect path. Record never blocks: when
// the buffer is full the click is dropped.
type Queue struct {
	jobs        chan db.Click
	sink        Sink
	log         *zap.Logger
	workerCount int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewQueue starts workerCount workers writing to sink.
func NewQueue(sink Sink, workerCount, capacity int, logger *zap.Logger) *Queue {
	if workerCount <= 0 {
		workerCount = 1
	}
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	q := &Queue{
		jobs:        make(chan db.Click, capacity),
		sink:        sink,
		log:         logger,
		workerCount: workerCount,
	}

	for i := 0; i < workerCount; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	logger.Info("initialized click queue", zap.Int("workers", workerCount), zap.Int("capacity", capacity))
	return q
}

// Record enqueues a copy of click. The request context is not carried into
// the write, which happens after the response has gone out.
func (q *Queue) Record(_ context.Context, click *db.Click) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- *click:
		return nil
	default:
		q.dropped.Add(1)
		q.log.Warn("click queue is full, dropping click",
			zap.Uint64("url_id", click.URLID), zap.Int("capacity", cap(q.jobs)))
		return ErrQueueFull
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	q.log.Debug("click worker started", zap.Int("worker", id))

	for click := range q.jobs {
		start := time.Now()
		if err := q.sink.Record(context.Background(), &click); err != nil {
			q.failed.Add(1)
			q.log.Error("failed to record click",
				zap.Int("worker", id), zap.Uint64("url_id", click.URLID), zap.Error(err))
			continue
		}
		q.processed.Add(1)
		q.log.Debug("recorded click",
			zap.Int("worker", id), zap.Uint64("url_id", click.URLID), zap.Duration("took", time.Since(start)))
	}

	q.log.Debug("click worker stopped", zap.Int("worker", id))
}

// Status returns counters and the current backlog.
func (q *Queue) Status() QueueStatus {
	return QueueStatus{
		WorkerCount: q.workerCount,
		QueueLength: len(q.jobs),
		Capacity:    cap(q.jobs),
		Processed:   q.processed.Load(),
		Failed:      q.failed.Load(),
		Dropped:     q.dropped.Load(),
	}
}

// Shutdown stops accepting clicks and waits for the backlog to be written.
// It is safe to call more than once.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	q.log.Info("click queue drained", zap.Int64("processed", q.processed.Load()), zap.Int64("failed", q.failed.Load()))
}

// Package persist provides the lifecycle and write-behind persistence shared by the library stores.
//
// A store keeps its state in memory and treats storage as a best-effort mirror:
// mutations apply immediately and a Mirror writes the latest snapshot in the background,
// one write at a time per key.
package persist

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/at-ishikawa/civics/internal/storage"
)

const defaultSaveTimeout = 10 * time.Second

var (
	persistTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civics_store_persist_total",
		Help: "Total snapshot writes by storage key and result",
	}, []string{"key", "result"})

	persistDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "civics_store_persist_duration_seconds",
		Help:    "Snapshot write duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"key"})

	coalescedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civics_store_persist_coalesced_total",
		Help: "Snapshots replaced by a newer one before they were written",
	}, []string{"key"})
)

// ErrMirrorClosed is returned by Flush after Close.
var ErrMirrorClosed = errors.New("mirror is closed")

// Mirror writes snapshots of one key to storage asynchronously.
// Writes never overlap and a newer snapshot replaces a pending one, so the last submitted value wins.
type Mirror struct {
	storage     storage.Storage
	key         string
	logger      *slog.Logger
	saveTimeout time.Duration

	mu        sync.Mutex
	pending   *string
	submitted uint64
	attempted uint64
	progress  chan struct{}
	closed    bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// MirrorOption configures a Mirror.
type MirrorOption func(*Mirror)

// WithLogger sets the logger used to report failed writes.
func WithLogger(logger *slog.Logger) MirrorOption {
	return func(m *Mirror) {
		m.logger = logger
	}
}

// WithSaveTimeout bounds each storage write.
func WithSaveTimeout(timeout time.Duration) MirrorOption {
	return func(m *Mirror) {
		m.saveTimeout = timeout
	}
}

// NewMirror starts a Mirror for key. Close must be called to stop its goroutine.
func NewMirror(s storage.Storage, key string, opts ...MirrorOption) *Mirror {
	m := &Mirror{
		storage:     s,
		key:         key,
		logger:      slog.Default(),
		saveTimeout: defaultSaveTimeout,
		progress:    make(chan struct{}),
		wake:        make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.run()
	return m
}

// Submit schedules value to be written. It never blocks on storage.
func (m *Mirror) Submit(value string) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.logger.Warn("snapshot submitted after close was dropped", "key", m.key)
		return
	}
	if m.pending != nil {
		coalescedTotal.WithLabelValues(m.key).Inc()
	}
	m.pending = &value
	m.submitted++
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Flush waits until every snapshot submitted before the call has been attempted.
func (m *Mirror) Flush(ctx context.Context) error {
	m.mu.Lock()
	target := m.submitted
	m.mu.Unlock()

	for {
		m.mu.Lock()
		if m.attempted >= target {
			m.mu.Unlock()
			return nil
		}
		progress := m.progress
		m.mu.Unlock()

		select {
		case <-progress:
		case <-m.done:
			m.mu.Lock()
			attempted := m.attempted
			m.mu.Unlock()
			if attempted >= target {
				return nil
			}
			return ErrMirrorClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close flushes pending snapshots and stops the background writer.
func (m *Mirror) Close(ctx context.Context) error {
	flushErr := m.Flush(ctx)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return flushErr
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stop)
	select {
	case <-m.done:
	case <-ctx.Done():
		if flushErr == nil {
			flushErr = ctx.Err()
		}
	}
	return flushErr
}

func (m *Mirror) run() {
	defer close(m.done)
	for {
		select {
		case <-m.wake:
			m.writePending()
		case <-m.stop:
			m.writePending()
			return
		}
	}
}

func (m *Mirror) writePending() {
	m.mu.Lock()
	value := m.pending
	target := m.submitted
	m.pending = nil
	m.mu.Unlock()

	if value != nil {
		m.save(*value)
	}

	m.mu.Lock()
	m.attempted = target
	close(m.progress)
	m.progress = make(chan struct{})
	m.mu.Unlock()
}

func (m *Mirror) save(value string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.saveTimeout)
	defer cancel()

	start := time.Now()
	err := m.storage.Save(ctx, m.key, value)
	persistDuration.WithLabelValues(m.key).Observe(time.Since(start).Seconds())
	if err != nil {
		persistTotal.WithLabelValues(m.key, "error").Inc()
		// In-memory state stays authoritative; the value is written again with the next snapshot.
		m.logger.Warn("failed to persist snapshot", "key", m.key, "error", err)
		return
	}
	persistTotal.WithLabelValues(m.key, "ok").Inc()
	m.logger.Debug("persisted snapshot", "key", m.key, "bytes", len(value))
}

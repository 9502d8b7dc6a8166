package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/heysubinoy/kvweb/pkg/kv"
	"github.com/prometheus/client_golang/prometheus"
)

// Store operation names, used as metric labels.
const (
	OpGet    = "get"
	OpSet    = "set"
	OpDelete = "delete"
	OpKeys   = "keys"
)

// Metrics holds timing statistics for store operations.
// Uses atomic operations for thread-safe updates without locks.
type Metrics struct {
	GetCount    atomic.Uint64
	SetCount    atomic.Uint64
	DeleteCount atomic.Uint64
	KeysCount   atomic.Uint64
	ErrorCount  atomic.Uint64

	// Cumulative latencies in nanoseconds
	GetLatencyNs    atomic.Uint64
	SetLatencyNs    atomic.Uint64
	DeleteLatencyNs atomic.Uint64
	KeysLatencyNs   atomic.Uint64
}

// InstrumentedStore wraps any kv.Store implementation with timing metrics.
// This pattern works for every backend.
type InstrumentedStore struct {
	store   kv.Store
	metrics *Metrics

	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// Compile-time check to ensure InstrumentedStore implements kv.Store.
var _ kv.Store = (*InstrumentedStore)(nil)

// NewInstrumentedStore wraps a store with instrumentation and registers its
// prometheus collectors with reg. A nil reg skips registration.
func NewInstrumentedStore(store kv.Store, reg prometheus.Registerer) *InstrumentedStore {
	s := &InstrumentedStore{
		store:   store,
		metrics: &Metrics{},
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvweb",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by operation and result.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kvweb",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Latency of store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(s.ops, s.duration)
	}
	return s
}

func (s *InstrumentedStore) observe(op string, start time.Time, count, latency *atomic.Uint64, err error) {
	elapsed := time.Since(start)

	count.Add(1)
	latency.Add(uint64(elapsed.Nanoseconds()))

	result := "ok"
	if err != nil {
		result = "error"
		s.metrics.ErrorCount.Add(1)
	}
	s.ops.WithLabelValues(op, result).Inc()
	s.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Get delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	value, found, err := s.store.Get(ctx, key)
	s.observe(OpGet, start, &s.metrics.GetCount, &s.metrics.GetLatencyNs, err)
	return value, found, err
}

// Set delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := s.store.Set(ctx, key, value)
	s.observe(OpSet, start, &s.metrics.SetCount, &s.metrics.SetLatencyNs, err)
	return err
}

// Delete delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Delete(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	existed, err := s.store.Delete(ctx, key)
	s.observe(OpDelete, start, &s.metrics.DeleteCount, &s.metrics.DeleteLatencyNs, err)
	return existed, err
}

func (s *InstrumentedStore) Keys(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := s.store.Keys(ctx)
	s.observe(OpKeys, start, &s.metrics.KeysCount, &s.metrics.KeysLatencyNs, err)
	return keys, err
}

func (s *InstrumentedStore) Close() error {
	return s.store.Close()
}

// GetMetrics returns a snapshot of current metrics.
func (s *InstrumentedStore) GetMetrics() MetricsSnapshot {
	getCount := s.metrics.GetCount.Load()
	setCount := s.metrics.SetCount.Load()
	deleteCount := s.metrics.DeleteCount.Load()
	keysCount := s.metrics.KeysCount.Load()

	return MetricsSnapshot{
		GetCount:         getCount,
		SetCount:         setCount,
		DeleteCount:      deleteCount,
		KeysCount:        keysCount,
		ErrorCount:       s.metrics.ErrorCount.Load(),
		GetAvgLatency:    avgLatency(s.metrics.GetLatencyNs.Load(), getCount),
		SetAvgLatency:    avgLatency(s.metrics.SetLatencyNs.Load(), setCount),
		DeleteAvgLatency: avgLatency(s.metrics.DeleteLatencyNs.Load(), deleteCount),
		KeysAvgLatency:   avgLatency(s.metrics.KeysLatencyNs.Load(), keysCount),
	}
}

// ResetMetrics clears the snapshot counters. Prometheus counters are
// monotonic and are left alone.
func (s *InstrumentedStore) ResetMetrics() {
	for _, c := range []*atomic.Uint64{
		&s.metrics.GetCount, &s.metrics.SetCount, &s.metrics.DeleteCount, &s.metrics.KeysCount,
		&s.metrics.ErrorCount,
		&s.metrics.GetLatencyNs, &s.metrics.SetLatencyNs, &s.metrics.DeleteLatencyNs, &s.metrics.KeysLatencyNs,
	} {
		c.Store(0)
	}
}

func avgLatency(totalNs, count uint64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(totalNs / count)
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	GetCount         uint64
	SetCount         uint64
	DeleteCount      uint64
	KeysCount        uint64
	ErrorCount       uint64
	GetAvgLatency    time.Duration
	SetAvgLatency    time.Duration
	DeleteAvgLatency time.Duration
	KeysAvgLatency   time.Duration
}

package sweep

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// SweepMetrics is the telemetry API of the sweep layer.  The aggregator and
// the worker pool record through this interface so the backing implementation
// (Prometheus, in-memory, noop) can be swapped without touching the sweep
// logic.
type SweepMetrics interface {
	// RecordTask records one finished training/evaluation task.  A task
	// covers both sweep directions, so it carries no per-corpus label.
	RecordTask(ctx context.Context, family, status string, durationMs float64)

	// RecordMissingRow records a task that produced no usable accuracy cell.
	RecordMissingRow(ctx context.Context, candidate, family, reason string)

	// RecordSweep records one completed sweep run.
	RecordSweep(ctx context.Context, candidates, rows int, durationMs float64)

	// SetActiveWorkers reports the current worker-pool occupancy.
	SetActiveWorkers(n int)

	// GetCurrentStats returns a point-in-time snapshot.
	GetCurrentStats() *SweepStats
}

// SweepStats is a snapshot of sweep-layer counters.
type SweepStats struct {
	TasksTotal        int64   `json:"tasks_total"`
	TasksFailed       int64   `json:"tasks_failed"`
	MissingRows       int64   `json:"missing_rows"`
	AvgTaskDurationMs float64 `json:"avg_task_duration_ms"`
	LastSweepMs       float64 `json:"last_sweep_ms"`
}

const (
	// TaskStatusOK marks a task that produced all of its cells.
	TaskStatusOK = "ok"
	// TaskStatusMissing marks a task skipped for a task-local reason.
	TaskStatusMissing = "missing"
	// TaskStatusError marks a task that aborted the sweep.
	TaskStatusError = "error"
)

const metricsPrefix = "stylobench_sweep_"

var taskDurationBuckets = []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 15000, 60000}

// ---------------------------------------------------------------------------
// Prometheus implementation
// ---------------------------------------------------------------------------

type prometheusSweepMetrics struct {
	taskDuration  *prometheus.HistogramVec
	tasksTotal    *prometheus.CounterVec
	missingRows   *prometheus.CounterVec
	sweepDuration prometheus.Histogram
	sweepRows     prometheus.Gauge
	activeWorkers prometheus.Gauge

	// shadow counters backing GetCurrentStats
	total     atomic.Int64
	failed    atomic.Int64
	missing   atomic.Int64
	durSumMs  atomic.Int64 // microsecond-resolution sum stored as int64
	lastSweep atomic.Int64 // microseconds
}

// NewPrometheusSweepMetrics registers the sweep metrics with the supplied
// registerer and returns the collector.  A nil registerer falls back to the
// process-wide default.
func NewPrometheusSweepMetrics(registerer prometheus.Registerer) (SweepMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &prometheusSweepMetrics{}

	m.taskDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metricsPrefix + "task_duration_milliseconds",
		Help:    "Histogram of per-task training and evaluation durations in milliseconds.",
		Buckets: taskDurationBuckets,
	}, []string{"family"})

	m.tasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricsPrefix + "tasks_total",
		Help: "Total number of pairwise training tasks by outcome.",
	}, []string{"family", "status"})

	m.missingRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricsPrefix + "missing_rows_total",
		Help: "Tasks that produced no accuracy cell, by reason.",
	}, []string{"family", "reason"})

	m.sweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    metricsPrefix + "run_duration_milliseconds",
		Help:    "Histogram of whole-sweep durations in milliseconds.",
		Buckets: []float64{100, 500, 1000, 5000, 15000, 60000, 300000},
	})

	m.sweepRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: metricsPrefix + "result_rows",
		Help: "Row count of the most recent result table.",
	})

	m.activeWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: metricsPrefix + "active_workers",
		Help: "Workers currently busy in the sweep pool.",
	})

	for _, c := range []prometheus.Collector{
		m.taskDuration, m.tasksTotal, m.missingRows,
		m.sweepDuration, m.sweepRows, m.activeWorkers,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *prometheusSweepMetrics) RecordTask(_ context.Context, family, status string, durationMs float64) {
	m.taskDuration.WithLabelValues(family).Observe(durationMs)
	m.tasksTotal.WithLabelValues(family, status).Inc()
	m.total.Add(1)
	if status == TaskStatusError {
		m.failed.Add(1)
	}
	m.durSumMs.Add(int64(durationMs * 1000))
}

func (m *prometheusSweepMetrics) RecordMissingRow(_ context.Context, _, family, reason string) {
	m.missingRows.WithLabelValues(family, reason).Inc()
	m.missing.Add(1)
}

func (m *prometheusSweepMetrics) RecordSweep(_ context.Context, _, rows int, durationMs float64) {
	m.sweepDuration.Observe(durationMs)
	m.sweepRows.Set(float64(rows))
	m.lastSweep.Store(int64(durationMs * 1000))
}

func (m *prometheusSweepMetrics) SetActiveWorkers(n int) {
	m.activeWorkers.Set(float64(n))
}

func (m *prometheusSweepMetrics) GetCurrentStats() *SweepStats {
	s := &SweepStats{
		TasksTotal:  m.total.Load(),
		TasksFailed: m.failed.Load(),
		MissingRows: m.missing.Load(),
		LastSweepMs: float64(m.lastSweep.Load()) / 1000.0,
	}
	if s.TasksTotal > 0 {
		s.AvgTaskDurationMs = float64(m.durSumMs.Load()) / 1000.0 / float64(s.TasksTotal)
	}
	return s
}

// ---------------------------------------------------------------------------
// Noop implementation
// ---------------------------------------------------------------------------

type noopSweepMetrics struct{}

// NewNoopSweepMetrics returns a collector that discards everything.
func NewNoopSweepMetrics() SweepMetrics { return &noopSweepMetrics{} }

func (noopSweepMetrics) RecordTask(context.Context, string, string, float64)      {}
func (noopSweepMetrics) RecordMissingRow(context.Context, string, string, string) {}
func (noopSweepMetrics) RecordSweep(context.Context, int, int, float64)           {}
func (noopSweepMetrics) SetActiveWorkers(int)                                     {}
func (noopSweepMetrics) GetCurrentStats() *SweepStats                             { return &SweepStats{} }

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

// TaskRecord is one recorded task event, queryable from tests and the CLI.
type TaskRecord struct {
	Family     string
	Status     string
	DurationMs float64
}

// MissingRowRecord is one recorded missing-row event.
type MissingRowRecord struct {
	Candidate string
	Family    string
	Reason    string
}

type inMemorySweepMetrics struct {
	mu          sync.Mutex
	tasks       []TaskRecord
	missingRows []MissingRowRecord
	lastSweepMs float64
	workers     int
}

// NewInMemorySweepMetrics returns a collector that stores every event for
// later inspection.
func NewInMemorySweepMetrics() *inMemorySweepMetrics {
	return &inMemorySweepMetrics{}
}

func (m *inMemorySweepMetrics) RecordTask(_ context.Context, family, status string, durationMs float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, TaskRecord{Family: family, Status: status, DurationMs: durationMs})
}

func (m *inMemorySweepMetrics) RecordMissingRow(_ context.Context, candidate, family, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missingRows = append(m.missingRows, MissingRowRecord{Candidate: candidate, Family: family, Reason: reason})
}

func (m *inMemorySweepMetrics) RecordSweep(_ context.Context, _, _ int, durationMs float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSweepMs = durationMs
}

func (m *inMemorySweepMetrics) SetActiveWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = n
}

func (m *inMemorySweepMetrics) GetCurrentStats() *SweepStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &SweepStats{
		TasksTotal:  int64(len(m.tasks)),
		MissingRows: int64(len(m.missingRows)),
		LastSweepMs: m.lastSweepMs,
	}
	var sum float64
	for _, t := range m.tasks {
		sum += t.DurationMs
		if t.Status == TaskStatusError {
			s.TasksFailed++
		}
	}
	if len(m.tasks) > 0 {
		s.AvgTaskDurationMs = sum / float64(len(m.tasks))
	}
	return s
}

// Tasks returns a copy of the recorded task events.
func (m *inMemorySweepMetrics) Tasks() []TaskRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TaskRecord, len(m.tasks))
	copy(out, m.tasks)
	return out
}

// MissingRows returns a copy of the recorded missing-row events.
func (m *inMemorySweepMetrics) MissingRows() []MissingRowRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MissingRowRecord, len(m.missingRows))
	copy(out, m.missingRows)
	return out
}

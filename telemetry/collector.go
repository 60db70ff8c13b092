// Package telemetry collects per-tick counters and timings from the physics
// pipeline and exports them as structured logs and CSV.
package telemetry

import (
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// TickStats is one tick's worth of pipeline counters. EventsDropped counts
// only the drops observed during that tick, not a running total.
type TickStats struct {
	Tick          int64 `csv:"tick"`
	PairsTested   int   `csv:"pairs_tested"`
	Contacts      int   `csv:"contacts"`
	EventsDropped int64 `csv:"events_dropped"`
	CollisionUS   int64 `csv:"collision_us"`
	SolverUS      int64 `csv:"solver_us"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s TickStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("tick", s.Tick),
		slog.Int("pairs_tested", s.PairsTested),
		slog.Int("contacts", s.Contacts),
		slog.Int64("events_dropped", s.EventsDropped),
		slog.Int64("collision_us", s.CollisionUS),
		slog.Int64("solver_us", s.SolverUS),
	)
}

// Collector accumulates tick stats over a window and produces averages.
type Collector struct {
	window  []TickStats
	maxSize int

	totalContacts int64
	totalDropped  int64
	ticks         int64
}

// NewCollector creates a collector averaging over windowSize ticks.
func NewCollector(windowSize int) *Collector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &Collector{maxSize: windowSize}
}

// Record adds one tick's stats.
func (c *Collector) Record(s TickStats) {
	c.ticks++
	c.totalContacts += int64(s.Contacts)
	c.totalDropped += s.EventsDropped
	c.window = append(c.window, s)
	if len(c.window) > c.maxSize {
		c.window = c.window[1:]
	}
}

// Last returns the most recently recorded tick stats.
func (c *Collector) Last() TickStats {
	if len(c.window) == 0 {
		return TickStats{}
	}
	return c.window[len(c.window)-1]
}

// Totals returns lifetime counters: ticks run, contacts detected, events
// dropped.
func (c *Collector) Totals() (ticks, contacts, dropped int64) {
	return c.ticks, c.totalContacts, c.totalDropped
}

// WindowAverages returns mean pairs, contacts, and stage durations over the
// current window.
func (c *Collector) WindowAverages() (pairs, contacts float64, collision, solver time.Duration) {
	n := len(c.window)
	if n == 0 {
		return 0, 0, 0, 0
	}
	var p, ct, cus, sus int64
	for _, s := range c.window {
		p += int64(s.PairsTested)
		ct += int64(s.Contacts)
		cus += s.CollisionUS
		sus += s.SolverUS
	}
	return float64(p) / float64(n), float64(ct) / float64(n),
		time.Duration(cus/int64(n)) * time.Microsecond,
		time.Duration(sus/int64(n)) * time.Microsecond
}

// WindowPercentiles returns the median and 95th-percentile collision-stage
// duration over the current window.
func (c *Collector) WindowPercentiles() (p50, p95 time.Duration) {
	if len(c.window) == 0 {
		return 0, 0
	}
	xs := make([]float64, len(c.window))
	for i, s := range c.window {
		xs[i] = float64(s.CollisionUS)
	}
	sort.Float64s(xs)
	p50 = time.Duration(stat.Quantile(0.5, stat.Empirical, xs, nil)) * time.Microsecond
	p95 = time.Duration(stat.Quantile(0.95, stat.Empirical, xs, nil)) * time.Microsecond
	return p50, p95
}

// LogWindow emits the window averages via slog.
func (c *Collector) LogWindow(tick int64) {
	pairs, contacts, collision, solver := c.WindowAverages()
	p50, p95 := c.WindowPercentiles()
	slog.Info("physics window",
		"tick", tick,
		"avg_pairs", pairs,
		"avg_contacts", contacts,
		"avg_collision", collision,
		"avg_solver", solver,
		"collision_p50", p50,
		"collision_p95", p95,
	)
}

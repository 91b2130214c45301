package metrics

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Event describes one observation folded into the aggregator. An event with
// IsNewSession set counts a created session; any other event counts one
// user/assistant exchange.
type Event struct {
	PersonalityID string
	SessionID     string
	Technique     string
	Latency       time.Duration
	IsNewSession  bool
}

// Snapshot is a point-in-time read of the counters.
type Snapshot struct {
	TotalSessions       int64            `json:"totalSessions"`
	ActiveSessions      int64            `json:"activeSessions"`
	TotalMessages       int64            `json:"totalMessages"`
	TotalResponses      int64            `json:"totalResponses"`
	AvgResponseTime     time.Duration    `json:"-"`
	AvgResponseTimeMs   float64          `json:"avgResponseTimeMs"`
	PerPersonalityUsage map[string]int64 `json:"perPersonalityUsage"`
	PerTechniqueUsage   map[string]int64 `json:"perTechniqueUsage"`
	Errors              int64            `json:"errors"`
	Comparisons         int64            `json:"comparisons"`
	Uptime              time.Duration    `json:"-"`
	UptimeSeconds       float64          `json:"uptimeSeconds"`
}

// ActiveSource reports how many sessions are currently held.
type ActiveSource func() int

// Aggregator accumulates usage counters. Record and Snapshot are safe for
// concurrent use.
type Aggregator struct {
	sessions     atomic.Int64
	messages     atomic.Int64
	responses    atomic.Int64
	errors       atomic.Int64
	comparisons  atomic.Int64
	totalLatency atomic.Duration

	mu           sync.RWMutex
	perPersona   map[string]*atomic.Int64
	perTechnique map[string]*atomic.Int64
	active       ActiveSource
	startedAt    time.Time
	now          func() time.Time
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithActiveSource sets the function used for ActiveSessions.
func WithActiveSource(src ActiveSource) Option {
	return func(a *Aggregator) { a.active = src }
}

// WithClock replaces the time source used for uptime.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithPersonalities pre-registers personality counters so they show up in
// snapshots before first use.
func WithPersonalities(ids ...string) Option {
	return func(a *Aggregator) {
		for _, id := range ids {
			a.perPersona[id] = atomic.NewInt64(0)
		}
	}
}

// WithTechniques pre-registers technique counters.
func WithTechniques(ids ...string) Option {
	return func(a *Aggregator) {
		for _, id := range ids {
			a.perTechnique[id] = atomic.NewInt64(0)
		}
	}
}

// New builds an empty aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		perPersona:   make(map[string]*atomic.Int64),
		perTechnique: make(map[string]*atomic.Int64),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.startedAt = a.now()
	return a
}

// Record folds one event into the counters.
func (a *Aggregator) Record(ev Event) {
	if ev.IsNewSession {
		a.sessions.Inc()
		return
	}

	a.messages.Add(2)
	a.responses.Inc()
	if ev.Latency > 0 {
		a.totalLatency.Add(ev.Latency)
	}
	if ev.PersonalityID != "" {
		counter(&a.mu, a.perPersona, ev.PersonalityID).Inc()
	}
	if ev.Technique != "" {
		counter(&a.mu, a.perTechnique, ev.Technique).Inc()
	}
}

// RecordError counts a failed operation.
func (a *Aggregator) RecordError() { a.errors.Inc() }

// RecordComparison counts one compare call.
func (a *Aggregator) RecordComparison() { a.comparisons.Inc() }

// Snapshot reads the current counters.
func (a *Aggregator) Snapshot() Snapshot {
	snap := Snapshot{
		TotalSessions:       a.sessions.Load(),
		TotalMessages:       a.messages.Load(),
		TotalResponses:      a.responses.Load(),
		Errors:              a.errors.Load(),
		Comparisons:         a.comparisons.Load(),
		PerPersonalityUsage: readAll(&a.mu, a.perPersona),
		PerTechniqueUsage:   readAll(&a.mu, a.perTechnique),
	}
	if a.active != nil {
		snap.ActiveSessions = int64(a.active())
	}
	if snap.TotalResponses > 0 {
		snap.AvgResponseTime = a.totalLatency.Load() / time.Duration(snap.TotalResponses)
	}
	snap.AvgResponseTimeMs = float64(snap.AvgResponseTime) / float64(time.Millisecond)

	if up := a.now().Sub(a.startedAt); up > 0 {
		snap.Uptime = up
	}
	snap.UptimeSeconds = snap.Uptime.Seconds()
	return snap
}

func counter(mu *sync.RWMutex, m map[string]*atomic.Int64, key string) *atomic.Int64 {
	mu.RLock()
	c, ok := m[key]
	mu.RUnlock()
	if ok {
		return c
	}

	mu.Lock()
	defer mu.Unlock()
	if c, ok = m[key]; !ok {
		c = atomic.NewInt64(0)
		m[key] = c
	}
	return c
}

func readAll(mu *sync.RWMutex, m map[string]*atomic.Int64) map[string]int64 {
	mu.RLock()
	defer mu.RUnlock()
	out := make(map[string]int64, len(m))
	for k, c := range m {
		out[k] = c.Load()
	}
	return out
}

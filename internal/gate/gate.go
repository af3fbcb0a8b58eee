package gate

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"onu-map/internal/domain"
	"onu-map/internal/metrics"

	"golang.org/x/time/rate"
)

// Class groups upstream endpoints that share an hourly budget
type Class string

const (
	// ClassDetails is the bulk ONU details endpoint
	ClassDetails Class = "details"
	// ClassGPS is the bulk ONU coordinates endpoint
	ClassGPS Class = "gps"
	// ClassStandard covers every endpoint without an hourly budget
	ClassStandard Class = "standard"
)

// Window is the trailing period an hourly quota is counted over
const Window = time.Hour

// Config sets the spacing and per class quotas of a Gate
type Config struct {
	MinSpacing   time.Duration
	HourlyLimits map[Class]int
}

// Decision is the outcome of a quota check
type Decision struct {
	Allowed     bool
	WaitMinutes int
}

// Usage is a point-in-time view of one restricted class
type Usage struct {
	Limit          int
	Used           int
	Remaining      int
	ResetInMinutes int
}

type Option func(*Gate)

// WithClock replaces the clock used for quota windows
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// Gate enforces a global minimum spacing between upstream calls and a
// sliding one hour quota for restricted classes. Both apply to every call.
type Gate struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	limits  map[Class]int
	calls   map[Class][]time.Time
	pending map[Class]int
	now     func() time.Time
	logger  domain.Logger
}

// New creates a gate from the given configuration
func New(config Config, logger domain.Logger, opts ...Option) *Gate {
	limit := rate.Inf
	if config.MinSpacing > 0 {
		limit = rate.Every(config.MinSpacing)
	}

	g := &Gate{
		limiter: rate.NewLimiter(limit, 1),
		limits:  make(map[Class]int, len(config.HourlyLimits)),
		calls:   make(map[Class][]time.Time),
		pending: make(map[Class]int),
		now:     time.Now,
		logger:  logger,
	}
	for class, n := range config.HourlyLimits {
		if class == ClassStandard {
			continue
		}
		g.limits[class] = n
		metrics.QuotaRemaining.WithLabelValues(string(class)).Set(float64(n))
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Restricted reports whether the class has an hourly quota
func (g *Gate) Restricted(class Class) bool {
	_, ok := g.limits[class]
	return ok
}

// Classes returns the restricted classes
func (g *Gate) Classes() []Class {
	classes := make([]Class, 0, len(g.limits))
	for class := range g.limits {
		classes = append(classes, class)
	}
	return classes
}

// Throttle blocks until the global spacing since the previous call has elapsed
func (g *Gate) Throttle(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for call slot: %w", err)
	}
	return nil
}

// CheckQuota reports whether one more call of the class fits in the window
func (g *Gate) CheckQuota(class Class) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.check(class)
}

// RecordCall counts a successful call against the class quota
func (g *Gate) RecordCall(class Class) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record(class)
}

// Remaining returns the calls left in the window. The second value is
// false for unrestricted classes.
func (g *Gate) Remaining(class Class) (int, bool) {
	limit, ok := g.limits[class]
	if !ok {
		return 0, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return max(0, limit-len(g.prune(class))), true
}

// Usage returns the budget of a restricted class
func (g *Gate) Usage(class Class) (Usage, bool) {
	limit, ok := g.limits[class]
	if !ok {
		return Usage{}, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	calls := g.prune(class)
	usage := Usage{
		Limit:     limit,
		Used:      len(calls),
		Remaining: max(0, limit-len(calls)),
	}
	if len(calls) > 0 {
		usage.ResetInMinutes = g.minutesUntilFree(calls[0])
	}
	return usage, true
}

// Ticket is a reserved quota slot. Commit it after a successful call,
// Release it otherwise.
type Ticket struct {
	gate  *Gate
	class Class
	once  sync.Once
}

// Commit records the reserved call
func (t *Ticket) Commit() {
	t.once.Do(func() {
		t.gate.mu.Lock()
		defer t.gate.mu.Unlock()

		t.gate.unreserve(t.class)
		t.gate.record(t.class)
	})
}

// Release gives the reserved slot back without counting a call
func (t *Ticket) Release() {
	t.once.Do(func() {
		t.gate.mu.Lock()
		defer t.gate.mu.Unlock()

		t.gate.unreserve(t.class)
	})
}

// Acquire checks the quota, reserves a slot and waits for the global spacing
func (g *Gate) Acquire(ctx context.Context, class Class) (*Ticket, error) {
	g.mu.Lock()
	decision := g.check(class)
	if decision.Allowed {
		g.pending[class]++
	}
	g.mu.Unlock()

	if !decision.Allowed {
		metrics.QuotaRejections.WithLabelValues(string(class)).Inc()
		g.logger.WithFields(map[string]any{
			"class":        class,
			"wait_minutes": decision.WaitMinutes,
		}).Warn("Upstream quota exhausted")
		return nil, domain.QuotaExceeded(string(class), decision.WaitMinutes)
	}

	ticket := &Ticket{gate: g, class: class}
	if err := g.Throttle(ctx); err != nil {
		ticket.Release()
		return nil, domain.NewError(domain.KindUpstreamTransport, string(class), "call abandoned while throttled", err)
	}

	return ticket, nil
}

// Do runs call through the gate and counts it only when it succeeds
func (g *Gate) Do(ctx context.Context, class Class, call func(ctx context.Context) error) error {
	ticket, err := g.Acquire(ctx, class)
	if err != nil {
		return err
	}

	if err := call(ctx); err != nil {
		ticket.Release()
		return err
	}

	ticket.Commit()
	return nil
}

// check must be called with mu held
func (g *Gate) check(class Class) Decision {
	limit, ok := g.limits[class]
	if !ok {
		return Decision{Allowed: true}
	}

	calls := g.prune(class)
	if len(calls)+g.pending[class] < limit {
		return Decision{Allowed: true}
	}

	// with no committed call the window is full of in-flight
	// reservations, which free their slot if the call fails
	wait := 1
	switch {
	case limit == 0:
		wait = int(Window / time.Minute)
	case len(calls) > 0:
		wait = g.minutesUntilFree(calls[0])
	}
	return Decision{Allowed: false, WaitMinutes: wait}
}

// record must be called with mu held
func (g *Gate) record(class Class) {
	limit, ok := g.limits[class]
	if !ok {
		return
	}

	g.calls[class] = append(g.prune(class), g.now())
	metrics.QuotaRemaining.WithLabelValues(string(class)).Set(float64(max(0, limit-len(g.calls[class]))))
}

func (g *Gate) unreserve(class Class) {
	if g.pending[class] > 0 {
		g.pending[class]--
	}
}

// prune drops timestamps that left the window; must be called with mu held
func (g *Gate) prune(class Class) []time.Time {
	calls := g.calls[class]
	now := g.now()

	i := 0
	for i < len(calls) && now.Sub(calls[i]) >= Window {
		i++
	}
	if i > 0 {
		calls = append(calls[:0:0], calls[i:]...)
		g.calls[class] = calls
	}
	return calls
}

// minutesUntilFree returns the whole minutes until oldest leaves the window
func (g *Gate) minutesUntilFree(oldest time.Time) int {
	left := oldest.Add(Window).Sub(g.now())
	return max(1, int(math.Ceil(left.Minutes())))
}

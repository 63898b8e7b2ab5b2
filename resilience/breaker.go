// Package resilience provides a per-host circuit breaker for feed traffic.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/yever/Paket/observability"
)

// State represents the current state of a circuit breaker.
type State int

const (
	// StateClosed allows all requests.
	StateClosed State = iota
	// StateOpen rejects requests until the cool-down elapses.
	StateOpen
	// StateHalfOpen allows a single probe request.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// ErrOpen is returned while a host's circuit is open.
var ErrOpen = errors.New("circuit breaker is open")

// Config holds circuit breaker tuning.
type Config struct {
	// MaxFailures is the number of consecutive failures before opening.
	MaxFailures uint

	// CoolDown is how long to stay open before allowing a probe.
	CoolDown time.Duration
}

// DefaultConfig opens a host after 5 consecutive failures for 60 seconds.
func DefaultConfig() Config {
	return Config{MaxFailures: 5, CoolDown: 60 * time.Second}
}

type hostBreaker struct {
	state       State
	failures    uint
	lastFailure time.Time
	probing     bool
}

// FeedBreaker isolates failures per feed host: a dead host stops consuming
// requests without affecting other sources.
type FeedBreaker struct {
	config Config

	mu    sync.Mutex
	hosts map[string]*hostBreaker
}

// NewFeedBreaker creates a per-host circuit breaker.
func NewFeedBreaker(config Config) *FeedBreaker {
	return &FeedBreaker{
		config: config,
		hosts:  make(map[string]*hostBreaker),
	}
}

// Allow reports whether a request to host may proceed. Callers must follow
// up with Report for every allowed request.
func (fb *FeedBreaker) Allow(host string) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	hb := fb.hosts[host]
	if hb == nil {
		hb = &hostBreaker{}
		fb.hosts[host] = hb
	}

	switch hb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(hb.lastFailure) < fb.config.CoolDown {
			return ErrOpen
		}
		hb.state = StateHalfOpen
		fb.publishState(host, hb)
		fallthrough
	case StateHalfOpen:
		if hb.probing {
			return ErrOpen
		}
		hb.probing = true
		return nil
	default:
		return ErrOpen
	}
}

// Report records the outcome of an allowed request.
func (fb *FeedBreaker) Report(host string, ok bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	hb := fb.hosts[host]
	if hb == nil {
		return
	}

	if ok {
		hb.state = StateClosed
		hb.failures = 0
		hb.probing = false
		fb.publishState(host, hb)
		return
	}

	hb.lastFailure = time.Now()
	switch hb.state {
	case StateClosed:
		hb.failures++
		if hb.failures >= fb.config.MaxFailures {
			hb.state = StateOpen
		}
	case StateHalfOpen:
		// A failed probe re-opens immediately
		hb.probing = false
		hb.state = StateOpen
	}
	fb.publishState(host, hb)
}

// StateOf returns the current state for a host.
func (fb *FeedBreaker) StateOf(host string) State {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	if hb := fb.hosts[host]; hb != nil {
		return hb.state
	}
	return StateClosed
}

// Reset closes the circuit for a host.
func (fb *FeedBreaker) Reset(host string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	if hb := fb.hosts[host]; hb != nil {
		*hb = hostBreaker{}
		fb.publishState(host, hb)
	}
}

func (fb *FeedBreaker) publishState(host string, hb *hostBreaker) {
	observability.CircuitBreakerState.WithLabelValues(host).Set(float64(hb.state))
}

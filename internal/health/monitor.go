// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package health polls the chat server's liveness endpoint and signals
// connection loss. The monitor is deliberately hysteretic: transient blips
// must not flap the connection-lost notice, but auth expiry is surfaced
// immediately because retrying cannot fix it.
package health

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jeranaias/mentor-tui/internal/api"
)

// Defaults for the monitor's timing policy.
const (
	DefaultInterval = 60 * time.Second
	// DefaultWakeGrace suppresses probes right after the process wakes from
	// suspension, absorbing device-sleep false positives.
	DefaultWakeGrace = 15 * time.Second
	// DefaultThreshold is how many consecutive soft failures trigger the
	// connection-lost notice.
	DefaultThreshold = 3
)

// Prober performs a single liveness probe. *api.Client satisfies this.
type Prober interface {
	Health(ctx context.Context) (api.HealthStatus, error)
}

// Notifier receives connection state changes. The UI shows and clears the
// persistent connection-lost notice from these calls; nothing else reads the
// monitor's state.
type Notifier interface {
	// ConnectionLost is called once when the failure threshold is reached,
	// or immediately with hard=true on an auth failure.
	ConnectionLost(hard bool)
	// ConnectionRestored is called when a probe succeeds after the notice
	// was shown.
	ConnectionRestored()
}

// Monitor periodically probes the server and tracks consecutive failures.
type Monitor struct {
	prober    Prober
	notifier  Notifier
	interval  time.Duration
	wakeGrace time.Duration
	threshold int

	// skip reports whether probing should be skipped right now; wired to the
	// session controller's Active so probes never contend with a live turn.
	skip func() bool

	now func() time.Time

	mu       sync.Mutex
	failures int
	notified bool
	lastTick time.Time
	waking   time.Time // probes are suppressed until this instant

	stop chan struct{}
	once sync.Once
}

// Options configures a Monitor. Zero values take the package defaults.
type Options struct {
	Interval  time.Duration
	WakeGrace time.Duration
	Threshold int
	// Skip reports whether a probe should be skipped (e.g. a turn is active).
	Skip func() bool
}

// NewMonitor creates a health monitor. notifier must not be nil.
func NewMonitor(prober Prober, notifier Notifier, opts Options) *Monitor {
	if opts.Interval == 0 {
		opts.Interval = DefaultInterval
	}
	if opts.WakeGrace == 0 {
		opts.WakeGrace = DefaultWakeGrace
	}
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Skip == nil {
		opts.Skip = func() bool { return false }
	}
	return &Monitor{
		prober:    prober,
		notifier:  notifier,
		interval:  opts.Interval,
		wakeGrace: opts.WakeGrace,
		threshold: opts.Threshold,
		skip:      opts.Skip,
		now:       time.Now,
		stop:      make(chan struct{}),
	}
}

// Start launches the periodic probe loop. The first probe runs immediately.
func (m *Monitor) Start() {
	go m.run()
}

// Stop ends the probe loop. Safe to call more than once.
func (m *Monitor) Stop() {
	m.once.Do(func() { close(m.stop) })
}

func (m *Monitor) run() {
	m.mu.Lock()
	m.lastTick = m.now()
	m.mu.Unlock()

	m.Check(context.Background())

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.noteTick()
			m.Check(context.Background())
		}
	}
}

// noteTick detects wakes from suspension: when the gap between ticks is far
// longer than the interval, the host slept and the first probes afterwards
// would report false failures.
func (m *Monitor) noteTick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if !m.lastTick.IsZero() && now.Sub(m.lastTick) > 2*m.interval {
		m.waking = now.Add(m.wakeGrace)
	}
	m.lastTick = now
}

// NoteWake suppresses probes for the wake grace window starting now. The UI
// calls this on terminal focus-regain events.
func (m *Monitor) NoteWake() {
	m.mu.Lock()
	m.waking = m.now().Add(m.wakeGrace)
	m.mu.Unlock()
}

// Check performs a single probe, applying the skip and grace policies.
func (m *Monitor) Check(ctx context.Context) {
	if m.skip() {
		return
	}
	m.mu.Lock()
	inGrace := m.now().Before(m.waking)
	m.mu.Unlock()
	if inGrace {
		return
	}

	status, err := m.prober.Health(ctx)
	if err != nil {
		log.Printf("health: probe failed: %v", err)
		m.softFailure()
		return
	}

	switch {
	case status.AuthExpired:
		m.hardFailure(status.StatusCode)
	case !status.Healthy:
		log.Printf("health: probe returned status %d", status.StatusCode)
		m.softFailure()
	default:
		m.success()
	}
}

// Failures returns the current consecutive soft-failure count.
func (m *Monitor) Failures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

func (m *Monitor) softFailure() {
	m.mu.Lock()
	m.failures++
	trigger := m.failures >= m.threshold && !m.notified
	if trigger {
		m.notified = true
	}
	m.mu.Unlock()

	if trigger {
		m.notifier.ConnectionLost(false)
	}
}

// hardFailure reports auth expiry without waiting for the threshold: a 401 or
// 403 means the session is gone and repeated probes change nothing.
func (m *Monitor) hardFailure(status int) {
	m.mu.Lock()
	trigger := !m.notified
	m.notified = true
	m.mu.Unlock()

	log.Printf("health: auth failure (status %d)", status)
	if trigger {
		m.notifier.ConnectionLost(true)
	}
}

func (m *Monitor) success() {
	m.mu.Lock()
	m.failures = 0
	restored := m.notified
	m.notified = false
	m.mu.Unlock()

	if restored {
		m.notifier.ConnectionRestored()
	}
}

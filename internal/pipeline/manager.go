package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRunInProgress is returned by Manager.Execute while another run is executing.
var ErrRunInProgress = errors.New("run in progress")

// historyLimit bounds the summaries kept by a Manager.
const historyLimit = 20

// Executor runs one computation. *Runner implements it.
type Executor interface {
	Run(ctx context.Context) (*Run, error)
}

// Notifier receives run lifecycle events from a Manager. Calls are made
// synchronously on the executing goroutine.
type Notifier interface {
	RunStarted(ctx context.Context, startedAt time.Time)
	RunFinished(ctx context.Context, summary Summary)
}

// Manager serializes runs and keeps the latest successful one for queries.
type Manager struct {
	executor  Executor
	notifiers []Notifier

	mu      sync.RWMutex
	running bool
	latest  *Run
	history []Summary
}

// NewManager creates a manager over executor that reports to notifiers.
func NewManager(executor Executor, notifiers ...Notifier) *Manager {
	return &Manager{executor: executor, notifiers: notifiers}
}

// Execute runs once. A failed run is recorded in the history but does not
// replace the latest successful run.
func (m *Manager) Execute(ctx context.Context) (*Run, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil, ErrRunInProgress
	}
	m.running = true
	m.mu.Unlock()

	for _, n := range m.notifiers {
		n.RunStarted(ctx, time.Now())
	}

	run, err := m.executor.Run(ctx)

	m.mu.Lock()
	m.running = false
	if run != nil {
		m.history = append(m.history, run.Summary)
		if len(m.history) > historyLimit {
			m.history = m.history[len(m.history)-historyLimit:]
		}
	}
	if err == nil {
		m.latest = run
	}
	m.mu.Unlock()

	if run != nil {
		for _, n := range m.notifiers {
			n.RunFinished(ctx, run.Summary)
		}
	}
	return run, err
}

// Latest returns the most recent successful run, or nil.
func (m *Manager) Latest() *Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Running reports whether a run is executing.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// History returns run summaries, oldest first.
func (m *Manager) History() []Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Summary(nil), m.history...)
}

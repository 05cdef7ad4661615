// Package jobmgr runs named background jobs with cancellation and tracks the
// ones still running.
//
//	jm := jobmgr.NewManager(logger)
//	_ = jm.Start(ctx, "engine-init", func(ctx context.Context) error {
//	    // work until ctx is cancelled
//	    return nil
//	})
//	jm.StopAll()
//	jm.Wait()
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

var ErrJobRunning = errors.New("job is already running")

type job struct {
	cancel context.CancelFunc
}

// Manager is safe for concurrent use.
type Manager struct {
	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup
	log  zerolog.Logger
}

func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{jobs: make(map[string]*job), log: logger}
}

// Start runs runner in its own goroutine with a context derived from parent.
// A job is removed once runner returns.
func (m *Manager) Start(parent context.Context, name string, runner func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobRunning, name)
	}

	ctx, cancel := context.WithCancel(parent)
	j := &job{cancel: cancel}
	m.jobs[name] = j
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		defer cancel()

		logger := m.log.With().Str("job", name).Logger()
		logger.Debug().Msg("job running")
		if err := runner(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("job failed")
		} else {
			logger.Debug().Msg("job done")
		}

		m.mu.Lock()
		if m.jobs[name] == j {
			delete(m.jobs, name)
		}
		m.mu.Unlock()
	}()
	return nil
}

// Stop cancels a running job by name.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("job '%s' not running", name)
	}
	j.cancel()
	delete(m.jobs, name)
	return nil
}

// StopAll cancels every running job.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, j := range m.jobs {
		j.cancel()
		delete(m.jobs, name)
	}
}

// Wait blocks until every started job has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// List returns the names of active jobs, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

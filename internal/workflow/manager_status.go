package workflow

import (
	"context"

	"sheetlingo/internal/logging"
	"sheetlingo/internal/pipeline"
	"sheetlingo/internal/store"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running   bool
	ActiveJob string
	LastError string
	LastJob   *store.Job
	JobStats  map[pipeline.Status]int
	Health    []Health
}

// Status returns the latest workflow information. It never contacts the
// translator; use CheckHealth for that.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	active := m.activeJob
	lastErr := m.lastErr
	lastJob := m.lastJob
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read job stats", logging.Error(err))
	}

	summary := StatusSummary{
		Running:   running,
		ActiveJob: active,
		JobStats:  stats,
		Health:    []Health{m.storeHealth(ctx)},
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastJob != nil {
		copy := *lastJob
		summary.LastJob = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *store.Job) {
	m.mu.Lock()
	if job != nil {
		copy := *job
		m.lastJob = &copy
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}

func (m *Manager) setActiveJob(id string) {
	m.mu.Lock()
	m.activeJob = id
	m.mu.Unlock()
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sheetlingo/internal/logging"
	"sheetlingo/internal/store"
)

// Start resets interrupted jobs and begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}

	reset, err := m.store.ResetStuckProcessing(ctx)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("reset interrupted jobs: %w", err)
	}
	if reset > 0 {
		logging.WarnWithContext(m.logger, "requeued interrupted jobs", "jobs_requeued",
			logging.Int64("count", reset),
			logging.String(logging.FieldImpact, "jobs restart from the first cell"),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	m.logger.Info("workflow started",
		logging.String(logging.FieldEventType, "workflow_started"),
		logging.Duration("poll_interval", m.pollInterval),
	)
	return nil
}

// Stop terminates background processing and waits for completion. A job
// in flight ends partial with its remaining cells untranslated.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		processed, err := m.ProcessNext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return
			}
			m.handleNextJobError(ctx, err)
			continue
		}
		if !processed {
			m.waitForJobOrShutdown(ctx)
		}
	}
}

// ProcessNext claims and processes the oldest pending job. It reports false
// when the queue is empty. Job failures are recorded on the job; the error
// return covers queue access only.
func (m *Manager) ProcessNext(ctx context.Context) (bool, error) {
	rec, err := m.store.ClaimNextPending(ctx)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	return true, m.processJob(ctx, rec)
}

// RunJob claims the given pending job and processes it synchronously,
// returning the final record.
func (m *Manager) RunJob(ctx context.Context, id string) (*store.Job, error) {
	rec, err := m.store.ClaimJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("job %s is not pending", id)
	}
	if err := m.processJob(ctx, rec); err != nil {
		return nil, err
	}
	return m.store.GetJob(context.WithoutCancel(ctx), id)
}

func (m *Manager) handleNextJobError(ctx context.Context, err error) {
	m.setLastError(err)
	m.logger.Error("job queue error",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_error"),
		logging.String(logging.FieldErrorHint, "check database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(m.retryInterval):
	}
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-m.wake:
	case <-time.After(m.pollInterval):
	}
}

package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sheetlingo/internal/config"
	"sheetlingo/internal/logging"
	"sheetlingo/internal/notifications"
	"sheetlingo/internal/pipeline"
	"sheetlingo/internal/store"
)

// Manager coordinates queue processing of persisted translation jobs.
type Manager struct {
	cfg           *config.Config
	store         *store.Store
	translator    pipeline.Translator
	runner        *pipeline.Runner
	logger        *slog.Logger
	pollInterval  time.Duration
	retryInterval time.Duration
	observer      func(*pipeline.Job, pipeline.Progress)
	notifier      notifications.Service
	wake          chan struct{}
	now           func() time.Time

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastErr   error
	lastJob   *store.Job
	activeJob string
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	pipelineOpts []pipeline.Option
	observer     func(*pipeline.Job, pipeline.Progress)
	notifier     notifications.Service
}

// WithPipelineOptions appends runner options after the configured ones.
func WithPipelineOptions(opts ...pipeline.Option) ManagerOption {
	return func(o *managerOptions) {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
	}
}

// WithProgressObserver receives every progress report after it has been
// persisted. It runs on the job's aggregator goroutine and must return
// quickly.
func WithProgressObserver(fn func(*pipeline.Job, pipeline.Progress)) ManagerOption {
	return func(o *managerOptions) {
		o.observer = fn
	}
}

// WithNotifier publishes an event whenever a job reaches a terminal state.
func WithNotifier(svc notifications.Service) ManagerOption {
	return func(o *managerOptions) {
		o.notifier = svc
	}
}

// NewManager constructs a workflow manager that translates with translator.
func NewManager(cfg *config.Config, st *store.Store, translator pipeline.Translator, logger *slog.Logger, opts ...ManagerOption) *Manager {
	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	notifier := options.notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	m := &Manager{
		cfg:           cfg,
		store:         st,
		translator:    translator,
		logger:        logging.NewComponentLogger(logger, "workflow"),
		pollInterval:  cfg.PollInterval(),
		retryInterval: cfg.ErrorRetryInterval(),
		observer:      options.observer,
		notifier:      notifier,
		wake:          make(chan struct{}, 1),
		now:           time.Now,
	}
	runnerOpts := append([]pipeline.Option{pipeline.WithProgress(m.recordProgress)}, options.pipelineOpts...)
	m.runner = NewRunner(cfg, st, translator, logger, runnerOpts...)
	return m
}

// Runner exposes the pipeline runner used for every job.
func (m *Manager) Runner() *pipeline.Runner {
	return m.runner
}

func (m *Manager) notify() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

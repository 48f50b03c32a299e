package workflow

import (
	"context"
	"strings"
)

// Health summarizes the readiness of one dependency of the manager.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: strings.TrimSpace(detail)}
}

// HealthChecker is implemented by translators that can verify their
// upstream connection.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

func (m *Manager) storeHealth(ctx context.Context) Health {
	if err := m.store.Ping(ctx); err != nil {
		return Unhealthy("store", err.Error())
	}
	return Healthy("store")
}

func (m *Manager) translatorHealth(ctx context.Context) Health {
	checker, ok := m.translator.(HealthChecker)
	if !ok {
		return Healthy("translator")
	}
	if err := checker.HealthCheck(ctx); err != nil {
		return Unhealthy("translator", err.Error())
	}
	return Healthy("translator")
}

// CheckHealth probes the store and the translator. The translator probe may
// issue a network request.
func (m *Manager) CheckHealth(ctx context.Context) []Health {
	return []Health{m.storeHealth(ctx), m.translatorHealth(ctx)}
}

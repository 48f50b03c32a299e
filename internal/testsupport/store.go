package testsupport

import (
	"context"
	"testing"

	"sheetlingo/internal/config"
	"sheetlingo/internal/pipeline"
	"sheetlingo/internal/store"
	"sheetlingo/internal/table"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

// NewJob inserts a pending job record for tests.
func NewJob(t testing.TB, s *store.Store, id string, targets ...string) *store.Job {
	t.Helper()

	if len(targets) == 0 {
		targets = []string{"hi"}
	}
	job := &store.Job{
		ID:              id,
		UserID:          store.DefaultUser,
		SourceName:      "catalog.csv",
		Format:          table.FormatCSV,
		Status:          pipeline.StatusPending,
		SourceLanguage:  "en",
		TargetLanguages: targets,
	}
	if err := s.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("store.CreateJob: %v", err)
	}
	return job
}

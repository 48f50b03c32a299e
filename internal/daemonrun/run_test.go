package daemonrun_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sheetlingo/internal/daemon"
	"sheetlingo/internal/daemonrun"
	"sheetlingo/internal/pipeline"
	"sheetlingo/internal/testsupport"
)

func TestRunServesUntilCanceled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan *daemon.Daemon, 1)
	done := make(chan error, 1)
	go func() {
		done <- daemonrun.Run(ctx, cfg, daemonrun.Options{
			LogLevel:   "error",
			Translator: testsupport.NewScriptedTranslator(),
			Ready:      func(d *daemon.Daemon) { ready <- d },
		})
	}()

	select {
	case d := <-ready:
		if !d.Status(ctx).Running {
			t.Fatal("expected running daemon")
		}
		if _, err := os.Stat(filepath.Join(cfg.Paths.DataDir, "sheetlingo.pid")); err != nil {
			t.Fatalf("pid file: %v", err)
		}
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not become ready")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.DataDir, "sheetlingo.pid")); !os.IsNotExist(err) {
		t.Fatalf("pid file should be removed, stat err = %v", err)
	}
}

func TestRunRequiresLLMKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.LLM.APIKey = ""
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: "error"}); err == nil {
		t.Fatal("expected missing api key error")
	}
}

func TestRunPublishesJobNotifications(t *testing.T) {
	titles := make(chan string, 4)
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		titles <- r.Header.Get("Title")
		w.WriteHeader(http.StatusOK)
	}))
	defer ntfy.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = ntfy.URL
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- daemonrun.Run(ctx, cfg, daemonrun.Options{
			LogLevel:   "error",
			Translator: testsupport.NewScriptedTranslator(),
			Ready: func(d *daemon.Daemon) {
				if _, err := d.Submit(ctx, pipeline.Input{
					FileName:        "catalog.csv",
					Data:            []byte(testsupport.CatalogCSV),
					TargetLanguages: []string{"hi"},
				}); err != nil {
					t.Errorf("Submit: %v", err)
				}
			},
		})
	}()

	select {
	case title := <-titles:
		if title != "sheetlingo - Job Complete" {
			t.Fatalf("notification title = %q", title)
		}
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("no notification received")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

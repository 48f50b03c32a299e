package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sheetlingo/internal/daemon"
	"sheetlingo/internal/testsupport"
	"sheetlingo/internal/workflow"
)

func startTestDaemon(t *testing.T, env *cliTestEnv) *daemon.Daemon {
	t.Helper()
	st := testsupport.MustOpenStore(t, env.cfg)
	mgr := workflow.NewManager(env.cfg, st, env.translator, nil)
	d, err := daemon.New(env.cfg, st, nil, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon start: %v", err)
	}

	cfg := *env.cfg
	cfg.Paths.APIBind = d.APIAddress()
	writeTestConfig(t, env.configPath, &cfg)
	return d
}

func TestSubmitWaitsAndDownloads(t *testing.T) {
	env := setupCLITestEnv(t)
	startTestDaemon(t, env)
	catalog := env.writeCatalog(t, "catalog.csv", testsupport.CatalogCSV)
	outDir := filepath.Join(env.baseDir, "downloads")

	stdout, _, err := env.run(t, "submit", catalog, "--to", "hi,mr", "--wait", "--poll", "20ms", "--output", outDir, "--json")
	if err != nil {
		t.Fatalf("submit: %v\n%s", err, stdout)
	}
	resp := decodeJobResponse(t, stdout)
	if resp.Job.Status != "completed" || len(resp.Artifacts) != 3 {
		t.Fatalf("job = %+v artifacts = %+v", resp.Job, resp.Artifacts)
	}
	combined, err := os.ReadFile(filepath.Join(outDir, "catalog_combined.csv"))
	if err != nil {
		t.Fatalf("read downloaded artifact: %v", err)
	}
	requireContains(t, string(combined), "sku_original,title_original,sku_hi,title_hi,sku_mr,title_mr")

	status, _, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, status, "running (pid")
	requireContains(t, status, "completed")
}

func TestSubmitWithoutWaitQueuesJob(t *testing.T) {
	env := setupCLITestEnv(t)
	startTestDaemon(t, env)
	catalog := env.writeCatalog(t, "catalog.csv", testsupport.CatalogCSV)

	stdout, _, err := env.run(t, "submit", catalog, "--to", "hi")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requireContains(t, stdout, "Job:")
	requireContains(t, stdout, "pending")
}

func TestSubmitRejectedUpload(t *testing.T) {
	env := setupCLITestEnv(t)
	startTestDaemon(t, env)
	catalog := env.writeCatalog(t, "prices.csv", "sku,price\nA-1,9.99\n")

	_, _, err := env.run(t, "submit", catalog, "--to", "hi")
	if err == nil || !strings.Contains(err.Error(), "422") {
		t.Fatalf("error = %v", err)
	}
}

func TestServeRunsUntilCanceled(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--config", env.configPath, "serve", "--log-level", "error"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	pidPath := filepath.Join(env.cfg.Paths.DataDir, "sheetlingo.pid")
	waitFor(t, 5*time.Second, func() bool {
		_, err := os.Stat(pidPath)
		return err == nil
	})
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, stat err = %v", err)
	}
}

func TestServeRequiresLLMKey(t *testing.T) {
	env := setupCLITestEnv(t)
	newTranslator = workflow.NewTranslator
	cfg := *env.cfg
	cfg.LLM.APIKey = ""
	writeTestConfig(t, env.configPath, &cfg)

	_, _, err := env.run(t, "serve")
	if err == nil || !strings.Contains(err.Error(), "llm.api_key is required") {
		t.Fatalf("error = %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sheetlingo/internal/testsupport"
)

func TestTranslateWritesArtifacts(t *testing.T) {
	env := setupCLITestEnv(t)
	env.translator.Answer("hi", "Red cotton shirt", "लाल सूती शर्ट")
	catalog := env.writeCatalog(t, "catalog.csv", testsupport.CatalogCSV)
	outDir := filepath.Join(env.baseDir, "export")

	stdout, _, err := env.run(t, "translate", catalog, "--to", "hi,mr", "--tone", "formal", "--output", outDir)
	if err != nil {
		t.Fatalf("translate failed: %v\n%s", err, stdout)
	}
	requireContains(t, stdout, "completed")
	requireContains(t, stdout, "catalog_combined.csv")
	requireContains(t, stdout, "12 translated of 12 estimated")
	requireContains(t, stdout, "Formal")

	hindi, err := os.ReadFile(filepath.Join(outDir, "catalog_hi.csv"))
	if err != nil {
		t.Fatalf("read copied artifact: %v", err)
	}
	if want := "sku,title\nSKU-001,लाल सूती शर्ट\nSKU-002,[hi] Blue denim jeans\n"; string(hindi) != want {
		t.Fatalf("hindi artifact = %q, want %q", hindi, want)
	}
	if _, err := os.Stat(filepath.Join(outDir, "catalog_mr.csv")); err != nil {
		t.Fatalf("expected marathi artifact: %v", err)
	}

	for _, call := range env.translator.Calls() {
		if call.Tone != "formal" || call.Source != "en" {
			t.Fatalf("call = %+v", call)
		}
	}
}

func TestTranslateJSONReportsCellErrors(t *testing.T) {
	env := setupCLITestEnv(t)
	env.translator.Fail("Blue denim jeans", errors.New("upstream refused"))
	catalog := env.writeCatalog(t, "catalog.csv", testsupport.CatalogCSV)

	resp := env.mustTranslate(t, catalog, "--to", "hi")
	if resp.Job.Status != "partial" || resp.Job.ErrorCount != 1 {
		t.Fatalf("job = %+v", resp.Job)
	}
	if len(resp.Errors) != 1 || resp.Errors[0].Row != 2 || resp.Errors[0].Column != "title" || resp.Errors[0].Language != "hi" {
		t.Fatalf("errors = %+v", resp.Errors)
	}
	if len(resp.Artifacts) != 2 {
		t.Fatalf("artifacts = %+v", resp.Artifacts)
	}
}

func TestTranslateNoCacheSkipsCache(t *testing.T) {
	env := setupCLITestEnv(t)
	catalog := env.writeCatalog(t, "catalog.csv", testsupport.CatalogCSV)

	env.mustTranslate(t, catalog, "--to", "hi")
	env.mustTranslate(t, catalog, "--to", "hi")
	if got := len(env.translator.Calls()); got != 2 {
		t.Fatalf("cached rerun made %d calls, want 2", got)
	}

	env.mustTranslate(t, catalog, "--to", "hi", "--no-cache", "--concurrency", "1")
	if got := len(env.translator.Calls()); got != 4 {
		t.Fatalf("uncached rerun made %d calls, want 4", got)
	}
}

func TestTranslateProtectedTermBypassesCache(t *testing.T) {
	env := setupCLITestEnv(t)
	catalog := env.writeCatalog(t, "catalog.csv", testsupport.CatalogCSV)

	env.mustTranslate(t, catalog, "--to", "hi")
	env.mustTranslate(t, catalog, "--to", "hi", "--term", "Red")

	calls := env.translator.Calls()
	if len(calls) != 4 {
		t.Fatalf("calls = %+v", calls)
	}
	masked := false
	for _, call := range calls[2:] {
		if strings.Contains(call.Text, "Red") {
			t.Fatalf("protected term sent to translator: %+v", call)
		}
		if strings.Contains(call.Text, "__BRAND_0__") {
			masked = true
		}
	}
	if !masked {
		t.Fatalf("expected a masked call, got %+v", calls[2:])
	}
}

func TestTranslateRejectsDegenerateCatalog(t *testing.T) {
	env := setupCLITestEnv(t)
	catalog := env.writeCatalog(t, "prices.csv", "sku,price\nA-1,9.99\nB-2,19.99\n")

	stdout, _, err := env.run(t, "translate", catalog, "--to", "hi")
	if err == nil {
		t.Fatal("expected degenerate catalog to fail")
	}
	requireContains(t, err.Error(), "failed")
	requireContains(t, stdout, "failed")
	if len(env.translator.Calls()) != 0 {
		t.Fatalf("unexpected translation calls: %+v", env.translator.Calls())
	}

	list, _, err := env.run(t, "jobs", "list", "--status", "failed")
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, list, "prices.csv")
}

func TestTranslateRequiresTargets(t *testing.T) {
	env := setupCLITestEnv(t)
	catalog := env.writeCatalog(t, "catalog.csv", testsupport.CatalogCSV)

	if _, _, err := env.run(t, "translate", catalog); err == nil {
		t.Fatal("expected missing --to to fail")
	}
}

func TestTranslateInsufficientCredits(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithCredits(3))
	catalog := env.writeCatalog(t, "catalog.csv", testsupport.CatalogCSV)

	_, _, err := env.run(t, "translate", catalog, "--to", "hi")
	if err == nil || !strings.Contains(err.Error(), "insufficient credits") {
		t.Fatalf("error = %v", err)
	}
	balance, _, err := env.run(t, "credits", "balance")
	if err != nil {
		t.Fatalf("credits balance: %v", err)
	}
	requireContains(t, balance, "default: 3 words")
}

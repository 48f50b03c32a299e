package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"sheetlingo/internal/api"
	"sheetlingo/internal/config"
	"sheetlingo/internal/pipeline"
	"sheetlingo/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	translator *testsupport.ScriptedTranslator
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	clearSheetlingoEnv(t)

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	translator := testsupport.NewScriptedTranslator()
	previous := newTranslator
	newTranslator = func(*config.Config) (pipeline.Translator, error) { return translator, nil }
	t.Cleanup(func() { newTranslator = previous })

	return &cliTestEnv{cfg: cfg, configPath: configPath, translator: translator, baseDir: base}
}

func clearSheetlingoEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"SHEETLINGO_LLM_API_KEY",
		"OPENROUTER_API_KEY",
		"SHEETLINGO_LLM_MODEL",
		"SHEETLINGO_API_TOKEN",
		"SHEETLINGO_DATA_DIR",
		"SHEETLINGO_NTFY_TOPIC",
		"SHEETLINGO_LOG_LEVEL",
		"SHEETLINGO_LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (env *cliTestEnv) writeCatalog(t *testing.T, name, body string) string {
	t.Helper()
	return testsupport.WriteCatalog(t, env.baseDir, name, body)
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, env.configPath)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// mustTranslate runs translate --json and returns the decoded job.
func (env *cliTestEnv) mustTranslate(t *testing.T, args ...string) api.JobResponse {
	t.Helper()
	stdout, _, err := env.run(t, append([]string{"translate", "--json"}, args...)...)
	if err != nil {
		t.Fatalf("translate failed: %v\n%s", err, stdout)
	}
	return decodeJobResponse(t, stdout)
}

func decodeJobResponse(t *testing.T, payload string) api.JobResponse {
	t.Helper()
	var resp api.JobResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		t.Fatalf("decode job json: %v\n%s", err, payload)
	}
	return resp
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

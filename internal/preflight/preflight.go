package preflight

import (
	"context"
	"path/filepath"

	"sheetlingo/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options adjusts which checks RunAll performs.
type Options struct {
	// SkipLLM omits the network probe of the translation endpoint.
	SkipLLM bool
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Upload directory", cfg.Paths.UploadDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
	}

	if cfg.Cache.Enabled && cfg.Cache.Backend == "file" {
		results = append(results, CheckDirectoryAccess("Cache directory", filepath.Dir(cfg.Cache.Path)))
	}

	if !opts.SkipLLM {
		results = append(results, CheckLLM(ctx, "Translation LLM", cfg.GetLLM()))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

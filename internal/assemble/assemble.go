package assemble

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sheetlingo/internal/fileutil"
	"sheetlingo/internal/table"
	"sheetlingo/internal/textutil"
)

const (
	originalSuffix  = "original"
	combinedSuffix  = "combined"
	defaultBaseName = "catalog"
)

// Export is one language's translated table, ready to write.
type Export struct {
	Language string
	Table    *table.Table
}

// Artifact describes a written output file. Language is empty for the
// combined artifact.
type Artifact struct {
	Name     string
	Language string
	Path     string
	Size     int64
}

// PerLanguage returns one table per language in order, with every header
// suffixed by the language code. Languages missing from results are skipped.
func PerLanguage(original *table.Table, results map[string]*table.Table, order []string) []Export {
	if original == nil {
		return nil
	}
	out := make([]Export, 0, len(order))
	for _, lang := range order {
		translated, ok := results[lang]
		if !ok || translated == nil {
			continue
		}
		t := &table.Table{
			Headers: suffixHeaders(original.Headers, lang),
			Rows:    make([][]string, len(original.Rows)),
		}
		for i := range original.Rows {
			t.Rows[i] = fitRow(rowAt(translated, i), len(original.Headers))
		}
		out = append(out, Export{Language: lang, Table: t})
	}
	return out
}

// Combined places the original columns next to every translation. Rows are
// joined by index so duplicate cell values never get confused.
func Combined(original *table.Table, results map[string]*table.Table, order []string) *table.Table {
	if original == nil {
		return nil
	}
	width := len(original.Headers)
	var langs []string
	for _, lang := range order {
		if t, ok := results[lang]; ok && t != nil {
			langs = append(langs, lang)
		}
	}

	headers := suffixHeaders(original.Headers, originalSuffix)
	for _, lang := range langs {
		headers = append(headers, suffixHeaders(original.Headers, lang)...)
	}
	out := &table.Table{Headers: headers, Rows: make([][]string, len(original.Rows))}
	for i, row := range original.Rows {
		combined := make([]string, 0, width*(len(langs)+1))
		combined = append(combined, fitRow(row, width)...)
		for _, lang := range langs {
			combined = append(combined, fitRow(rowAt(results[lang], i), width)...)
		}
		out.Rows[i] = combined
	}
	return out
}

// WriteArtifacts writes <base>_<lang>.<ext> for each language plus
// <base>_combined.<ext> into dir using format. Files are replaced atomically.
func WriteArtifacts(dir, baseName string, format table.Format, original *table.Table, results map[string]*table.Table, order []string) ([]Artifact, error) {
	if original == nil {
		return nil, fmt.Errorf("write artifacts: no source table")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	base := BaseName(baseName)

	exports := PerLanguage(original, results, order)
	artifacts := make([]Artifact, 0, len(exports)+1)
	for _, exp := range exports {
		name := fmt.Sprintf("%s_%s.%s", base, textutil.SanitizeFileName(exp.Language), format.Extension())
		artifact, err := writeTable(dir, name, format, exp.Table)
		if err != nil {
			return artifacts, err
		}
		artifact.Language = exp.Language
		artifacts = append(artifacts, artifact)
	}

	name := fmt.Sprintf("%s_%s.%s", base, combinedSuffix, format.Extension())
	artifact, err := writeTable(dir, name, format, Combined(original, results, order))
	if err != nil {
		return artifacts, err
	}
	return append(artifacts, artifact), nil
}

// BaseName derives the artifact prefix from an uploaded file name.
func BaseName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = textutil.SanitizeFileName(name)
	if name == "" || name == "." {
		return defaultBaseName
	}
	return name
}

func writeTable(dir, name string, format table.Format, t *table.Table) (Artifact, error) {
	path := filepath.Join(dir, name)
	err := fileutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		return table.Write(w, t, format)
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("write %s: %w", name, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("stat %s: %w", name, err)
	}
	return Artifact{Name: name, Path: path, Size: info.Size()}, nil
}

func suffixHeaders(headers []string, suffix string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = h + "_" + suffix
	}
	return out
}

func rowAt(t *table.Table, i int) []string {
	if t == nil || i >= len(t.Rows) {
		return nil
	}
	return t.Rows[i]
}

// fitRow copies row padded or truncated to width.
func fitRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

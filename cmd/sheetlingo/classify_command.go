package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sheetlingo/internal/classify"
	"sheetlingo/internal/table"
	"sheetlingo/internal/textutil"
)

type columnPreview struct {
	Index    int     `json:"index"`
	Header   string  `json:"header"`
	Role     string  `json:"role"`
	NonEmpty int     `json:"nonEmpty"`
	Prose    int     `json:"prose"`
	Fraction float64 `json:"fraction"`
	Words    int     `json:"words"`
}

type classifyPreview struct {
	File    string          `json:"file"`
	Format  string          `json:"format"`
	Rows    int             `json:"rows"`
	Columns []columnPreview `json:"columns"`
	Words   int             `json:"wordsPerLanguage"`
}

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:         "classify <file>",
		Short:       "Preview which columns would be translated",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			preview, err := buildClassifyPreview(args[0], formatFlag)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, preview)
			}

			rows := make([][]string, 0, len(preview.Columns))
			for _, col := range preview.Columns {
				rows = append(rows, []string{
					strconv.Itoa(col.Index + 1),
					col.Header,
					col.Role,
					fmt.Sprintf("%d/%d", col.Prose, col.NonEmpty),
					strconv.FormatFloat(col.Fraction*100, 'f', 0, 64) + "%",
					humanize.Comma(int64(col.Words)),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Column", "Role", "Prose", "Share", "Words"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			fmt.Fprintf(out, "%s data rows; columns above %.0f%% prose are translated; about %s words per target language\n",
				humanize.Comma(int64(preview.Rows)), classify.TextThreshold*100, humanize.Comma(int64(preview.Words)))
			return nil
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", "", "File format (csv or xlsx); detected from the extension by default")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func buildClassifyPreview(path, formatFlag string) (classifyPreview, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return classifyPreview{}, fmt.Errorf("read catalog: %w", err)
	}
	var format table.Format
	if strings.TrimSpace(formatFlag) != "" {
		format, err = table.ParseFormat(formatFlag)
	} else {
		format, err = table.DetectFormat(path, "")
	}
	if err != nil {
		return classifyPreview{}, err
	}
	parsed, err := table.Parse(data, format)
	if err != nil {
		return classifyPreview{}, err
	}

	preview := classifyPreview{
		File:   filepath.Base(path),
		Format: string(format),
		Rows:   len(parsed.Rows),
	}
	for _, col := range classify.Summarize(parsed) {
		words := 0
		if col.Role == classify.RoleText {
			for _, row := range parsed.Rows {
				words += textutil.WordCount(row[col.Index])
			}
		}
		preview.Words += words
		preview.Columns = append(preview.Columns, columnPreview{
			Index:    col.Index,
			Header:   col.Header,
			Role:     col.Role.String(),
			NonEmpty: col.NonEmpty,
			Prose:    col.Prose,
			Fraction: col.Fraction(),
			Words:    words,
		})
	}
	return preview, nil
}

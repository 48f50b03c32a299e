package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"sheetlingo/internal/api"
	"sheetlingo/internal/services/llm"
	"sheetlingo/internal/store"
)

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 0, 64) + "%"
}

func jobResponse(rec *store.Job, jobErrors []store.JobError, artifacts []store.Artifact) api.JobResponse {
	return api.JobResponse{
		Job:       api.FromJob(rec),
		Errors:    api.FromJobErrors(jobErrors),
		Artifacts: api.FromArtifacts(rec.ID, artifacts),
	}
}

// renderJobDetail prints the status block, error table and artifact table
// shared by translate and jobs show.
func renderJobDetail(w io.Writer, rec *store.Job, jobErrors []store.JobError, artifacts []store.Artifact, colorize bool) {
	for _, line := range renderSectionHeader("Job "+shortID(rec.ID), colorize) {
		fmt.Fprintln(w, line)
	}
	statusMsg := string(rec.Status)
	if rec.ErrorMessage != "" {
		statusMsg += ": " + rec.ErrorMessage
	}
	fmt.Fprintln(w, renderStatusLine("Status", jobStatusKind(rec.Status), statusMsg, colorize))
	fmt.Fprintln(w, renderStatusLine("Source", statusInfo, fmt.Sprintf("%s (%s)", rec.SourceName, rec.Format), colorize))
	fmt.Fprintln(w, renderStatusLine("Languages", statusInfo,
		fmt.Sprintf("%s -> %s", rec.SourceLanguage, strings.Join(rec.TargetLanguages, ", ")), colorize))
	fmt.Fprintln(w, renderStatusLine("Tone", statusInfo, llm.ToneLabel(rec.Tone), colorize))
	fmt.Fprintln(w, renderStatusLine("Progress", statusInfo,
		fmt.Sprintf("%d/%d units (%s)", rec.CompletedUnits, rec.TotalUnits, formatPercent(rec.ProgressPercent)), colorize))
	fmt.Fprintln(w, renderStatusLine("Words", statusInfo,
		fmt.Sprintf("%s translated of %s estimated", humanize.Comma(int64(rec.WordsTranslated)), humanize.Comma(int64(rec.TotalWordsEstimated))), colorize))
	errKind := statusOK
	if rec.ErrorCount > 0 {
		errKind = statusWarn
	}
	fmt.Fprintln(w, renderStatusLine("Errors", errKind, strconv.Itoa(rec.ErrorCount), colorize))
	if rec.OutputDir != "" {
		fmt.Fprintln(w, renderStatusLine("Output", statusInfo, rec.OutputDir, colorize))
	}

	if len(jobErrors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderErrorTable(jobErrors))
	}
	if len(artifacts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderArtifactTable(artifacts))
	}
}

func renderErrorTable(jobErrors []store.JobError) string {
	rows := make([][]string, 0, len(jobErrors))
	for _, e := range jobErrors {
		row := "-"
		if e.Row > 0 {
			row = strconv.Itoa(e.Row)
		}
		rows = append(rows, []string{e.Kind, row, dash(e.Column), dash(e.Language), e.Message})
	}
	return renderTable(
		[]string{"Kind", "Row", "Column", "Language", "Message"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
	)
}

func renderArtifactTable(artifacts []store.Artifact) string {
	rows := make([][]string, 0, len(artifacts))
	for _, a := range artifacts {
		rows = append(rows, []string{a.Name, dash(a.Language), humanize.Bytes(uint64(a.Size)), a.Path})
	}
	return renderTable(
		[]string{"Artifact", "Language", "Size", "Path"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

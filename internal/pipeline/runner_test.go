package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"sheetlingo/internal/cache"
	"sheetlingo/internal/pipeline"
	"sheetlingo/internal/services"
	"sheetlingo/internal/table"
)

type call struct {
	Text   string
	Source string
	Target string
	Tone   string
}

// fakeTranslator answers from a fixed table and falls back to "[lang] text".
type fakeTranslator struct {
	mu      sync.Mutex
	answers map[string]string // key: target + "|" + text
	fail    map[string]error  // key: text
	calls   []call
	hook    func(text string)
}

func (f *fakeTranslator) Translate(_ context.Context, text, source, target, tone string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{Text: text, Source: source, Target: target, Tone: tone})
	hook := f.hook
	err := f.fail[text]
	answer, ok := f.answers[target+"|"+text]
	f.mu.Unlock()
	if hook != nil {
		hook(text)
	}
	if err != nil {
		return "", err
	}
	if ok {
		return answer, nil
	}
	return "[" + target + "] " + text, nil
}

func (f *fakeTranslator) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type fakeLedger struct {
	mu      sync.Mutex
	balance int
	debits  []int
	err     error
}

func (l *fakeLedger) HasSufficientCredits(_ context.Context, _ string, words int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	return l.balance >= words, nil
}

func (l *fakeLedger) DebitCredits(_ context.Context, _ string, words int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debits = append(l.debits, words)
	l.balance -= words
	return nil
}

func csvInput(body string, targets ...string) pipeline.Input {
	return pipeline.Input{
		FileName:        "catalog.csv",
		Data:            []byte(body),
		SourceLanguage:  "en",
		TargetLanguages: targets,
	}
}

const catalogCSV = "sku,title\nSKU-001,Red cotton shirt\nSKU-002,Blue denim jeans\n"

func TestTranslateCatalogExample(t *testing.T) {
	tr := &fakeTranslator{answers: map[string]string{
		"hi|Red cotton shirt": "लाल सूती शर्ट",
		"hi|Blue denim jeans": "नीली डेनिम जींस",
		"mr|Red cotton shirt": "लाल सुती शर्ट",
		"mr|Blue denim jeans": "निळी डेनिम जीन्स",
	}}
	ledger := &fakeLedger{balance: 100}
	runner := pipeline.New(tr, pipeline.WithLedger(ledger))

	job, err := runner.Translate(context.Background(), csvInput(catalogCSV, "hi", "mr"))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if job.Status != pipeline.StatusCompleted {
		t.Fatalf("status = %s, errors = %v", job.Status, job.Errors)
	}
	if got := job.TextHeaders(); !reflect.DeepEqual(got, []string{"title"}) {
		t.Fatalf("text columns = %v", got)
	}
	if job.TotalUnits != 4 || job.CompletedUnits != 4 {
		t.Fatalf("units = %d/%d, want 4/4", job.CompletedUnits, job.TotalUnits)
	}
	if job.TotalWordsEstimated != 12 || job.WordsTranslated != 12 {
		t.Fatalf("words estimated=%d translated=%d, want 12/12", job.TotalWordsEstimated, job.WordsTranslated)
	}

	wantHI := [][]string{{"SKU-001", "लाल सूती शर्ट"}, {"SKU-002", "नीली डेनिम जींस"}}
	wantMR := [][]string{{"SKU-001", "लाल सुती शर्ट"}, {"SKU-002", "निळी डेनिम जीन्स"}}
	if got := job.ResultsByLanguage["hi"].Rows; !reflect.DeepEqual(got, wantHI) {
		t.Fatalf("hi rows = %v", got)
	}
	if got := job.ResultsByLanguage["mr"].Rows; !reflect.DeepEqual(got, wantMR) {
		t.Fatalf("mr rows = %v", got)
	}
	if job.Source.Rows[0][1] != "Red cotton shirt" {
		t.Fatalf("source table was modified: %v", job.Source.Rows)
	}
	if !reflect.DeepEqual(ledger.debits, []int{12}) {
		t.Fatalf("debits = %v, want [12]", ledger.debits)
	}
	for _, c := range tr.Calls() {
		if strings.HasPrefix(c.Text, "SKU") {
			t.Fatalf("identifier column sent to translator: %+v", c)
		}
		if c.Source != "en" {
			t.Fatalf("source language = %q", c.Source)
		}
	}
}

func TestEmptyCellsSkipTranslation(t *testing.T) {
	body := "sku,title\nA1,Red cotton shirt\nA2,   \nA3,Blue denim jeans\n"
	tr := &fakeTranslator{}
	job, err := pipeline.New(tr).Translate(context.Background(), csvInput(body, "hi"))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if job.Status != pipeline.StatusCompleted {
		t.Fatalf("status = %s", job.Status)
	}
	if len(tr.Calls()) != 2 {
		t.Fatalf("translator calls = %d, want 2", len(tr.Calls()))
	}
	if job.CompletedUnits != 3 {
		t.Fatalf("completed = %d, want 3", job.CompletedUnits)
	}
	if got := job.ResultsByLanguage["hi"].Rows[1][1]; got != "   " {
		t.Fatalf("empty cell = %q, want original", got)
	}
	if job.WordsTranslated != 6 {
		t.Fatalf("words = %d, want 6", job.WordsTranslated)
	}
}

func TestCellFailureIsContained(t *testing.T) {
	boom := services.Wrap(services.ErrExternalService, "llm", "translate", "upstream 500", nil)
	tr := &fakeTranslator{fail: map[string]error{"Blue denim jeans": boom}}
	body := "sku,title\nA1,Red cotton shirt\nA2,Blue denim jeans\nA3,Green linen dress\n"

	job, err := pipeline.New(tr, pipeline.WithConcurrency(3)).Translate(context.Background(), csvInput(body, "hi"))
	if err != nil {
		t.Fatalf("Translate returned error for a cell failure: %v", err)
	}
	if job.Status != pipeline.StatusPartial {
		t.Fatalf("status = %s, want partial", job.Status)
	}
	if job.ErrorCount != 1 || len(job.Errors) != 1 {
		t.Fatalf("errors = %v", job.Errors)
	}
	if !strings.HasPrefix(job.Errors[0], `row 2, column "title", language hi: `) {
		t.Fatalf("error = %q", job.Errors[0])
	}
	var cellErr *pipeline.CellTranslationError
	if !errors.As(job.Issues[0], &cellErr) || !errors.Is(cellErr, services.ErrExternalService) {
		t.Fatalf("issue = %#v", job.Issues[0])
	}
	rows := job.ResultsByLanguage["hi"].Rows
	if rows[1][1] != "Blue denim jeans" {
		t.Fatalf("failed cell = %q, want original", rows[1][1])
	}
	if rows[0][1] != "[hi] Red cotton shirt" || rows[2][1] != "[hi] Green linen dress" {
		t.Fatalf("other cells = %v", rows)
	}
	if job.WordsTranslated != 6 {
		t.Fatalf("words = %d, want 6 (failed cell not billed)", job.WordsTranslated)
	}
}

func TestErrorsSortedByLanguageRowColumn(t *testing.T) {
	fail := errors.New("nope")
	tr := &fakeTranslator{fail: map[string]error{
		"Red cotton shirt":  fail,
		"Green linen dress": fail,
		"Soft and warm":     fail,
	}}
	body := "title,notes\nRed cotton shirt,Soft and warm\nBlue denim jeans,Easy care fabric\nGreen linen dress,Hand wash only\n"

	job, err := pipeline.New(tr, pipeline.WithConcurrency(8)).Translate(context.Background(), csvInput(body, "mr", "hi"))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	var got []string
	for _, msg := range job.Errors {
		got = append(got, msg[:strings.Index(msg, ": ")])
	}
	want := []string{
		`row 1, column "title", language mr`,
		`row 1, column "notes", language mr`,
		`row 3, column "title", language mr`,
		`row 1, column "title", language hi`,
		`row 1, column "notes", language hi`,
		`row 3, column "title", language hi`,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("error order:\n got %v\nwant %v", got, want)
	}
}

func TestMarkupIsPreserved(t *testing.T) {
	tr := &fakeTranslator{}
	body := "sku,description\nA1,\"<p class=\"\"lead\"\">Soft cotton tee</p><br/> Machine washable\"\n"

	job, err := pipeline.New(tr).Translate(context.Background(), csvInput(body, "hi"))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	got := job.ResultsByLanguage["hi"].Rows[0][1]
	want := `<p class="lead">[hi] Soft cotton tee</p><br/> [hi] Machine washable`
	if got != want {
		t.Fatalf("cell = %q, want %q", got, want)
	}
	for _, c := range tr.Calls() {
		if strings.ContainsAny(c.Text, "<>") {
			t.Fatalf("markup sent to translator: %q", c.Text)
		}
	}
}

func TestProtectedTermsRoundTripAndBypassCache(t *testing.T) {
	tr := &fakeTranslator{}
	store := cache.NewMemory()
	in := csvInput("sku,title\nA1,Acme cotton shirt by acme\n", "hi")
	in.ProtectedTerms = []string{"Acme"}

	job, err := pipeline.New(tr, pipeline.WithCache(store)).Translate(context.Background(), in)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	calls := tr.Calls()
	if len(calls) != 1 || calls[0].Text != "__BRAND_0__ cotton shirt by __BRAND_1__" {
		t.Fatalf("calls = %+v", calls)
	}
	if got := job.ResultsByLanguage["hi"].Rows[0][1]; got != "[hi] Acme cotton shirt by acme" {
		t.Fatalf("cell = %q", got)
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Fatalf("cache entries = %d, want 0 for a job with protected terms", n)
	}
}

func TestCacheServesRepeatTranslations(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	if err := store.Store(ctx, cache.Key{Text: "Red cotton shirt", Source: "en", Target: "hi"}, "लाल सूती शर्ट"); err != nil {
		t.Fatal(err)
	}
	tr := &fakeTranslator{}
	job, err := pipeline.New(tr, pipeline.WithCache(store)).Translate(ctx, csvInput(catalogCSV, "hi"))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	calls := tr.Calls()
	if len(calls) != 1 || calls[0].Text != "Blue denim jeans" {
		t.Fatalf("calls = %+v, want only the uncached title", calls)
	}
	if got := job.ResultsByLanguage["hi"].Rows[0][1]; got != "लाल सूती शर्ट" {
		t.Fatalf("cached cell = %q", got)
	}
	if got, ok, _ := store.Lookup(ctx, cache.Key{Text: "Blue denim jeans", Source: "en", Target: "hi"}); !ok || got != "[hi] Blue denim jeans" {
		t.Fatalf("new translation not cached: %q %v", got, ok)
	}
	if job.WordsTranslated != 6 {
		t.Fatalf("words = %d, want 6", job.WordsTranslated)
	}
}

func TestPlaceholderCollisionRecorded(t *testing.T) {
	tr := &fakeTranslator{answers: map[string]string{
		"hi|__BRAND_0__ cotton shirt": "सूती शर्ट",
	}}
	in := csvInput("sku,title\nA1,Acme cotton shirt\n", "hi")
	in.ProtectedTerms = []string{"Acme"}

	job, err := pipeline.New(tr).Translate(context.Background(), in)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if job.Status != pipeline.StatusPartial || job.ErrorCount != 1 {
		t.Fatalf("status = %s errors = %v", job.Status, job.Errors)
	}
	var warn *pipeline.PlaceholderCollisionWarning
	if !errors.As(job.Issues[0], &warn) {
		t.Fatalf("issue = %#v", job.Issues[0])
	}
	if len(warn.Tokens) != 1 || warn.Tokens[0].Token != "__BRAND_0__" || warn.Tokens[0].Count != 0 {
		t.Fatalf("tokens = %+v", warn.Tokens)
	}
	if !strings.Contains(job.Errors[0], "placeholder collision") {
		t.Fatalf("error = %q", job.Errors[0])
	}
}

func TestInsufficientCreditsBlocksJob(t *testing.T) {
	tr := &fakeTranslator{}
	ledger := &fakeLedger{balance: 5}
	in := csvInput(catalogCSV, "hi", "mr")
	in.UserID = "shop-1"

	job, err := pipeline.New(tr, pipeline.WithLedger(ledger)).Translate(context.Background(), in)
	var credits *pipeline.InsufficientCreditsError
	if !errors.As(err, &credits) {
		t.Fatalf("err = %v, want InsufficientCreditsError", err)
	}
	if credits.Required != 12 || credits.UserID != "shop-1" {
		t.Fatalf("credits error = %+v", credits)
	}
	if job.Status != pipeline.StatusFailed {
		t.Fatalf("status = %s", job.Status)
	}
	if len(tr.Calls()) != 0 || len(ledger.debits) != 0 {
		t.Fatalf("calls=%d debits=%v, want none", len(tr.Calls()), ledger.debits)
	}
}

func TestLedgerFailureFailsJob(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("database is locked")}
	job, err := pipeline.New(&fakeTranslator{}, pipeline.WithLedger(ledger)).Translate(context.Background(), csvInput(catalogCSV, "hi"))
	if err == nil || !errors.Is(err, services.ErrTransient) {
		t.Fatalf("err = %v", err)
	}
	if job.Status != pipeline.StatusFailed {
		t.Fatalf("status = %s", job.Status)
	}
}

func TestPrepareFailures(t *testing.T) {
	tests := []struct {
		name  string
		input pipeline.Input
		check func(t *testing.T, err error)
	}{
		{
			name:  "empty file",
			input: csvInput("sku,title\n", "hi"),
			check: func(t *testing.T, err error) {
				var empty *table.EmptyFileError
				if !errors.As(err, &empty) || !errors.Is(err, table.ErrParse) {
					t.Fatalf("err = %v", err)
				}
			},
		},
		{
			name:  "no text columns",
			input: csvInput("sku,price\nA-1,19.99\nA-2,24.50\n", "hi"),
			check: func(t *testing.T, err error) {
				var degenerate *pipeline.ClassificationDegenerate
				if !errors.As(err, &degenerate) || degenerate.Columns != 2 {
					t.Fatalf("err = %v", err)
				}
			},
		},
		{
			name:  "no target languages",
			input: csvInput(catalogCSV, " ", ""),
			check: func(t *testing.T, err error) {
				if !errors.Is(err, services.ErrValidation) {
					t.Fatalf("err = %v", err)
				}
			},
		},
		{
			name:  "unknown format",
			input: pipeline.Input{FileName: "catalog.pdf", Data: []byte("x"), TargetLanguages: []string{"hi"}},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, table.ErrUnsupportedFormat) {
					t.Fatalf("err = %v", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTranslator{}
			job, err := pipeline.New(tr).Prepare(context.Background(), tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
			if job == nil || job.Status != pipeline.StatusFailed || job.ID == "" {
				t.Fatalf("job = %+v", job)
			}
			if job.ErrorCount != 1 || len(job.Errors) != 1 {
				t.Fatalf("errors = %v", job.Errors)
			}
		})
	}
}

func TestPrepareMergesGlossaryAndDedupesLanguages(t *testing.T) {
	runner := pipeline.New(&fakeTranslator{}, pipeline.WithGlossary(pipeline.StaticGlossary{"Acme", "Zeta Labs"}))
	in := csvInput(catalogCSV, "hi", " mr", "HI")
	in.UserID = "shop-1"
	in.ProtectedTerms = []string{"acme", "Nimbus", ""}

	job, err := runner.Prepare(context.Background(), in)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if want := []string{"Acme", "Zeta Labs", "Nimbus"}; !reflect.DeepEqual(job.ProtectedTerms, want) {
		t.Fatalf("terms = %v, want %v", job.ProtectedTerms, want)
	}
	if want := []string{"hi", "mr"}; !reflect.DeepEqual(job.TargetLanguages, want) {
		t.Fatalf("languages = %v, want %v", job.TargetLanguages, want)
	}
	if job.Status != pipeline.StatusPending {
		t.Fatalf("status = %s", job.Status)
	}
}

func TestRunRejectsNonPendingJob(t *testing.T) {
	runner := pipeline.New(&fakeTranslator{})
	job, err := runner.Translate(context.Background(), csvInput(catalogCSV, "hi"))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if err := runner.Run(context.Background(), job); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("second Run err = %v", err)
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	var b strings.Builder
	b.WriteString("sku,title\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "A%d,Product number %d in stock\n", i, i)
	}
	var updates []pipeline.Progress
	runner := pipeline.New(&fakeTranslator{},
		pipeline.WithConcurrency(6),
		pipeline.WithProgressEvery(7),
		pipeline.WithProgress(func(_ *pipeline.Job, p pipeline.Progress) {
			updates = append(updates, p)
		}),
	)
	if _, err := runner.Translate(context.Background(), csvInput(b.String(), "hi", "mr")); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	// 80 cells: reports at 7, 14, ..., 77, then the final one.
	if len(updates) != 12 {
		t.Fatalf("updates = %d, want 12", len(updates))
	}
	for i := 1; i < len(updates); i++ {
		if updates[i].Percent < updates[i-1].Percent {
			t.Fatalf("progress went backwards: %+v then %+v", updates[i-1], updates[i])
		}
	}
	last := updates[len(updates)-1]
	if last.Percent != 100 || last.Completed != 80 || last.Message != "completed" {
		t.Fatalf("final progress = %+v", last)
	}
}

func TestCancellationKeepsInFlightResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := &fakeTranslator{}
	tr.hook = func(string) { cancel() }

	var b strings.Builder
	b.WriteString("sku,title\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "A%d,Product number %d in stock\n", i, i)
	}
	ledger := &fakeLedger{balance: 1000}
	job, err := pipeline.New(tr, pipeline.WithConcurrency(1), pipeline.WithLedger(ledger)).
		Translate(ctx, csvInput(b.String(), "hi"))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if job.Status != pipeline.StatusPartial {
		t.Fatalf("status = %s", job.Status)
	}
	if job.CompletedUnits < 1 || job.CompletedUnits >= job.TotalUnits {
		t.Fatalf("completed = %d of %d", job.CompletedUnits, job.TotalUnits)
	}
	if got := job.ResultsByLanguage["hi"].Rows[0][1]; got != "[hi] Product number 0 in stock" {
		t.Fatalf("in-flight cell = %q, want translated", got)
	}
	want := fmt.Sprintf("job canceled: %d of %d cells not processed", job.TotalUnits-job.CompletedUnits, job.TotalUnits)
	if job.ErrorCount != 1 || job.Errors[0] != want {
		t.Fatalf("errors = %v, want [%s]", job.Errors, want)
	}
	if len(ledger.debits) != 1 || ledger.debits[0] != job.WordsTranslated || job.WordsTranslated == 0 {
		t.Fatalf("debits = %v words = %d", ledger.debits, job.WordsTranslated)
	}
}

func TestCallTimeoutFailsCell(t *testing.T) {
	slow := pipeline.TranslatorFunc(func(ctx context.Context, text, _, target, _ string) (string, error) {
		if text == "Blue denim jeans" {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "[" + target + "] " + text, nil
	})
	job, err := pipeline.New(slow, pipeline.WithCallTimeout(20*time.Millisecond)).
		Translate(context.Background(), csvInput(catalogCSV, "hi"))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if job.Status != pipeline.StatusPartial || job.ErrorCount != 1 {
		t.Fatalf("status = %s errors = %v", job.Status, job.Errors)
	}
	if !errors.Is(job.Issues[0], services.ErrTimeout) || !errors.Is(job.Issues[0], context.DeadlineExceeded) {
		t.Fatalf("issue = %v", job.Issues[0])
	}
}

func TestClockStampsJobTimes(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	runner := pipeline.New(&fakeTranslator{}, pipeline.WithClock(clock))
	job, err := runner.Translate(context.Background(), csvInput(catalogCSV, "hi"))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if !job.CreatedAt.After(base) || job.StartedAt.Before(job.CreatedAt) || job.FinishedAt.Before(job.StartedAt) {
		t.Fatalf("times created=%s started=%s finished=%s", job.CreatedAt, job.StartedAt, job.FinishedAt)
	}
	if job.FinishedAt.Location() != time.UTC {
		t.Fatalf("finished location = %s", job.FinishedAt.Location())
	}
}

func TestTextSegmentsTranslatedSeparately(t *testing.T) {
	tr := &fakeTranslator{}
	in := csvInput("sku,title\nA1,Great ACME steel <i>item</i> 7\n", "hi")
	in.ProtectedTerms = []string{"acme"}

	job, err := pipeline.New(tr).Translate(context.Background(), in)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	var texts []string
	for _, c := range tr.Calls() {
		texts = append(texts, c.Text)
	}
	want := []string{"Great __BRAND_0__ steel", "item", "7"}
	if !reflect.DeepEqual(texts, want) {
		t.Fatalf("translated texts = %q, want %q", texts, want)
	}
	if got := job.ResultsByLanguage["hi"].Rows[0][1]; got != "[hi] Great ACME steel <i>[hi] item</i> [hi] 7" {
		t.Fatalf("cell = %q", got)
	}
}

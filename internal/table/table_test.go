package table_test

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"sheetlingo/internal/table"
)

func TestParseCSVStripsBOMAndBlankLines(t *testing.T) {
	data := "\xEF\xBB\xBFsku,title\n\nA1,Red cotton shirt\n,\nB2,\"Blue \"\"denim\"\" jacket\"\n"
	got, err := table.Parse([]byte(data), table.FormatCSV)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if !reflect.DeepEqual(got.Headers, []string{"sku", "title"}) {
		t.Fatalf("headers = %q", got.Headers)
	}
	want := [][]string{
		{"A1", "Red cotton shirt"},
		{"B2", `Blue "denim" jacket`},
	}
	if !reflect.DeepEqual(got.Rows, want) {
		t.Fatalf("rows = %q, want %q", got.Rows, want)
	}
}

func TestParseCSVKeepsBareQuotes(t *testing.T) {
	data := "sku,title,notes\nTV-1,55\" Smart TV with HDR,wall mount\nTV-2,\"32\"\" HD Ready\",\"open \"box\"\n"
	got, err := table.Parse([]byte(data), table.FormatCSV)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got.Rows[0][1] != `55" Smart TV with HDR` {
		t.Fatalf("inch mark cell = %q", got.Rows[0][1])
	}
	if got.Rows[1][1] != `32" HD Ready` {
		t.Fatalf("escaped quote cell = %q", got.Rows[1][1])
	}
	if len(got.Rows) != 2 {
		t.Fatalf("rows = %q", got.Rows)
	}
}

func TestParseCSVReportsInvalidUTF8Line(t *testing.T) {
	_, err := table.Parse([]byte("sku,title\nA1,ok\nB2,bad \xff byte\n"), table.FormatCSV)
	var parseErr *table.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Line != 3 {
		t.Fatalf("line = %d, want 3", parseErr.Line)
	}
}

func TestParseCSVNormalizesRowWidth(t *testing.T) {
	data := "a,b,c\n1\n1,2,3,4\n"
	got, err := table.Parse([]byte(data), table.FormatCSV)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	for i, row := range got.Rows {
		if len(row) != 3 {
			t.Fatalf("row %d has %d cells, want 3", i, len(row))
		}
	}
	if got.Rows[0][1] != "" || got.Rows[1][2] != "3" {
		t.Fatalf("unexpected rows: %q", got.Rows)
	}
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		empty bool
	}{
		{"header only", "sku,title\n", true},
		{"nothing", "", true},
		{"only blank lines", "\n\n,,\n", true},
		{"binary data", "sku,title\nA1,\xff\xfe\x00\x01\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := table.Parse([]byte(tt.data), table.FormatCSV)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, table.ErrParse) {
				t.Fatalf("error %v does not match ErrParse", err)
			}
			var emptyErr *table.EmptyFileError
			if got := errors.As(err, &emptyErr); got != tt.empty {
				t.Fatalf("EmptyFileError = %v, want %v (err %v)", got, tt.empty, err)
			}
			if !tt.empty {
				var parseErr *table.ParseError
				if !errors.As(err, &parseErr) {
					t.Fatalf("expected ParseError, got %T", err)
				}
			}
		})
	}
}

func TestWriteCSVQuoting(t *testing.T) {
	tbl := &table.Table{
		Headers: []string{"sku", "title"},
		Rows: [][]string{
			{"A1", "plain"},
			{"A2", "a,b"},
			{"A3", `say "hi"`},
			{"A4", "two\nlines"},
		},
	}
	var buf bytes.Buffer
	if err := table.WriteCSV(&buf, tbl); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "sku,title\nA1,plain\nA2,\"a,b\"\nA3,\"say \"\"hi\"\"\"\nA4,\"two\nlines\"\n"
	if buf.String() != want {
		t.Fatalf("WriteCSV output:\n%q\nwant\n%q", buf.String(), want)
	}

	back, err := table.Parse(buf.Bytes(), table.FormatCSV)
	if err != nil {
		t.Fatalf("Parse written csv: %v", err)
	}
	if !reflect.DeepEqual(back.Rows, tbl.Rows) {
		t.Fatalf("reparsed rows = %q, want %q", back.Rows, tbl.Rows)
	}
}

func TestXLSXWriteThenParse(t *testing.T) {
	tbl := &table.Table{
		Headers: []string{"sku", "title", "price"},
		Rows: [][]string{
			{"A1", "Red cotton shirt", "19.99"},
			{"A2", "", "5"},
		},
	}
	var buf bytes.Buffer
	if err := table.Write(&buf, tbl, table.FormatXLSX); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	got, err := table.Parse(buf.Bytes(), table.FormatXLSX)
	if err != nil {
		t.Fatalf("Parse xlsx: %v", err)
	}
	if !reflect.DeepEqual(got.Headers, tbl.Headers) {
		t.Fatalf("headers = %q", got.Headers)
	}
	if !reflect.DeepEqual(got.Rows, tbl.Rows) {
		t.Fatalf("rows = %q, want %q", got.Rows, tbl.Rows)
	}
}

func TestParseXLSXRejectsGarbage(t *testing.T) {
	_, err := table.Parse([]byte("not a zip"), table.FormatXLSX)
	if !errors.Is(err, table.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mimeType string
		want     table.Format
		wantErr  bool
	}{
		{"csv extension", "catalog.CSV", "", table.FormatCSV, false},
		{"txt extension", "catalog.txt", "", table.FormatCSV, false},
		{"xlsx extension", "catalog.xlsx", "", table.FormatXLSX, false},
		{"csv mime", "upload", "text/csv; charset=utf-8", table.FormatCSV, false},
		{"xlsx mime", "upload", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", table.FormatXLSX, false},
		{"unknown", "catalog.pdf", "application/pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.DetectFormat(tt.fileName, tt.mimeType)
			if tt.wantErr {
				if !errors.Is(err, table.ErrUnsupportedFormat) {
					t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectFormat: %v", err)
			}
			if got != tt.want {
				t.Fatalf("DetectFormat = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	tbl := &table.Table{Headers: []string{"a"}, Rows: [][]string{{"x"}}}
	clone := tbl.Clone()
	clone.Rows[0][0] = "y"
	clone.Headers[0] = "b"
	if tbl.Rows[0][0] != "x" || tbl.Headers[0] != "a" {
		t.Fatal("Clone shares storage with the original")
	}
}

func TestColumnLookup(t *testing.T) {
	tbl := &table.Table{Headers: []string{"sku", "title"}}
	if got := tbl.Column("title"); got != 1 {
		t.Fatalf("Column(title) = %d, want 1", got)
	}
	if got := tbl.Column("Title"); got != -1 {
		t.Fatalf("Column(Title) = %d, want -1", got)
	}
}

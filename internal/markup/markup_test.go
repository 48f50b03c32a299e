package markup

import (
	"reflect"
	"testing"
)

func TestSplitReconstructsInput(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"<b>Bold</b> and <i>italic</i>",
		`<a href="x>y">link</a>`,
		`<span title='a > b'>hi</span>`,
		`<p data-x=a\>b>esc</p>`,
		"5 < 6 and 7 > 3",
		"unterminated <b text",
		"  <br/>  ",
		"<<b>>",
		"नया <b>कुर्ता</b>",
	}
	for _, in := range inputs {
		if got := Join(Split(in)); got != in {
			t.Errorf("Join(Split(%q)) = %q", in, got)
		}
	}
}

func TestSplitSegments(t *testing.T) {
	got := Split("<b>Hello</b> world")
	want := []Segment{
		{Kind: KindTag, Content: "<b>", Offset: 0},
		{Kind: KindText, Content: "Hello", Offset: 3},
		{Kind: KindTag, Content: "</b>", Offset: 8},
		{Kind: KindText, Content: " world", Offset: 12},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Split = %+v\nwant %+v", got, want)
	}
}

func TestSplitQuotedAndEscapedClosers(t *testing.T) {
	got := Split(`<a title="1 > 0">x</a>`)
	if len(got) != 3 || got[0].Content != `<a title="1 > 0">` {
		t.Fatalf("quoted > should not close tag: %+v", got)
	}

	got = Split(`<a x=\>>y`)
	if len(got) != 2 || got[0].Content != `<a x=\>>` || got[1].Content != "y" {
		t.Fatalf("escaped > should not close tag: %+v", got)
	}
}

func TestSplitUnterminatedTagIsText(t *testing.T) {
	got := Split("price < 10 dollars")
	if len(got) != 1 || got[0].Kind != KindText {
		t.Fatalf("expected single text segment, got %+v", got)
	}
}

func TestTranslatableAndHasText(t *testing.T) {
	segs := Split("<br/>   <hr>")
	if HasText(segs) {
		t.Fatalf("whitespace between tags should not be translatable: %+v", segs)
	}
	if len(segs) != 3 || segs[1].Kind != KindText {
		t.Fatalf("whitespace run should be kept as text: %+v", segs)
	}
	if !HasText(Split("<b>Sale</b>")) {
		t.Fatal("expected translatable text")
	}
}

func TestSplitSpace(t *testing.T) {
	tests := []struct {
		in                string
		lead, core, trail string
	}{
		{"  hello world \n", "  ", "hello world", " \n"},
		{"hello", "", "hello", ""},
		{"   ", "   ", "", ""},
		{" नमस्ते ", " ", "नमस्ते", " "},
	}
	for _, tt := range tests {
		lead, core, trail := SplitSpace(tt.in)
		if lead != tt.lead || core != tt.core || trail != tt.trail {
			t.Errorf("SplitSpace(%q) = (%q, %q, %q), want (%q, %q, %q)", tt.in, lead, core, trail, tt.lead, tt.core, tt.trail)
		}
		if lead+core+trail != tt.in {
			t.Errorf("SplitSpace(%q) lost content", tt.in)
		}
	}
}

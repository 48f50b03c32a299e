package language

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hi", "hi"},
		{"HI", "hi"},
		{" mr ", "mr"},
		{"hin", "hi"},
		{"eng", "en"},
		{"fre", "fr"},
		{"ger", "de"},
		{"hindi", "hi"},
		{"Tamil", "ta"},
		{"pt-br", "pt-BR"},
		{"pt_BR", "pt-BR"},
		{"zh-Hant", "zh-Hant"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if err != nil {
				t.Fatalf("Normalize(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "  ", "klingonese", "12", "und"} {
		if _, err := Normalize(input); !errors.Is(err, ErrInvalid) {
			t.Errorf("Normalize(%q) error = %v, want ErrInvalid", input, err)
		}
	}
}

func TestParseList(t *testing.T) {
	got, err := ParseList("hi, mr", "HI", "marathi,ta")
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	want := []string{"hi", "mr", "ta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseList = %v, want %v", got, want)
	}

	if _, err := ParseList(" , "); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for empty list, got %v", err)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"hi", "Hindi"},
		{"mr", "Marathi"},
		{"", "Unknown"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.code); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

package language

import (
	"errors"
	"fmt"
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrInvalid is returned for input that is not a usable language tag.
var ErrInvalid = errors.New("invalid language")

type entry struct {
	code2 string   // ISO 639-1
	alt3  string   // ISO 639-2/B code that BCP 47 parsing does not accept
	words []string // English names accepted on the command line
}

var languages = []entry{
	{"en", "", []string{"english"}},
	{"es", "", []string{"spanish"}},
	{"fr", "fre", []string{"french"}},
	{"de", "ger", []string{"german"}},
	{"it", "", []string{"italian"}},
	{"pt", "", []string{"portuguese"}},
	{"ja", "", []string{"japanese"}},
	{"ko", "", []string{"korean"}},
	{"zh", "chi", []string{"chinese"}},
	{"ru", "", []string{"russian"}},
	{"ar", "", []string{"arabic"}},
	{"nl", "dut", []string{"dutch"}},
	{"pl", "", []string{"polish"}},
	{"hi", "", []string{"hindi"}},
	{"mr", "", []string{"marathi"}},
	{"bn", "", []string{"bengali", "bangla"}},
	{"ta", "", []string{"tamil"}},
	{"te", "", []string{"telugu"}},
	{"gu", "", []string{"gujarati"}},
	{"kn", "", []string{"kannada"}},
	{"ml", "", []string{"malayalam"}},
	{"pa", "", []string{"punjabi"}},
	{"ur", "", []string{"urdu"}},
}

var aliases map[string]string

func init() {
	aliases = make(map[string]string, len(languages)*2)
	for _, e := range languages {
		if e.alt3 != "" {
			aliases[e.alt3] = e.code2
		}
		for _, w := range e.words {
			aliases[w] = e.code2
		}
	}
}

// Normalize canonicalizes a language code, ISO 639-2 code, or English name to
// a BCP 47 tag such as "hi" or "pt-BR".
func Normalize(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalid)
	}
	if mapped, ok := aliases[strings.ToLower(trimmed)]; ok {
		return mapped, nil
	}
	tag, err := xlanguage.Parse(strings.ReplaceAll(trimmed, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalid, code)
	}
	if base, _ := tag.Base(); base.String() == "und" {
		return "", fmt.Errorf("%w: %q", ErrInvalid, code)
	}
	return tag.String(), nil
}

// ParseList splits a comma-separated list, normalizes each entry and drops
// duplicates while keeping first-seen order.
func ParseList(values ...string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			code, err := Normalize(part)
			if err != nil {
				return nil, err
			}
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			out = append(out, code)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no target languages", ErrInvalid)
	}
	return out, nil
}

// DisplayName returns the English name for a language code, or the
// uppercased code when the name is unknown.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	tag, err := xlanguage.Parse(trimmed)
	if err == nil {
		if name := display.English.Tags().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(trimmed)
}

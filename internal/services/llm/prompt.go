package llm

import (
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	xlanguage "golang.org/x/text/language"

	"sheetlingo/internal/language"
)

// DefaultTone is used when a job does not name one.
const DefaultTone = "neutral"

var tonePresets = map[string]string{
	"neutral":    "Use a neutral, natural register that reads as if written by a native speaker.",
	"formal":     "Use a formal, polite register suited to official product documentation.",
	"casual":     "Use a relaxed, conversational register as a friendly shop assistant would.",
	"marketing":  "Write appealing e-commerce copy that highlights benefits while staying faithful to the source.",
	"persuasive": "Write persuasive copy that encourages purchase without adding claims absent from the source.",
	"technical":  "Use precise technical vocabulary and keep units, model numbers and specifications exact.",
}

// Tones returns the preset tone names in sorted order.
func Tones() []string {
	names := make([]string, 0, len(tonePresets))
	for name := range tonePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsPresetTone reports whether tone names a built-in preset.
func IsPresetTone(tone string) bool {
	_, ok := tonePresets[strings.ToLower(strings.TrimSpace(tone))]
	return ok
}

// ToneInstruction returns the style line for tone. Preset names map to their
// canned instruction; any other non-empty value is passed through verbatim as
// a custom style request.
func ToneInstruction(tone string) string {
	trimmed := strings.TrimSpace(tone)
	if trimmed == "" {
		trimmed = DefaultTone
	}
	if preset, ok := tonePresets[strings.ToLower(trimmed)]; ok {
		return preset
	}
	return "Style request from the customer: " + trimmed
}

// ToneLabel renders tone for display: presets are title-cased and custom
// instructions are quoted.
func ToneLabel(tone string) string {
	trimmed := strings.TrimSpace(tone)
	if trimmed == "" {
		trimmed = DefaultTone
	}
	if IsPresetTone(trimmed) {
		return cases.Title(xlanguage.English).String(strings.ToLower(trimmed))
	}
	return "custom: \"" + trimmed + "\""
}

// TranslationSystemPrompt builds the system message for one translation call.
func TranslationSystemPrompt(source, target, tone string) string {
	var b strings.Builder
	b.WriteString("You are a professional e-commerce localization engine. ")
	b.WriteString("Translate the \"text\" field of the user's JSON message")
	if strings.TrimSpace(source) != "" {
		b.WriteString(" from ")
		b.WriteString(languageLabel(source))
	}
	b.WriteString(" into ")
	b.WriteString(languageLabel(target))
	b.WriteString(".\n")
	b.WriteString(ToneInstruction(tone))
	b.WriteString("\nRules:\n")
	b.WriteString("- Copy every token of the form __BRAND_<n>__ exactly once, unchanged.\n")
	b.WriteString("- Keep numbers, units, SKUs, URLs and punctuation that does not need translating.\n")
	b.WriteString("- Do not add explanations, quotes or notes.\n")
	b.WriteString("Respond with JSON only: {\"translation\": \"<translated text>\"}")
	return b.String()
}

func languageLabel(code string) string {
	code = strings.TrimSpace(code)
	return language.DisplayName(code) + " (" + code + ")"
}

func translationUserPrompt(text, source, target string) (string, error) {
	payload := struct {
		SourceLanguage string `json:"source_language,omitempty"`
		TargetLanguage string `json:"target_language"`
		Text           string `json:"text"`
	}{
		SourceLanguage: strings.TrimSpace(source),
		TargetLanguage: target,
		Text:           text,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

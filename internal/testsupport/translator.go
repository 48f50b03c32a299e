package testsupport

import (
	"context"
	"sync"
)

// Call records one translation request.
type Call struct {
	Text   string
	Source string
	Target string
	Tone   string
}

// ScriptedTranslator answers from a script keyed by target and text, and
// falls back to prefixing the text with the target code.
type ScriptedTranslator struct {
	mu      sync.Mutex
	answers map[string]string
	errs    map[string]error
	calls   []Call
}

// NewScriptedTranslator returns an empty script.
func NewScriptedTranslator() *ScriptedTranslator {
	return &ScriptedTranslator{answers: map[string]string{}, errs: map[string]error{}}
}

// Answer scripts the translation of text into target.
func (s *ScriptedTranslator) Answer(target, text, translation string) *ScriptedTranslator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[target+"\x00"+text] = translation
	return s
}

// Fail makes every translation of text return err.
func (s *ScriptedTranslator) Fail(text string, err error) *ScriptedTranslator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[text] = err
	return s
}

func (s *ScriptedTranslator) Translate(_ context.Context, text, source, target, tone string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Text: text, Source: source, Target: target, Tone: tone})
	if err, ok := s.errs[text]; ok {
		return "", err
	}
	if answer, ok := s.answers[target+"\x00"+text]; ok {
		return answer, nil
	}
	return "[" + target + "] " + text, nil
}

// Calls returns a copy of the recorded requests.
func (s *ScriptedTranslator) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

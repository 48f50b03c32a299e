package pipeline

import "context"

// Translator renders text in target using a tone directive.
type Translator interface {
	Translate(ctx context.Context, text, source, target, tone string) (string, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ctx context.Context, text, source, target, tone string) (string, error)

func (f TranslatorFunc) Translate(ctx context.Context, text, source, target, tone string) (string, error) {
	return f(ctx, text, source, target, tone)
}

// CreditLedger meters words per user.
type CreditLedger interface {
	HasSufficientCredits(ctx context.Context, userID string, estimatedWords int) (bool, error)
	DebitCredits(ctx context.Context, userID string, words int) error
}

// GlossarySource supplies a user's protected terms in order.
type GlossarySource interface {
	Terms(ctx context.Context, userID string) ([]string, error)
}

// UnlimitedCredits approves every job and ignores debits.
type UnlimitedCredits struct{}

func (UnlimitedCredits) HasSufficientCredits(context.Context, string, int) (bool, error) {
	return true, nil
}

func (UnlimitedCredits) DebitCredits(context.Context, string, int) error { return nil }

// StaticGlossary returns the same terms for every user.
type StaticGlossary []string

func (g StaticGlossary) Terms(context.Context, string) ([]string, error) {
	return append([]string(nil), g...), nil
}

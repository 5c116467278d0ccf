// Package translator defines the text translation contract. The production
// implementation lives in the m2m subpackage; tests substitute fakes.
package translator

import (
	"context"
	"errors"
	"fmt"

	"voicetranslate/internal/pkg/voicetranslate/language"
)

// Translator translates text between supported languages. Implementations
// load their model lazily on first use and keep it resident for the process
// lifetime.
type Translator interface {
	// Translate returns text rendered in the dst language. Identical source
	// and target codes return the input unchanged.
	Translate(ctx context.Context, text, src, dst string) (string, error)
	// BatchTranslate translates texts one by one, preserving order.
	BatchTranslate(ctx context.Context, texts []string, src, dst string) ([]string, error)
	// Languages lists the supported languages.
	Languages() []language.Language
}

// ErrTextTooLong is returned when the input tokenizes past the configured
// sequence limit. Truncating or chunking is the caller's responsibility.
var ErrTextTooLong = errors.New("translator: input exceeds maximum sequence length")

// UnsupportedLanguageError reports a language code outside the model's
// vocabulary.
type UnsupportedLanguageError struct {
	Code string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language %q", e.Code)
}

// Resolve maps a pair of codes to registry languages, reporting which code
// failed. Shared by implementations.
func Resolve(src, dst string) (language.Language, language.Language, error) {
	from, ok := language.Lookup(src)
	if !ok {
		return language.Language{}, language.Language{}, &UnsupportedLanguageError{Code: src}
	}
	to, ok := language.Lookup(dst)
	if !ok {
		return language.Language{}, language.Language{}, &UnsupportedLanguageError{Code: dst}
	}
	return from, to, nil
}

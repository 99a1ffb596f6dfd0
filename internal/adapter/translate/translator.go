package translate

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
)

// Completer produces a translation for text.
type Completer interface {
	Complete(ctx context.Context, text string) (string, error)
}

// Translator returns Chinese text unchanged, and the source text when the model fails.
type Translator struct {
	completer Completer
	logger    *slog.Logger
}

// NewTranslator wraps a completer.
func NewTranslator(completer Completer, logger *slog.Logger) *Translator {
	return &Translator{completer: completer, logger: logger}
}

// Translate never fails; errors are logged and the input is returned.
func (t *Translator) Translate(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" || IsChinese(text) {
		return text
	}

	translated, err := t.completer.Complete(ctx, text)
	if err != nil {
		t.logger.Warn("Translation failed, keeping source text",
			slog.Int("chars", len([]rune(text))),
			slog.Any("error", err),
		)
		return text
	}
	return translated
}

// IsChinese reports whether text is predominantly Chinese.
func IsChinese(text string) bool {
	info := whatlanggo.Detect(text)
	if info.Lang == whatlanggo.Cmn {
		return true
	}
	return info.Script == unicode.Han
}

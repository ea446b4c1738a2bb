package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/lumenworks/askdoc/internal/models"
)

// extractPlain returns content as a single unstructured unit, validating it is
// valid UTF-8. Invalid sequences are replaced with the replacement character.
func extractPlain(content []byte) ([]Unit, error) {
	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	return []Unit{{Locator: models.NoLocator, Text: text}}, nil
}

// cutValidUTF8 truncates s to at most n bytes without splitting a rune.
func cutValidUTF8(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

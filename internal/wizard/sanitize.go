package wizard

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// sanitizeText strips markup from user-entered text and keeps the literal
// characters, so "5 < 10" survives but "<b>x</b>" becomes "x". Entity text
// the user typed, such as "&lt;b&gt;", is kept verbatim: ampersands are
// escaped before parsing so the tokenizer cannot decode them.
func sanitizeText(raw string) string {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return html.UnescapeString(textPolicy.Sanitize(strings.ReplaceAll(raw, "&", "&amp;")))
}

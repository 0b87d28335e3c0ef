package ai

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	renderOnce   sync.Once
	markdown     goldmark.Markdown
	answerPolicy *bluemonday.Policy
)

// RenderAnswerHTML converts a markdown answer to sanitized HTML.
func RenderAnswerHTML(text string) (string, error) {
	renderOnce.Do(func() {
		markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
		answerPolicy = bluemonday.UGCPolicy()
	})
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return answerPolicy.Sanitize(buf.String()), nil
}

package annotate

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	policy   = bluemonday.UGCPolicy()
)

// RenderMarkdown converts model output written in markdown into sanitized HTML.
// If conversion fails the text is returned HTML-escaped inside a paragraph.
func RenderMarkdown(src string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "<p>" + html.EscapeString(src) + "</p>"
	}
	return string(policy.SanitizeBytes(buf.Bytes()))
}

// Sanitize strips unsafe markup from stored text before it is shown as HTML.
func Sanitize(s string) string {
	return policy.Sanitize(s)
}

// ToHTML returns a stored annotation as sanitized HTML. The web UI stores
// rendered HTML and the CLI stores markdown; text that is already an HTML
// fragment is only sanitized.
func ToHTML(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "<") && strings.HasSuffix(t, ">") {
		return Sanitize(s)
	}
	return RenderMarkdown(s)
}

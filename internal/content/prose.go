package content

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// prose renders section text: blank lines split paragraphs, single newlines
// become <br>. Raw HTML in the source is not passed through.
var prose = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Prose converts authored week text to HTML
func Prose(text string) template.HTML {
	if text == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := prose.Convert([]byte(text), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(text) + "</p>")
	}
	return template.HTML(buf.String())
}

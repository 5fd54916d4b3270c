package app

import (
	"embed"
	"html/template"

	"github.com/klabast/wb-services/newsletter/internal/content"
	"github.com/klabast/wb-services/newsletter/internal/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageData is what every template receives
type pageData struct {
	Lang       i18n.Lang
	Title      string
	SchoolName string
	// Theme is empty while the reader follows the system preference
	Theme string
	Dark  bool

	View  *content.View
	Next  string
	Error string
}

func parseTemplates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

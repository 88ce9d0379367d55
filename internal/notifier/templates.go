package notifier

import (
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer renders named message templates against a data value. HTML
// templates get contextual escaping, plain-text ones do not.
type Renderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// NewRenderer parses the embedded template set.
func NewRenderer() (*Renderer, error) {
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	return &Renderer{html: html, text: text}, nil
}

// RenderHTML renders templates/<name>.html.tmpl.
func (r *Renderer) RenderHTML(name string, data any) (string, error) {
	var b strings.Builder
	if err := r.html.ExecuteTemplate(&b, name+".html.tmpl", data); err != nil {
		return "", fmt.Errorf("render %s.html.tmpl: %w", name, err)
	}
	return b.String(), nil
}

// RenderText renders templates/<name>.txt.tmpl.
func (r *Renderer) RenderText(name string, data any) (string, error) {
	var b strings.Builder
	if err := r.text.ExecuteTemplate(&b, name+".txt.tmpl", data); err != nil {
		return "", fmt.Errorf("render %s.txt.tmpl: %w", name, err)
	}
	return b.String(), nil
}

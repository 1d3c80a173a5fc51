package web

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/teemow/schedcli/internal/calendar"
	"github.com/teemow/schedcli/internal/controller"
	"github.com/teemow/schedcli/internal/render"
)

//go:embed templates/*.html
var templateFS embed.FS

// mdRenderer leaves WithUnsafe unset, so raw HTML in a description is
// escaped.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// pageData is everything index.html needs.
type pageData struct {
	LoggedIn  bool
	State     controller.State
	Grid      calendar.Grid
	Flash     *Flash
	CSRFField template.HTML
}

func parseTemplates(loc *time.Location) (*template.Template, error) {
	funcs := template.FuncMap{
		"markdown": renderMarkdown,
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return render.NotAvailable
			}
			return calendar.FormatDateTime(t, loc)
		},
		"orNA": func(s string) string {
			if s == "" {
				return render.NotAvailable
			}
			return s
		},
		"hourTop": func(i int) int { return i * 60 },
	}
	return template.New("index.html").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

func renderMarkdown(md string) template.HTML {
	if md == "" {
		return template.HTML(render.NotAvailable)
	}
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

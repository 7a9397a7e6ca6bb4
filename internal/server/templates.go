package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/controlnotes/internal/annotate"
	"github.com/thebtf/controlnotes/pkg/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page templates.
const (
	pageIndex   = "index.html"
	pageResult  = "result.html"
	pageHistory = "history.html"
)

var templateFuncs = template.FuncMap{
	// safe marks stored or generated HTML as trusted after sanitizing it.
	"safe": func(s string) template.HTML {
		return template.HTML(annotate.Sanitize(s)) // #nosec G203 -- sanitized above
	},
	// annotation renders a stored annotation, markdown or HTML.
	"annotation": func(s string) template.HTML {
		return template.HTML(annotate.ToHTML(s)) // #nosec G203 -- sanitized by ToHTML
	},
	"weakness": func(e *models.HistoryEntry) string {
		w, _ := e.Weakness()
		return w
	},
}

var pages = parsePages(pageIndex, pageResult, pageHistory)

func parsePages(names ...string) map[string]*template.Template {
	m := make(map[string]*template.Template, len(names))
	for _, name := range names {
		m[name] = template.Must(template.New(name).Funcs(templateFuncs).
			ParseFS(templateFS, "templates/base.html", "templates/"+name))
	}
	return m
}

type indexPage struct {
	Title    string
	Controls []string
	Question string
	Response string
	Error    string
}

type resultPage struct {
	Title       string
	Result      *models.LookupResult
	Error       string
	Suggestions []string
}

type historyPage struct {
	Title   string
	Entries []*models.HistoryEntry
}

// render executes a page into a buffer first so a template error never
// leaves a half-written response.
func render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages[name].ExecuteTemplate(&buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

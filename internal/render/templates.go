package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
)

//go:embed templates
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

// Assets holds the stylesheet and script, rooted so that "css/style.css"
// is served at /assets/css/style.css.
func Assets() fs.FS {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

// Templates renders page view models with the embedded layout.
type Templates struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"lower": strings.ToLower,
	"inc":   func(i int) int { return i + 1 },
	"dec":   func(i int) int { return i - 1 },
	"fieldArgs": func(f FormView, name, label, typ string) formField {
		return formField{
			Name:    name,
			Label:   label,
			Type:    typ,
			Value:   f.Values[name],
			Invalid: f.Invalid[name],
		}
	},
}

type formField struct {
	Name    string
	Label   string
	Type    string
	Value   string
	Invalid bool
}

func NewTemplates() (*Templates, error) {
	files, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("render: list pages: %w", err)
	}

	t := &Templates{pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/partials.html",
			file,
		)
		if err != nil {
			return nil, fmt.Errorf("render: parse %s: %w", name, err)
		}
		t.pages[name] = tmpl
	}
	return t, nil
}

// Render writes page through the shared layout.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("render: unknown page %q", page)
	}
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("render: execute %s: %w", page, err)
	}
	return nil
}

package mail

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	htmltmpl "html/template"
	"html"
	"io/fs"
	"path"
	"regexp"
	"strings"
	texttmpl "text/template"
)

//go:embed templates/*
var templateFS embed.FS

// ErrTemplateNotFound is returned when neither a text nor an HTML template exists for a name.
var ErrTemplateNotFound = errors.New("mail template not found")

const (
	textExt  = ".txt"
	htmlExt  = ".gohtml"
	baseName = "_base"
)

var (
	tagPattern        = regexp.MustCompile(`(?s)<[^>]*>`)
	blankLinesPattern = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// Content is a rendered email body pair.
type Content struct {
	Text string
	HTML string
}

// Renderer renders named templates. A template "x" is made of x.txt and/or
// x.gohtml, each wrapped by the matching _base file when present.
type Renderer struct {
	text map[string]*texttmpl.Template
	html map[string]*htmltmpl.Template
}

// NewRenderer parses the embedded email templates.
func NewRenderer() (*Renderer, error) {
	return NewRendererFS(templateFS, "templates")
}

// NewRendererFS parses templates from dir inside fsys.
func NewRendererFS(fsys fs.FS, dir string) (*Renderer, error) {
	r := &Renderer{
		text: make(map[string]*texttmpl.Template),
		html: make(map[string]*htmltmpl.Template),
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read mail templates: %w", err)
	}
	textBase := path.Join(dir, baseName+textExt)
	htmlBase := path.Join(dir, baseName+htmlExt)
	hasTextBase := exists(fsys, textBase)
	hasHTMLBase := exists(fsys, htmlBase)

	for _, entry := range entries {
		fname := entry.Name()
		if entry.IsDir() || strings.HasPrefix(fname, "_") {
			continue
		}
		ext := path.Ext(fname)
		name := strings.TrimSuffix(fname, ext)
		fp := path.Join(dir, fname)
		switch ext {
		case textExt:
			files := []string{fp}
			if hasTextBase {
				files = []string{textBase, fp}
			}
			tmpl, err := texttmpl.ParseFS(fsys, files...)
			if err != nil {
				return nil, fmt.Errorf("parse mail template %s: %w", fname, err)
			}
			r.text[name] = tmpl.Option("missingkey=error")
		case htmlExt:
			files := []string{fp}
			if hasHTMLBase {
				files = []string{htmlBase, fp}
			}
			tmpl, err := htmltmpl.ParseFS(fsys, files...)
			if err != nil {
				return nil, fmt.Errorf("parse mail template %s: %w", fname, err)
			}
			r.html[name] = tmpl.Option("missingkey=error")
		}
	}
	return r, nil
}

// Render executes the named template pair. When only HTML exists the text
// body is derived by stripping tags.
func (r *Renderer) Render(name string, data interface{}) (Content, error) {
	textTmpl, hasText := r.text[name]
	htmlTmpl, hasHTML := r.html[name]
	if !hasText && !hasHTML {
		return Content{}, fmt.Errorf("%s: %w", name, ErrTemplateNotFound)
	}

	var out Content
	if hasHTML {
		var buf bytes.Buffer
		if err := htmlTmpl.Execute(&buf, data); err != nil {
			return Content{}, fmt.Errorf("render %s%s: %w", name, htmlExt, err)
		}
		out.HTML = buf.String()
	}
	if hasText {
		var buf bytes.Buffer
		if err := textTmpl.Execute(&buf, data); err != nil {
			return Content{}, fmt.Errorf("render %s%s: %w", name, textExt, err)
		}
		out.Text = strings.TrimSpace(buf.String()) + "\n"
	} else {
		out.Text = StripTags(out.HTML)
	}
	return out, nil
}

// StripTags converts an HTML body into readable plain text.
func StripTags(body string) string {
	text := tagPattern.ReplaceAllString(body, "")
	text = html.UnescapeString(text)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankLinesPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text) + "\n"
}

func exists(fsys fs.FS, name string) bool {
	_, err := fs.Stat(fsys, name)
	return err == nil
}

// Package render provides the sandboxed string->string template engine
// used for workflow env values and hook stdin payloads. It is built on
// text/template rather than a third-party engine — none appears anywhere
// in the retrieved example corpus — with a restricted FuncMap and strict
// undefined-variable behavior standing in for a purpose-built sandbox.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// ErrUndefined is wrapped into the returned error whenever a template
// references a variable that is not present in its context.
var ErrUndefined = errors.New("undefined reference")

// Renderer renders templates against a workflow root, exposing the
// read_file/include_file helpers (aliases of each other) that resolve
// relative paths against root.
type Renderer struct {
	root string
}

// New returns a Renderer rooted at root.
func New(root string) *Renderer {
	return &Renderer{root: root}
}

// Render compiles tmpl and executes it against vars. Any key referenced
// by the template that is absent from vars fails the render, matching
// the source's StrictUndefined behavior.
func (r *Renderer) Render(tmpl string, vars map[string]string) (string, error) {
	funcs := template.FuncMap{
		"read_file":    r.readFile,
		"include_file": r.readFile,
	}

	t, err := template.New("dirorch").
		Option("missingkey=error").
		Funcs(funcs).
		Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("template parse error: %w", err)
	}

	context := make(map[string]string, len(vars))
	for k, v := range vars {
		context[k] = v
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, context); err != nil {
		if isUndefinedErr(err) {
			return "", fmt.Errorf("%w: %v", ErrUndefined, err)
		}
		return "", fmt.Errorf("template render error: %w", err)
	}
	return buf.String(), nil
}

func (r *Renderer) readFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("read_file/include_file path must be a non-empty string")
	}
	p := path
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.root, p)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("unable to read file %q: %w", p, err)
	}
	return string(data), nil
}

// isUndefinedErr reports whether a text/template execution error is the
// missingkey=error "map has no entry for key" class of failure.
func isUndefinedErr(err error) bool {
	return strings.Contains(err.Error(), "map has no entry for key")
}

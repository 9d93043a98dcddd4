package gcode

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
)

// Template names understood by the Translator.
const (
	TemplateTilt         = "tilt"
	TemplateBuild        = "build"
	TemplateShutterOpen  = "shutterOpen"
	TemplateShutterClose = "shutterClose"
	TemplateHome         = "home"
	TemplateStart        = "start"
	TemplateEnd          = "end"
)

// ErrUnknownTemplate is returned when rendering a template that was never
// registered.
var ErrUnknownTemplate = errors.New("unknown gcode template")

// Context carries the run-time values substituted into templates, e.g.
// "G91\nG1 Z{{.LayerHeight}}\nG90".
type Context struct {
	LayerHeight      float64 // mm
	LayerSteps       int
	TiltAngle        float64 // degrees
	TiltSteps        int
	ShutterOpen      int
	ShutterClosed    int
	Slice            int
	Slices           int
	BuildMinimumMove int
}

// Translator renders logical actions into literal GCode.
type Translator struct {
	templates map[string]*template.Template
}

// NewTranslator parses every template up front. Empty sources are allowed
// and render to nothing.
func NewTranslator(sources map[string]string) (*Translator, error) {
	t := &Translator{templates: make(map[string]*template.Template, len(sources))}
	for name, src := range sources {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		t.templates[name] = tmpl
	}
	return t, nil
}

// Render executes the named template and returns the validated lines joined
// by newlines.
func (t *Translator) Render(name string, ctx Context) (string, error) {
	lines, err := t.Lines(name, ctx)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

// Lines is Render split into individual non-blank lines. Each line must parse
// as GCode.
func (t *Translator) Lines(name string, ctx Context) ([]string, error) {
	tmpl, ok := t.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, ctx); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}

	var lines []string
	for _, raw := range strings.Split(b.String(), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if _, err := ParseLine(line); err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Has reports whether a template is registered under name.
func (t *Translator) Has(name string) bool {
	_, ok := t.templates[name]
	return ok
}

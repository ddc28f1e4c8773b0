// Package scripts renders shell scripts from templates with the build
// configuration as context.
//
// Templates use text/template syntax plus the sprig function library. The
// template data is a Data value, so `{{ .Config.InitScript }}` yields the
// configured init script path and `{{ range .Config.BindMounts }}` walks the
// bind mounts in order. A failing accessor (a missing key) aborts rendering.
package scripts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/onkernel/debian-builder/lib/buildconfig"
	"github.com/onkernel/debian-builder/lib/logger"
	"github.com/onkernel/debian-builder/lib/sources"
)

// DefaultMode is the permission of generated scripts.
const DefaultMode fs.FileMode = 0755

// Data is the template context.
type Data struct {
	Config *buildconfig.Config
}

// Generator renders templates referenced by source identifiers.
type Generator interface {
	// Render loads the template ref and executes it.
	Render(ref string) (string, error)
	// Write renders ref into the file at path and sets its mode.
	Write(ctx context.Context, path, ref string, mode fs.FileMode) error
}

var errStdinTemplate = errors.New("templates cannot be read from standard input")

type generator struct {
	data Data
}

// NewGenerator returns a Generator rendering with cfg.
func NewGenerator(cfg *buildconfig.Config) Generator {
	return &generator{data: Data{Config: cfg}}
}

func (g *generator) Render(ref string) (string, error) {
	if ref == sources.Stdin {
		return "", fmt.Errorf("load template: %w", errStdinTemplate)
	}
	text, err := sources.Read(ref)
	if err != nil {
		return "", fmt.Errorf("load template %s: %w", ref, err)
	}

	tmpl, err := template.New(ref).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(string(text))
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", ref, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, g.data); err != nil {
		return "", fmt.Errorf("render template %s: %w", ref, err)
	}
	return buf.String(), nil
}

func (g *generator) Write(ctx context.Context, path, ref string, mode fs.FileMode) error {
	log := logger.FromContext(ctx)

	out, err := g.Render(ref)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create script dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(out), mode); err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	// WriteFile honours the umask and leaves existing modes alone.
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("chmod script: %w", err)
	}

	log.DebugContext(ctx, "generated script", "path", path, "template", ref, "bytes", len(out))
	return nil
}

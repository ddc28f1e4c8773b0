// Package sources resolves source identifiers to their textual content.
//
// A source identifier is one of:
//   - "builtin:<name>" for a resource packaged with the binary (see data/)
//   - "-" for standard input
//   - anything else, interpreted as a filesystem path
package sources

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

const (
	// BuiltinPrefix marks a packaged resource.
	BuiltinPrefix = "builtin:"
	// Stdin is the identifier for standard input.
	Stdin = "-"

	// DefaultConfig is the built-in default build configuration.
	DefaultConfig = BuiltinPrefix + "data/default-config"
)

//go:embed data
var builtin embed.FS

// ErrNotFound is returned when a built-in resource does not exist.
// It matches fs.ErrNotExist so callers can treat it like a missing file.
var ErrNotFound = fmt.Errorf("builtin resource not found: %w", fs.ErrNotExist)

// Reader loads source identifiers.
type Reader struct {
	stdin io.Reader
}

// NewReader returns a Reader using in for the "-" identifier.
// A nil in falls back to os.Stdin.
func NewReader(in io.Reader) *Reader {
	if in == nil {
		in = os.Stdin
	}
	return &Reader{stdin: in}
}

// Read returns the content named by id.
func (r *Reader) Read(id string) ([]byte, error) {
	switch {
	case strings.HasPrefix(id, BuiltinPrefix):
		return ReadBuiltin(strings.TrimPrefix(id, BuiltinPrefix))
	case id == Stdin:
		data, err := io.ReadAll(r.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	default:
		data, err := os.ReadFile(id)
		if err != nil {
			return nil, err
		}
		return data, nil
	}
}

// Read loads id using the process standard input for "-".
func Read(id string) ([]byte, error) {
	return NewReader(nil).Read(id)
}

// ReadBuiltin returns the packaged resource with the given name,
// e.g. "data/default-config".
func ReadBuiltin(name string) ([]byte, error) {
	data, err := builtin.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s%s: %w", BuiltinPrefix, name, ErrNotFound)
		}
		return nil, fmt.Errorf("%s%s: %w", BuiltinPrefix, name, err)
	}
	return data, nil
}

// IsBuiltin reports whether id names a packaged resource.
func IsBuiltin(id string) bool {
	return strings.HasPrefix(id, BuiltinPrefix)
}

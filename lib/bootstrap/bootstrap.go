// Package bootstrap populates an image tree with a Debian root filesystem.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/onkernel/debian-builder/lib/command"
	"github.com/onkernel/debian-builder/lib/logger"
)

// Bootstrapper installs a root filesystem into a directory.
type Bootstrapper interface {
	Run(ctx context.Context, root, config string) error
}

// Multistrap bootstraps with multistrap(1).
type Multistrap struct {
	runner command.Runner
	// TempDir holds the scratch configuration file. Empty means os.TempDir().
	TempDir string
}

// NewMultistrap returns a Bootstrapper running multistrap through runner.
func NewMultistrap(runner command.Runner) *Multistrap {
	return &Multistrap{runner: runner}
}

// Run writes config to a scratch file and runs multistrap -d root -f file.
// The scratch file is removed afterwards.
func (m *Multistrap) Run(ctx context.Context, root, config string) error {
	log := logger.FromContext(ctx)

	f, err := os.CreateTemp(m.TempDir, "multistrap-*.conf")
	if err != nil {
		return fmt.Errorf("create multistrap config: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString(config); err != nil {
		f.Close()
		return fmt.Errorf("write multistrap config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write multistrap config: %w", err)
	}

	log.DebugContext(ctx, "running multistrap", "root", root, "config", f.Name())
	if err := m.runner.Run(ctx, "multistrap", "-d", root, "-f", f.Name()); err != nil {
		return fmt.Errorf("multistrap: %w", err)
	}
	return nil
}

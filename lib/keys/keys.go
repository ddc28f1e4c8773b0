// Package keys imports extra apt trust keys into an image tree.
package keys

import (
	"context"
	"fmt"
	"os"

	"github.com/onkernel/debian-builder/lib/command"
	"github.com/onkernel/debian-builder/lib/logger"
	"github.com/onkernel/debian-builder/lib/paths"
)

// Importer fetches keys and installs them where apt trusts them.
type Importer interface {
	Import(ctx context.Context, root, keyserver string, ids []string) error
}

// GPG imports keys with gpg(1) using a throwaway keyring.
type GPG struct {
	runner command.Runner
	// TempDir holds the scratch keyring. Empty means os.TempDir().
	TempDir string
}

// NewGPG returns an Importer running gpg through runner.
func NewGPG(runner command.Runner) *GPG {
	return &GPG{runner: runner}
}

// Import receives each key from keyserver into a scratch keyring and exports
// it to /etc/apt/trusted.gpg.d/<id>.gpg inside root. The trusted directory is
// created even when ids is empty.
func (g *GPG) Import(ctx context.Context, root, keyserver string, ids []string) error {
	log := logger.FromContext(ctx)
	chroot := paths.New(root)

	if err := os.MkdirAll(chroot.TrustedKeysDir(), 0755); err != nil {
		return fmt.Errorf("create trusted keys dir: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	// MkdirTemp creates the directory with mode 0700, which gpg requires.
	home, err := os.MkdirTemp(g.TempDir, "debian-builder-gnupg-")
	if err != nil {
		return fmt.Errorf("create gpg home: %w", err)
	}
	defer os.RemoveAll(home)

	for _, id := range ids {
		log.DebugContext(ctx, "importing key", "key", id, "keyserver", keyserver)

		if err := g.runner.Run(ctx, "gpg", "--homedir", home,
			"--keyserver", keyserver,
			"--recv-keys", id); err != nil {
			return fmt.Errorf("receive key %s: %w", id, err)
		}
		if err := g.runner.Run(ctx, "gpg", "--homedir", home,
			"--keyserver", keyserver,
			"--output", chroot.TrustedKey(id),
			"--export", id); err != nil {
			return fmt.Errorf("export key %s: %w", id, err)
		}
	}
	return nil
}

// Package paths provides path construction inside a mounted image tree.
package paths

import (
	"fmt"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// ChrootPath returns inner as seen from the host when the image tree is
// mounted at root. Leading separators of inner are ignored, so absolute and
// relative in-image paths give the same result.
func ChrootPath(root, inner string) string {
	return filepath.Join(root, strings.TrimLeft(inner, string(filepath.Separator)))
}

// Chroot provides typed path construction for a mounted image tree.
type Chroot struct {
	root string
}

// New creates a new Chroot for the tree mounted at root.
func New(root string) *Chroot {
	return &Chroot{root: root}
}

// Root returns the mount point.
func (c *Chroot) Root() string {
	return c.root
}

// Join returns the host path of an in-image path. Symlinks are not
// followed; see Resolve.
func (c *Chroot) Join(inner string) string {
	return ChrootPath(c.root, inner)
}

// TrustedKeysDir returns the directory apt reads extra trust keys from.
func (c *Chroot) TrustedKeysDir() string {
	return c.Join("/etc/apt/trusted.gpg.d")
}

// TrustedKey returns the path of the exported key file for a key ID.
func (c *Chroot) TrustedKey(id string) string {
	return filepath.Join(c.TrustedKeysDir(), id+".gpg")
}

// Resolve returns the host path of an in-image path, following symlinks as
// if root were "/". Symlinks created by the bootstrapper (e.g. /usr merge
// links) can therefore never point outside the image tree.
func (c *Chroot) Resolve(inner string) (string, error) {
	path, err := securejoin.SecureJoin(c.root, inner)
	if err != nil {
		return "", fmt.Errorf("resolve %s in %s: %w", inner, c.root, err)
	}
	return path, nil
}

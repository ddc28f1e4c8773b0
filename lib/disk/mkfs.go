package disk

import (
	"context"
	"fmt"

	"github.com/onkernel/debian-builder/lib/command"
)

// DefaultMkfsOptions forces mkfs to format a regular file.
var DefaultMkfsOptions = []string{"-F"}

// CreateFilesystem formats image with mkfs -t fsType. With no extraOpts,
// DefaultMkfsOptions are passed.
func CreateFilesystem(ctx context.Context, runner command.Runner, image, fsType string, extraOpts ...string) error {
	if fsType == "" {
		return fmt.Errorf("create filesystem: empty filesystem type")
	}
	if len(extraOpts) == 0 {
		extraOpts = DefaultMkfsOptions
	}

	argv := append([]string{"mkfs", "-t", fsType}, extraOpts...)
	argv = append(argv, image)
	if err := runner.Run(ctx, argv...); err != nil {
		return fmt.Errorf("mkfs.%s %s: %w", fsType, image, err)
	}
	return nil
}

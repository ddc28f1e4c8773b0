// Package mount loop-mounts disk images for the duration of a build.
package mount

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/onkernel/debian-builder/lib/command"
	"github.com/onkernel/debian-builder/lib/logger"
	"github.com/onkernel/debian-builder/lib/progress"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sys/unix"
)

// Manager mounts and unmounts images.
type Manager interface {
	// WithMount loop-mounts image on a fresh temporary directory and calls fn
	// with it. The image is unmounted and the directory removed when fn
	// returns, fails or panics.
	WithMount(ctx context.Context, image string, fn func(mountPoint string) error) error
	// Unmount flushes pending writes and unmounts path, retrying while the
	// mount is busy.
	Unmount(ctx context.Context, path string) error
}

type manager struct {
	runner   command.Runner
	progress progress.Reporter
	cfg      Config
	metrics  *Metrics
	sync     func()
	sleep    func(time.Duration)
}

// NewManager creates a mount manager running mount/umount through runner.
// Retries are announced on reporter. reporter and meter may be nil.
func NewManager(runner command.Runner, reporter progress.Reporter, cfg Config, meter metric.Meter) (Manager, error) {
	if reporter == nil {
		reporter = progress.Discard
	}
	m := &manager{
		runner:   runner,
		progress: reporter,
		cfg:      cfg.withDefaults(),
		sync:     unix.Sync,
		sleep:    time.Sleep,
	}
	if meter != nil {
		metrics, err := newMetrics(meter)
		if err != nil {
			return nil, fmt.Errorf("create mount metrics: %w", err)
		}
		m.metrics = metrics
	}
	return m, nil
}

// session is one live loop mount. If mounted is true the OS mount exists.
type session struct {
	image   string
	dir     string
	mounted bool
}

func (m *manager) WithMount(ctx context.Context, image string, fn func(mountPoint string) error) (err error) {
	log := logger.FromContext(ctx)

	dir, err := os.MkdirTemp(m.cfg.TempDir, "debian-builder-mnt-")
	if err != nil {
		return fmt.Errorf("create mount point: %w", err)
	}
	s := &session{image: image, dir: dir}

	defer func() {
		// No recover: a panic in fn propagates once the mount is released.
		if cleanupErr := m.release(ctx, s); cleanupErr != nil {
			err = errors.Join(err, cleanupErr)
		}
	}()

	log.DebugContext(ctx, "mounting image", "image", s.image, "mount_point", s.dir)
	if err := m.runner.Run(ctx, "mount", "-o", "loop", s.image, s.dir); err != nil {
		return fmt.Errorf("mount %s: %w", s.image, err)
	}
	s.mounted = true

	return fn(s.dir)
}

// release unmounts s if mounted and removes its directory. A directory that
// is still a mount point is left in place.
func (m *manager) release(ctx context.Context, s *session) error {
	if s.mounted {
		if err := m.Unmount(ctx, s.dir); err != nil {
			logger.FromContext(ctx).WarnContext(ctx, "leaving mount point in place", "path", s.dir, "image", s.image)
			return err
		}
		s.mounted = false
	}
	if err := os.Remove(s.dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove mount point: %w", err)
	}
	return nil
}

func (m *manager) Unmount(ctx context.Context, path string) error {
	log := logger.FromContext(ctx)

	// Flush dirty pages before the first umount.
	m.sync()

	var lastErr error
	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		// Runs even when ctx is cancelled.
		lastErr = m.runner.Run(ctx, "umount", path)
		m.recordUmountAttempt(ctx, lastErr == nil)
		if lastErr == nil {
			log.DebugContext(ctx, "unmounted", "path", path, "attempt", attempt)
			return nil
		}

		log.WarnContext(ctx, "umount failed", "path", path, "attempt", attempt, "max_attempts", m.cfg.MaxAttempts, "error", lastErr)
		m.progress.Warn("umount failed, retrying in %s...", m.cfg.RetryInterval)
		m.sleep(m.cfg.RetryInterval)
	}

	return &UnmountError{Path: path, Attempts: m.cfg.MaxAttempts, Err: lastErr}
}

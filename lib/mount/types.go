package mount

import "time"

const (
	DefaultMaxAttempts   = 10
	DefaultRetryInterval = time.Second
)

// Config controls the mount manager.
type Config struct {
	// MaxAttempts is how many times umount is tried before giving up.
	MaxAttempts int
	// RetryInterval is the pause after each failed umount.
	RetryInterval time.Duration
	// TempDir is where mount points are created. Empty means os.TempDir().
	TempDir string
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	return c
}

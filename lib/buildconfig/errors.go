package buildconfig

import (
	"errors"
	"fmt"
)

var (
	ErrMissingSection = errors.New("missing config section")
	ErrMissingKey     = errors.New("missing config key")
)

// ConfigError reports a configuration problem: an unreadable or malformed
// source, or a required section/key that is absent.
type ConfigError struct {
	Source  string
	Section string
	Key     string
	Err     error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Source != "":
		return fmt.Sprintf("config source %q: %v", e.Source, e.Err)
	case e.Key != "":
		return fmt.Sprintf("config [%s] %s: %v", e.Section, e.Key, e.Err)
	default:
		return fmt.Sprintf("config [%s]: %v", e.Section, e.Err)
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

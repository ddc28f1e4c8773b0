// Package disk allocates and formats the raw image file.
package disk

import (
	"errors"
	"math"
	"strings"

	"github.com/c2h5oh/datasize"
)

var errEmptySize = errors.New("empty size")

// ParseSize converts a size specification such as "1G", "512 m" or "4096"
// to bytes. K, M and G (any case) are powers of 1024; no suffix means bytes.
func ParseSize(spec string) (int64, error) {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return 0, &SizeParseError{Spec: spec, Err: errEmptySize}
	}

	var size datasize.ByteSize
	if err := size.UnmarshalText([]byte(trimmed)); err != nil {
		return 0, &SizeParseError{Spec: spec, Err: err}
	}
	if size.Bytes() > math.MaxInt64 {
		return 0, &SizeParseError{Spec: spec, Err: errors.New("size out of range")}
	}
	return int64(size.Bytes()), nil
}

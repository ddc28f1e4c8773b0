package disk

import (
	"fmt"
	"os"
)

// chunkSize is how many zero bytes GenerateZeroFile writes per call.
const chunkSize = 10 * 1024

// GenerateZeroFile creates (or truncates) path and fills it with exactly size
// zero bytes. The blocks are really written, so the file is not sparse.
func GenerateZeroFile(path string, size int64) error {
	if size < 0 {
		return fmt.Errorf("generate zero file: negative size %d", size)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	defer f.Close()

	chunk := make([]byte, chunkSize)
	for remaining := size; remaining > 0; {
		n := int64(len(chunk))
		if remaining < n {
			n = remaining
		}
		if _, err := f.Write(chunk[:n]); err != nil {
			return fmt.Errorf("write image file: %w", err)
		}
		remaining -= n
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close image file: %w", err)
	}
	return nil
}

package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Step("creating %s file system in %s (%s)...", "ext4", "debian.img", "1G")
	p.Step("mounting image...")
	p.Warn("umount failed, retrying in %s...", "1s")

	assert.Equal(t, "++ creating ext4 file system in debian.img (1G)...\n"+
		"++ mounting image...\n"+
		"-- umount failed, retrying in 1s...\n", buf.String())
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard.Step("x")
		Discard.Warn("y")
	})
}

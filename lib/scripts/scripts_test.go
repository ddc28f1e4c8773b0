package scripts

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/onkernel/debian-builder/lib/buildconfig"
	"github.com/onkernel/debian-builder/lib/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) *buildconfig.Config {
	t.Helper()
	cfg, err := buildconfig.Load(context.Background(), []string{sources.DefaultConfig})
	require.NoError(t, err)
	return cfg
}

func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.tmpl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRenderConfigValues(t *testing.T) {
	g := NewGenerator(defaultConfig(t))

	ref := writeTemplate(t, `size={{ .Config.ImageSize }} fs={{ .Config.ImageFS | upper }}
{{- range .Config.BindMounts }}
{{ .Source }}->{{ .Target }}
{{- end }}`)

	out, err := g.Render(ref)
	require.NoError(t, err)
	assert.Equal(t, "size=1G fs=EXT4\n/dev->/dev\n/dev/pts->/dev/pts\n/proc->/proc\n/sys->/sys\n/sdcard->/mnt/sdcard", out)
}

func TestRenderBuiltinTemplates(t *testing.T) {
	g := NewGenerator(defaultConfig(t))

	initScript, err := g.Render("builtin:data/init.sh.tmpl")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(initScript, "#!/bin/sh\n"))
	assert.Contains(t, initScript, "/etc/debian-builder.conf")
	assert.Contains(t, initScript, "dpkg --configure -a")

	launcher, err := g.Render("builtin:data/launcher.sh.tmpl")
	require.NoError(t, err)
	assert.Contains(t, launcher, `IMAGE="/sdcard/debian.img"`)
	assert.Contains(t, launcher, `ROOT="/data/local/debian"`)
	assert.Contains(t, launcher, `INIT="/usr/local/sbin/debian-init"`)
	assert.Contains(t, launcher, `mount -o bind "/sdcard" "$ROOT/mnt/sdcard"`)

	// Bind mounts are released in reverse order.
	sys := strings.Index(launcher, `umount "$ROOT/sys"`)
	dev := strings.Index(launcher, `umount "$ROOT/dev"`)
	pts := strings.Index(launcher, `umount "$ROOT/dev/pts"`)
	require.True(t, sys > 0 && dev > 0 && pts > 0)
	assert.Less(t, sys, pts)
	assert.Less(t, pts, dev)
}

func TestRenderErrors(t *testing.T) {
	cfg, err := buildconfig.Parse([]byte("[image]\nsize = 1G\n"))
	require.NoError(t, err)
	g := NewGenerator(cfg)

	t.Run("missing template", func(t *testing.T) {
		_, err := g.Render(filepath.Join(t.TempDir(), "nope.tmpl"))
		assert.ErrorIs(t, err, fs.ErrNotExist)

		_, err = g.Render("builtin:data/nope.tmpl")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := g.Render(writeTemplate(t, "{{ .Config.ImageFS }}"))
		assert.ErrorIs(t, err, buildconfig.ErrMissingKey)
	})

	t.Run("syntax", func(t *testing.T) {
		_, err := g.Render(writeTemplate(t, "{{ .Config.ImageSize "))
		assert.Error(t, err)
	})

	t.Run("stdin", func(t *testing.T) {
		_, err := g.Render(sources.Stdin)
		assert.ErrorIs(t, err, errStdinTemplate)
	})
}

func TestWrite(t *testing.T) {
	g := NewGenerator(defaultConfig(t))
	path := filepath.Join(t.TempDir(), "usr", "local", "sbin", "hello")

	require.NoError(t, g.Write(context.Background(), path, writeTemplate(t, "#!/bin/sh\necho {{ .Config.ImageSize }}\n"), DefaultMode))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\necho 1G\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0755), info.Mode().Perm())

	// Existing files are replaced and get the requested mode.
	require.NoError(t, os.Chmod(path, 0600))
	require.NoError(t, g.Write(context.Background(), path, writeTemplate(t, "again\n"), 0750))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "again\n", string(data))
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0750), info.Mode().Perm())
}

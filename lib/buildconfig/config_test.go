package buildconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ghodss/yaml"
	"github.com/onkernel/debian-builder/lib/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), []string{sources.DefaultConfig})
	require.NoError(t, err)

	size, err := cfg.ImageSize()
	require.NoError(t, err)
	assert.Equal(t, "1G", size)

	fsType, err := cfg.ImageFS()
	require.NoError(t, err)
	assert.Equal(t, "ext4", fsType)

	blob, err := cfg.MultistrapConfig()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(blob, "[General]\narch = armhf\n"), blob)
	assert.Contains(t, blob, "\n[Debian]\n")

	keys, err := cfg.ExtraGPGKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	server, err := cfg.Keyserver()
	require.NoError(t, err)
	assert.Equal(t, DefaultKeyserver, server)

	scripts, err := cfg.ExtraScripts()
	require.NoError(t, err)
	assert.Empty(t, scripts)

	mounts, err := cfg.BindMounts()
	require.NoError(t, err)
	require.Len(t, mounts, 5)
	assert.Equal(t, BindMount{Source: "/dev", Target: "/dev"}, mounts[0])
	assert.Equal(t, BindMount{Source: "/sdcard", Target: "/mnt/sdcard"}, mounts[4])

	assert.Equal(t, []string{sources.DefaultConfig}, cfg.Sources())
}

func TestLoadLayering(t *testing.T) {
	base := writeConfig(t, "base.ini", "[image]\nsize = 1G\n")
	override := writeConfig(t, "override.ini", "[image]\nfs_type = ext4\n")

	cfg, err := Load(context.Background(), []string{base, override})
	require.NoError(t, err)

	size, err := cfg.ImageSize()
	require.NoError(t, err)
	assert.Equal(t, "1G", size)

	fsType, err := cfg.ImageFS()
	require.NoError(t, err)
	assert.Equal(t, "ext4", fsType)
}

func TestLoadLaterSourceWins(t *testing.T) {
	first := writeConfig(t, "first.ini", "[image]\nsize = 1G\nfs_type = ext2\n")
	second := writeConfig(t, "second.ini", "[image]\nsize : 512M\n")

	cfg, err := Load(context.Background(), []string{sources.DefaultConfig, first, second})
	require.NoError(t, err)

	size, err := cfg.ImageSize()
	require.NoError(t, err)
	assert.Equal(t, "512M", size)

	fsType, err := cfg.ImageFS()
	require.NoError(t, err)
	assert.Equal(t, "ext2", fsType)
}

func TestLoadStdin(t *testing.T) {
	cfg, err := Load(context.Background(),
		[]string{sources.DefaultConfig, sources.Stdin},
		WithStdin(strings.NewReader("[bootstrap]\nextra-gpg-keys = AAAA BBBB\n  AAAA CCCC\n")),
	)
	require.NoError(t, err)

	keys, err := cfg.ExtraGPGKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAAA", "BBBB", "CCCC"}, keys)
}

func TestLoadMissingSource(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.ini")

	tests := []struct {
		name string
		id   string
	}{
		{"file", missing},
		{"builtin", "builtin:data/nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), []string{sources.DefaultConfig, tt.id})
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.id, cfgErr.Source)
			assert.ErrorIs(t, err, fs.ErrNotExist)
			assert.Contains(t, err.Error(), tt.id)
		})
	}
}

func TestAccessorErrors(t *testing.T) {
	cfg, err := Parse([]byte("[image]\nsize = 1G\n[bootstrap]\n"))
	require.NoError(t, err)

	_, err = cfg.ImageFS()
	assert.ErrorIs(t, err, ErrMissingKey)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "image", cfgErr.Section)
	assert.Equal(t, "fs_type", cfgErr.Key)
	assert.Equal(t, "config [image] fs_type: missing config key", err.Error())

	_, err = cfg.LauncherTemplate()
	assert.ErrorIs(t, err, ErrMissingSection)

	_, err = cfg.BindMounts()
	assert.ErrorIs(t, err, ErrMissingSection)

	// The keyserver key is optional, its section is not.
	server, err := cfg.Keyserver()
	require.NoError(t, err)
	assert.Equal(t, DefaultKeyserver, server)

	empty, err := Parse([]byte("[image]\n"))
	require.NoError(t, err)
	_, err = empty.Keyserver()
	assert.ErrorIs(t, err, ErrMissingSection)
}

func TestNoInterpolation(t *testing.T) {
	cfg, err := Parse([]byte("[launcher]\ntemplate = %(dir)s/launcher ; not a comment\n"))
	require.NoError(t, err)

	tmpl, err := cfg.LauncherTemplate()
	require.NoError(t, err)
	assert.Equal(t, "%(dir)s/launcher ; not a comment", tmpl)
}

func TestConfigparserValues(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		section string
		key     string
		want    string
	}{
		{
			name:    "blank line inside value",
			input:   "[bootstrap]\nmultistrap-config =\n    [General]\n    arch = armhf\n\n    [Debian]\n    packages = apt\nembedded-config = /etc/x.conf\n",
			section: "bootstrap",
			key:     "multistrap-config",
			want:    "[General]\narch = armhf\n\n[Debian]\npackages = apt",
		},
		{
			name:    "key after blank line inside value",
			input:   "[bootstrap]\nmultistrap-config =\n    [General]\n    arch = armhf\n\n    [Debian]\n    packages = apt\nembedded-config = /etc/x.conf\n",
			section: "bootstrap",
			key:     "embedded-config",
			want:    "/etc/x.conf",
		},
		{
			name:    "indented comment inside value",
			input:   "[bootstrap]\nextra-gpg-keys = AAAA\n    # staging key\n    BBBB\n",
			section: "bootstrap",
			key:     "extra-gpg-keys",
			want:    "AAAA\nBBBB",
		},
		{
			name:    "unindented comment inside value",
			input:   "[bootstrap]\nextra-gpg-keys = AAAA\n; staging key\n  BBBB\n",
			section: "bootstrap",
			key:     "extra-gpg-keys",
			want:    "AAAA\nBBBB",
		},
		{
			name:    "trailing blank lines dropped",
			input:   "[image]\nsize = 1G\n  # later\n\n\n[launcher]\ntemplate = x\n",
			section: "image",
			key:     "size",
			want:    "1G",
		},
		{
			name:    "tab continuation",
			input:   "[bootstrap]\nextra-gpg-keys =\n\tAAAA\n\tBBBB\n",
			section: "bootstrap",
			key:     "extra-gpg-keys",
			want:    "AAAA\nBBBB",
		},
		{
			name:    "same indent starts a new key",
			input:   "[image]\n  size = 1G\n  fs_type = ext4\n",
			section: "image",
			key:     "fs_type",
			want:    "ext4",
		},
		{
			name:    "double quotes kept",
			input:   "[launcher]\nmount-point = \"/data/local/debian\"\n",
			section: "launcher",
			key:     "mount-point",
			want:    `"/data/local/debian"`,
		},
		{
			name:    "single quotes kept",
			input:   "[launcher]\nmount-point = '/data/local/debian'\n",
			section: "launcher",
			key:     "mount-point",
			want:    "'/data/local/debian'",
		},
		{
			name:    "backticks kept",
			input:   "[launcher]\nimage-path = `hostname`.img\n",
			section: "launcher",
			key:     "image-path",
			want:    "`hostname`.img",
		},
		{
			name:    "trailing backslash is not a continuation",
			input:   "[image]\nsize = 1G\\\nfs_type = ext4\n",
			section: "image",
			key:     "size",
			want:    "1G\\",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.input))
			require.NoError(t, err)
			values := cfg.Map()[tt.section]
			require.Contains(t, values, tt.key)
			assert.Equal(t, tt.want, values[tt.key])
		})
	}
}

func TestLoadMultistrapWithBlankLines(t *testing.T) {
	override := writeConfig(t, "board.ini", `[bootstrap]
multistrap-config =
    [General]
    arch = armhf
    aptsources = Debian

    # packages come from the main archive
    [Debian]
    packages = apt
    suite = stable
embedded-config = /etc/board.conf
`)
	cfg, err := Load(context.Background(), []string{sources.DefaultConfig, override})
	require.NoError(t, err)

	blob, err := cfg.MultistrapConfig()
	require.NoError(t, err)
	assert.Equal(t, "[General]\narch = armhf\naptsources = Debian\n\n[Debian]\npackages = apt\nsuite = stable", blob)

	embedded, err := cfg.EmbeddedConfig()
	require.NoError(t, err)
	assert.Equal(t, "/etc/board.conf", embedded)

	initScript, err := cfg.InitScript()
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/sbin/debian-init", initScript)

	assert.NotContains(t, cfg.Map(), "Debian")
}

func TestDumpContinuationLines(t *testing.T) {
	cfg, err := Parse([]byte("[bootstrap]\nmultistrap-config =\n  [General]\n  arch = armhf\n\n  [Debian]\n  suite = stable\nkeyserver = \"hkp://k\"\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cfg.Dump(&buf))
	assert.Equal(t, "[bootstrap]\n"+
		"multistrap-config = [General]\n\tarch = armhf\n\t\n\t[Debian]\n\tsuite = stable\n"+
		"keyserver = \"hkp://k\"\n\n", buf.String())

	reloaded, err := Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, cfg.Map(), reloaded.Map())
}

func TestOrderedSections(t *testing.T) {
	cfg, err := Parse([]byte(`[extra-scripts]
/usr/local/bin/Hello = builtin:hello
/etc/motd = motd.tmpl

[bind-mounts]
/sdcard = /mnt/sdcard
/dev = /dev
`))
	require.NoError(t, err)

	scripts, err := cfg.ExtraScripts()
	require.NoError(t, err)
	assert.Equal(t, []Script{
		{Path: "/usr/local/bin/Hello", Template: "builtin:hello"},
		{Path: "/etc/motd", Template: "motd.tmpl"},
	}, scripts)

	mounts, err := cfg.BindMounts()
	require.NoError(t, err)
	assert.Equal(t, []BindMount{
		{Source: "/sdcard", Target: "/mnt/sdcard"},
		{Source: "/dev", Target: "/dev"},
	}, mounts)
}

func TestDumpRoundTrip(t *testing.T) {
	override := writeConfig(t, "override.ini", "[image]\nsize = 2G\n[extra-scripts]\n/etc/motd = motd.tmpl\n")
	cfg, err := Load(context.Background(), []string{sources.DefaultConfig, override})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cfg.Dump(&buf))

	reloaded, err := Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, cfg.Map(), reloaded.Map())

	blob, err := reloaded.MultistrapConfig()
	require.NoError(t, err)
	orig, err := cfg.MultistrapConfig()
	require.NoError(t, err)
	assert.Equal(t, orig, blob)
}

func TestDumpFormat(t *testing.T) {
	cfg, err := Parse([]byte("[image]\nsize = 1G\nfs_type = ext4\n"))
	require.NoError(t, err)

	want := map[string]map[string]string{
		"image": {"size": "1G", "fs_type": "ext4"},
	}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, cfg.DumpFormat(&buf, FormatJSON))
		var got map[string]map[string]string
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, want, got)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, cfg.DumpFormat(&buf, FormatYAML))
		var got map[string]map[string]string
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, want, got)
	})

	t.Run("ini", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, cfg.DumpFormat(&buf, FormatINI))
		assert.Contains(t, buf.String(), "[image]")
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, cfg.DumpFormat(&bytes.Buffer{}, Format("toml")))
	})
}

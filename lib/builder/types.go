package builder

import (
	"github.com/onkernel/debian-builder/lib/bootstrap"
	"github.com/onkernel/debian-builder/lib/command"
	"github.com/onkernel/debian-builder/lib/keys"
	"github.com/onkernel/debian-builder/lib/mount"
	"github.com/onkernel/debian-builder/lib/progress"
	"github.com/onkernel/debian-builder/lib/scripts"
)

const (
	DefaultImagePath  = "debian.img"
	DefaultScriptPath = "deb"
)

// Options selects what a Build produces.
type Options struct {
	// ImagePath is the host path of the disk image.
	ImagePath string
	// ScriptPath is the host path of the launcher script.
	ScriptPath string
	// OnlyScript skips the image and only writes the launcher.
	OnlyScript bool
}

// Deps are the collaborators a build runs its stages through.
type Deps struct {
	Runner       command.Runner
	Mounts       mount.Manager
	Bootstrapper bootstrap.Bootstrapper
	Keys         keys.Importer
	Scripts      scripts.Generator
	Progress     progress.Reporter
}

// Stage names, used for spans and metric attributes.
const (
	StageAllocate     = "allocate"
	StageFormat       = "format"
	StageMount        = "mount"
	StageBootstrap    = "bootstrap"
	StageImportKeys   = "import_keys"
	StageInitScript   = "init_script"
	StageExtraScripts = "extra_scripts"
	StageEmbedConfig  = "embed_config"
	StageBuildScript  = "build_script"
)

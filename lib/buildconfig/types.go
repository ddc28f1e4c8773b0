package buildconfig

// Section names.
const (
	SectionImage        = "image"
	SectionBootstrap    = "bootstrap"
	SectionExtraScripts = "extra-scripts"
	SectionLauncher     = "launcher"
	SectionBindMounts   = "bind-mounts"
)

// DefaultKeyserver is used when [bootstrap] keyserver is not set.
const DefaultKeyserver = "hkp://keyserver.ubuntu.com"

// Script is an extra script to generate inside the image.
type Script struct {
	// Path is absolute inside the image.
	Path string
	// Template is a source identifier for the script template.
	Template string
}

// BindMount is a host directory the launcher binds into the image.
type BindMount struct {
	Source string
	Target string
}

// Format selects the serialization used by DumpFormat.
type Format string

const (
	FormatINI  Format = "ini"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

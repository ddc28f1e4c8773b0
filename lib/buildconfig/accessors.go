package buildconfig

import (
	"strings"

	"github.com/samber/lo"
	"gopkg.in/ini.v1"
)

func (c *Config) section(name string) (*ini.Section, error) {
	sec, err := c.file.GetSection(name)
	if err != nil {
		return nil, &ConfigError{Section: name, Err: ErrMissingSection}
	}
	return sec, nil
}

func (c *Config) get(section, key string) (string, error) {
	sec, err := c.section(section)
	if err != nil {
		return "", err
	}
	if !sec.HasKey(key) {
		return "", &ConfigError{Section: section, Key: key, Err: ErrMissingKey}
	}
	return sec.Key(key).Value(), nil
}

// ImageSize is the image size specification, e.g. "1G".
func (c *Config) ImageSize() (string, error) {
	return c.get(SectionImage, "size")
}

// ImageFS is the filesystem type passed to mkfs.
func (c *Config) ImageFS() (string, error) {
	return c.get(SectionImage, "fs_type")
}

// MultistrapConfig is the multistrap configuration blob.
func (c *Config) MultistrapConfig() (string, error) {
	return c.get(SectionBootstrap, "multistrap-config")
}

// ExtraGPGKeys are the key IDs to import into the image, in order.
func (c *Config) ExtraGPGKeys() ([]string, error) {
	val, err := c.get(SectionBootstrap, "extra-gpg-keys")
	if err != nil {
		return nil, err
	}
	return lo.Uniq(strings.Fields(val)), nil
}

// Keyserver is the key server extra keys are fetched from.
func (c *Config) Keyserver() (string, error) {
	sec, err := c.section(SectionBootstrap)
	if err != nil {
		return "", err
	}
	if !sec.HasKey("keyserver") {
		return DefaultKeyserver, nil
	}
	if val := strings.TrimSpace(sec.Key("keyserver").Value()); val != "" {
		return val, nil
	}
	return DefaultKeyserver, nil
}

// EmbeddedConfig is where the config is stored inside the image.
func (c *Config) EmbeddedConfig() (string, error) {
	return c.get(SectionBootstrap, "embedded-config")
}

// InitScript is the init script path inside the image.
func (c *Config) InitScript() (string, error) {
	return c.get(SectionBootstrap, "init-script")
}

// InitScriptTemplate is the source identifier of the init script template.
func (c *Config) InitScriptTemplate() (string, error) {
	return c.get(SectionBootstrap, "init-script-template")
}

// ExtraScripts returns the [extra-scripts] entries in file order.
func (c *Config) ExtraScripts() ([]Script, error) {
	sec, err := c.section(SectionExtraScripts)
	if err != nil {
		return nil, err
	}
	return lo.Map(sec.Keys(), func(k *ini.Key, _ int) Script {
		return Script{Path: k.Name(), Template: k.Value()}
	}), nil
}

// LauncherTemplate is the source identifier of the launcher template.
func (c *Config) LauncherTemplate() (string, error) {
	return c.get(SectionLauncher, "template")
}

// DeviceImageFile is the image location on the device.
func (c *Config) DeviceImageFile() (string, error) {
	return c.get(SectionLauncher, "image-path")
}

// DeviceMountPoint is where the launcher mounts the image on the device.
func (c *Config) DeviceMountPoint() (string, error) {
	return c.get(SectionLauncher, "mount-point")
}

// BindMounts returns the [bind-mounts] pairs in file order.
func (c *Config) BindMounts() ([]BindMount, error) {
	sec, err := c.section(SectionBindMounts)
	if err != nil {
		return nil, err
	}
	return lo.Map(sec.Keys(), func(k *ini.Key, _ int) BindMount {
		return BindMount{Source: k.Name(), Target: k.Value()}
	}), nil
}

package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/onkernel/debian-builder/cmd/debian-builder/config"
	"github.com/onkernel/debian-builder/lib/buildconfig"
	"github.com/onkernel/debian-builder/lib/builder"
	"github.com/onkernel/debian-builder/lib/logger"
	"github.com/onkernel/debian-builder/lib/providers"
	"github.com/onkernel/debian-builder/lib/sources"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configs         []string
	image           string
	script          string
	onlyScript      bool
	printConfig     bool
	format          string
	noDefaultConfig bool
	verbose         bool
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "debian-builder",
		Short: "Build a Debian image and the script that launches it",
		Long: `debian-builder creates a Debian root filesystem image with multistrap
and writes a launcher script that mounts and enters it on the device.

The build is described by INI configuration files. The built-in default is
loaded first, then every --config in order; a later file replaces keys of
the same name in the same section. Use "-" to read a file from stdin and
"builtin:<name>" for packaged resources.`,
		Example: `  debian-builder --config board.ini
  debian-builder --config board.ini --only-script --script deb
  debian-builder --config board.ini --print-config --format yaml`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoot(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringArrayVar(&f.configs, "config", nil, "configuration `CFG` to load after the default; repeat to layer several")
	fl.StringVar(&f.image, "image", builder.DefaultImagePath, "path of the image to build")
	fl.StringVar(&f.script, "script", builder.DefaultScriptPath, "path of the launcher script to write")
	fl.BoolVar(&f.onlyScript, "only-script", false, "only write the launcher script")
	fl.BoolVar(&f.printConfig, "print-config", false, "print the effective configuration and exit")
	fl.StringVar(&f.format, "format", string(buildconfig.FormatINI), "output format for --print-config: ini, yaml or json")
	fl.BoolVar(&f.noDefaultConfig, "no-default-config", false, "do not load the built-in default configuration")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")

	cmd.MarkFlagsMutuallyExclusive("print-config", "only-script")

	return cmd
}

// configSources returns the identifiers to load, in order.
func (f *rootFlags) configSources() []string {
	var ids []string
	if !f.noDefaultConfig {
		ids = append(ids, sources.DefaultConfig)
	}
	return append(ids, f.configs...)
}

func (f *rootFlags) validate() error {
	formats := []buildconfig.Format{buildconfig.FormatINI, buildconfig.FormatYAML, buildconfig.FormatJSON}
	if !slices.Contains(formats, buildconfig.Format(f.format)) {
		return fmt.Errorf("invalid --format %q: must be one of ini, yaml, json", f.format)
	}
	if f.format != string(buildconfig.FormatINI) && !f.printConfig {
		return fmt.Errorf("--format requires --print-config")
	}
	if len(f.configSources()) == 0 {
		return fmt.Errorf("no configuration: pass --config or drop --no-default-config")
	}
	return nil
}

func runRoot(cmd *cobra.Command, f *rootFlags) error {
	if err := f.validate(); err != nil {
		return err
	}

	env := config.Load()
	if f.verbose {
		env.LogLevel = "debug"
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, cleanup, err := initializeApp(ctx, env,
		providers.ConfigSources(f.configSources()),
		providers.Stdin(cmd.InOrStdin()))
	if err != nil {
		return err
	}
	defer cleanup()

	ctx = logger.AddToContext(ctx, app.Logger)

	if f.printConfig {
		return app.BuildConfig.DumpFormat(cmd.OutOrStdout(), buildconfig.Format(f.format))
	}

	return app.Builder.Build(ctx, builder.Options{
		ImagePath:  f.image,
		ScriptPath: f.script,
		OnlyScript: f.onlyScript,
	})
}

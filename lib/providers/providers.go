package providers

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/onkernel/debian-builder/cmd/debian-builder/config"
	"github.com/onkernel/debian-builder/lib/bootstrap"
	"github.com/onkernel/debian-builder/lib/buildconfig"
	"github.com/onkernel/debian-builder/lib/builder"
	"github.com/onkernel/debian-builder/lib/command"
	"github.com/onkernel/debian-builder/lib/keys"
	"github.com/onkernel/debian-builder/lib/logger"
	"github.com/onkernel/debian-builder/lib/mount"
	"github.com/onkernel/debian-builder/lib/otel"
	"github.com/onkernel/debian-builder/lib/progress"
	"github.com/onkernel/debian-builder/lib/scripts"
)

// ConfigSources are the build configuration source identifiers, in load order.
type ConfigSources []string

// Stdin is the reader used for the "-" configuration source.
type Stdin io.Reader

// ProvideTelemetry initializes OpenTelemetry. Failing to reach a collector
// is not fatal: the build continues without telemetry.
func ProvideTelemetry(ctx context.Context, cfg *config.Config) (*otel.Provider, func(), error) {
	provider, shutdown, err := otel.Init(ctx, otel.Config{
		Enabled:           cfg.OtelEnabled,
		Endpoint:          cfg.OtelEndpoint,
		ServiceName:       cfg.OtelServiceName,
		ServiceInstanceID: cfg.OtelServiceInstanceID,
		Insecure:          cfg.OtelInsecure,
		Version:           cfg.Version,
		Env:               cfg.Env,
	})
	if err != nil {
		slog.Warn("failed to initialize OpenTelemetry, continuing without telemetry", "error", err)
		provider, shutdown, _ = otel.Init(ctx, otel.Config{ServiceName: cfg.OtelServiceName})
	}
	cleanup := func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("error shutting down OpenTelemetry", "error", err)
		}
	}
	return provider, cleanup, nil
}

// ProvideLogger provides a structured logger
func ProvideLogger(cfg *config.Config, telemetry *otel.Provider) (*slog.Logger, error) {
	return logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Format:   cfg.LogFormat,
		BuildLog: cfg.BuildLog,
	}, telemetry.LogHandler)
}

// ProvideBuildConfig loads the layered build configuration.
func ProvideBuildConfig(ctx context.Context, log *slog.Logger, ids ConfigSources, stdin Stdin) (*buildconfig.Config, error) {
	return buildconfig.Load(logger.AddToContext(ctx, log), ids, buildconfig.WithStdin(stdin))
}

// ProvideCommandRunner provides the runner for external tools
func ProvideCommandRunner() command.Runner {
	return command.NewRunner()
}

// ProvideProgress provides the stage narration printed on stdout
func ProvideProgress() progress.Reporter {
	return progress.New(os.Stdout)
}

// ProvideMountManager provides the mount manager
func ProvideMountManager(cfg *config.Config, runner command.Runner, reporter progress.Reporter, telemetry *otel.Provider) (mount.Manager, error) {
	return mount.NewManager(runner, reporter, mount.Config{
		MaxAttempts:   cfg.UmountAttempts,
		RetryInterval: cfg.UmountRetryInterval,
	}, telemetry.MeterFor("mount"))
}

// ProvideBootstrapper provides the root filesystem bootstrapper
func ProvideBootstrapper(runner command.Runner) bootstrap.Bootstrapper {
	return bootstrap.NewMultistrap(runner)
}

// ProvideKeyImporter provides the apt key importer
func ProvideKeyImporter(runner command.Runner) keys.Importer {
	return keys.NewGPG(runner)
}

// ProvideScriptGenerator provides the script generator
func ProvideScriptGenerator(cfg *buildconfig.Config) scripts.Generator {
	return scripts.NewGenerator(cfg)
}

// ProvideBuildManager provides the build manager
func ProvideBuildManager(
	cfg *buildconfig.Config,
	runner command.Runner,
	mounts mount.Manager,
	boot bootstrap.Bootstrapper,
	importer keys.Importer,
	generator scripts.Generator,
	reporter progress.Reporter,
	telemetry *otel.Provider,
) (builder.Manager, error) {
	return builder.NewManager(cfg, builder.Deps{
		Runner:       runner,
		Mounts:       mounts,
		Bootstrapper: boot,
		Keys:         importer,
		Scripts:      generator,
		Progress:     reporter,
	}, telemetry.MeterFor("builder"), telemetry.TracerFor("builder"))
}

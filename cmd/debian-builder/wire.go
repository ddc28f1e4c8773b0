//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/onkernel/debian-builder/cmd/debian-builder/config"
	"github.com/onkernel/debian-builder/lib/providers"
)

// initializeApp is the injector function
func initializeApp(ctx context.Context, cfg *config.Config, ids providers.ConfigSources, stdin providers.Stdin) (*application, func(), error) {
	panic(wire.Build(
		providers.ProvideTelemetry,
		providers.ProvideLogger,
		providers.ProvideBuildConfig,
		providers.ProvideCommandRunner,
		providers.ProvideProgress,
		providers.ProvideMountManager,
		providers.ProvideBootstrapper,
		providers.ProvideKeyImporter,
		providers.ProvideScriptGenerator,
		providers.ProvideBuildManager,
		wire.Struct(new(application), "*"),
	))
}

package main

import (
	"log/slog"

	"github.com/onkernel/debian-builder/cmd/debian-builder/config"
	"github.com/onkernel/debian-builder/lib/buildconfig"
	"github.com/onkernel/debian-builder/lib/builder"
	"github.com/onkernel/debian-builder/lib/otel"
)

// application struct to hold initialized components
type application struct {
	Logger      *slog.Logger
	Config      *config.Config
	Telemetry   *otel.Provider
	BuildConfig *buildconfig.Config
	Builder     builder.Manager
}

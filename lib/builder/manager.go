// Package builder runs the image build pipeline.
//
// An image build allocates a zero-filled file, formats it, loop-mounts it and
// then, inside the mount, bootstraps Debian, imports extra apt keys, renders
// the init and extra scripts and embeds the effective configuration. Stages
// run strictly in order and the first failure aborts the build; the image is
// always unmounted. The launcher script is built separately on the host.
package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nrednav/cuid2"
	"github.com/onkernel/debian-builder/lib/bootstrap"
	"github.com/onkernel/debian-builder/lib/buildconfig"
	"github.com/onkernel/debian-builder/lib/command"
	"github.com/onkernel/debian-builder/lib/disk"
	"github.com/onkernel/debian-builder/lib/keys"
	"github.com/onkernel/debian-builder/lib/logger"
	"github.com/onkernel/debian-builder/lib/mount"
	"github.com/onkernel/debian-builder/lib/paths"
	"github.com/onkernel/debian-builder/lib/progress"
	"github.com/onkernel/debian-builder/lib/scripts"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Manager builds images and launcher scripts from one configuration.
type Manager interface {
	// Build produces the image (unless opts.OnlyScript) and then the launcher.
	Build(ctx context.Context, opts Options) error
	// BuildImage builds the disk image at imagePath, overwriting any file there.
	BuildImage(ctx context.Context, imagePath string) error
	// BuildScript renders the launcher script to scriptPath.
	BuildScript(ctx context.Context, scriptPath string) error
}

type manager struct {
	cfg      *buildconfig.Config
	runner   command.Runner
	mounts   mount.Manager
	boot     bootstrap.Bootstrapper
	keys     keys.Importer
	scripts  scripts.Generator
	progress progress.Reporter
	metrics  *Metrics
}

// NewManager creates a build manager. Collaborators left nil in deps get
// their default implementation running real tools. meter and tracer may be
// nil.
func NewManager(cfg *buildconfig.Config, deps Deps, meter metric.Meter, tracer trace.Tracer) (Manager, error) {
	m := &manager{
		cfg:      cfg,
		runner:   deps.Runner,
		mounts:   deps.Mounts,
		boot:     deps.Bootstrapper,
		keys:     deps.Keys,
		scripts:  deps.Scripts,
		progress: deps.Progress,
	}
	if m.runner == nil {
		m.runner = command.NewRunner()
	}
	if m.progress == nil {
		m.progress = progress.Discard
	}
	if m.mounts == nil {
		mounts, err := mount.NewManager(m.runner, m.progress, mount.Config{}, meter)
		if err != nil {
			return nil, err
		}
		m.mounts = mounts
	}
	if m.boot == nil {
		m.boot = bootstrap.NewMultistrap(m.runner)
	}
	if m.keys == nil {
		m.keys = keys.NewGPG(m.runner)
	}
	if m.scripts == nil {
		m.scripts = scripts.NewGenerator(cfg)
	}

	if meter != nil {
		metrics, err := newMetrics(meter, tracer)
		if err != nil {
			return nil, fmt.Errorf("create build metrics: %w", err)
		}
		m.metrics = metrics
	}
	return m, nil
}

func (m *manager) Build(ctx context.Context, opts Options) error {
	if opts.ImagePath == "" {
		opts.ImagePath = DefaultImagePath
	}
	if opts.ScriptPath == "" {
		opts.ScriptPath = DefaultScriptPath
	}

	if !opts.OnlyScript {
		if err := m.BuildImage(ctx, opts.ImagePath); err != nil {
			return err
		}
	}
	return m.BuildScript(ctx, opts.ScriptPath)
}

func (m *manager) BuildImage(ctx context.Context, imagePath string) (err error) {
	start := time.Now()
	buildID := cuid2.Generate()
	log := logger.FromContext(ctx).With("build_id", buildID)
	ctx = logger.AddToContext(ctx, log)

	if m.metrics != nil && m.metrics.tracer != nil {
		var span trace.Span
		ctx, span = m.metrics.tracer.Start(ctx, "build_image",
			trace.WithAttributes(
				attribute.String("build_id", buildID),
				attribute.String("image", imagePath),
			))
		defer func() {
			endSpan(span, err)
		}()
	}
	defer func() {
		m.recordBuild(ctx, start, err)
	}()

	log.InfoContext(ctx, "building image", "image", imagePath, "sources", m.cfg.Sources())

	size, err := m.cfg.ImageSize()
	if err != nil {
		return err
	}
	fsType, err := m.cfg.ImageFS()
	if err != nil {
		return err
	}

	m.progress.Step("creating %s file system in %s (%s)...", fsType, imagePath, size)
	if err := m.stage(ctx, StageAllocate, func(ctx context.Context) error {
		bytes, err := disk.ParseSize(size)
		if err != nil {
			return err
		}
		log.DebugContext(ctx, "allocating image", "image", imagePath, "bytes", bytes)
		return disk.GenerateZeroFile(imagePath, bytes)
	}); err != nil {
		return err
	}

	if err := m.stage(ctx, StageFormat, func(ctx context.Context) error {
		return disk.CreateFilesystem(ctx, m.runner, imagePath, fsType)
	}); err != nil {
		return err
	}

	m.progress.Step("mounting image...")
	if err := m.stage(ctx, StageMount, func(ctx context.Context) error {
		return m.mounts.WithMount(ctx, imagePath, func(mountPoint string) error {
			return m.populate(ctx, paths.New(mountPoint))
		})
	}); err != nil {
		return err
	}

	log.InfoContext(ctx, "image built", "image", imagePath, "duration", time.Since(start))
	return nil
}

// populate runs the stages that write into the mounted image.
func (m *manager) populate(ctx context.Context, root *paths.Chroot) error {
	m.progress.Step("running multistrap...")
	if err := m.stage(ctx, StageBootstrap, func(ctx context.Context) error {
		blob, err := m.cfg.MultistrapConfig()
		if err != nil {
			return err
		}
		return m.boot.Run(ctx, root.Root(), blob)
	}); err != nil {
		return err
	}

	m.progress.Step("adding extra GPG keys...")
	if err := m.stage(ctx, StageImportKeys, func(ctx context.Context) error {
		ids, err := m.cfg.ExtraGPGKeys()
		if err != nil {
			return err
		}
		server, err := m.cfg.Keyserver()
		if err != nil {
			return err
		}
		return m.keys.Import(ctx, root.Root(), server, ids)
	}); err != nil {
		return err
	}

	m.progress.Step("creating basic init script...")
	if err := m.stage(ctx, StageInitScript, func(ctx context.Context) error {
		path, err := m.cfg.InitScript()
		if err != nil {
			return err
		}
		tmpl, err := m.cfg.InitScriptTemplate()
		if err != nil {
			return err
		}
		return m.writeScript(ctx, root, path, tmpl)
	}); err != nil {
		return err
	}

	m.progress.Step("creating extra files...")
	if err := m.stage(ctx, StageExtraScripts, func(ctx context.Context) error {
		extra, err := m.cfg.ExtraScripts()
		if err != nil {
			return err
		}
		for _, s := range extra {
			if err := m.writeScript(ctx, root, s.Path, s.Template); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	m.progress.Step("embedding effective configuration...")
	return m.stage(ctx, StageEmbedConfig, func(ctx context.Context) error {
		path, err := m.cfg.EmbeddedConfig()
		if err != nil {
			return err
		}
		return m.embedConfig(root, path)
	})
}

func (m *manager) writeScript(ctx context.Context, root *paths.Chroot, inner, tmpl string) error {
	host, err := root.Resolve(inner)
	if err != nil {
		return err
	}
	if err := m.scripts.Write(ctx, host, tmpl, scripts.DefaultMode); err != nil {
		return fmt.Errorf("%s: %w", inner, err)
	}
	return nil
}

func (m *manager) embedConfig(root *paths.Chroot, inner string) error {
	host, err := root.Resolve(inner)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(host), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	f, err := os.Create(host)
	if err != nil {
		return fmt.Errorf("create embedded config: %w", err)
	}
	defer f.Close()

	if err := m.cfg.Dump(f); err != nil {
		return err
	}
	return f.Close()
}

func (m *manager) BuildScript(ctx context.Context, scriptPath string) (err error) {
	log := logger.FromContext(ctx)

	m.progress.Step("creating launcher script...")
	err = m.stage(ctx, StageBuildScript, func(ctx context.Context) error {
		tmpl, err := m.cfg.LauncherTemplate()
		if err != nil {
			return err
		}
		return m.scripts.Write(ctx, scriptPath, tmpl, scripts.DefaultMode)
	})
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "launcher script written", "path", scriptPath)
	return nil
}

// stage runs fn in its own span and records its duration. Errors are
// prefixed with the stage name.
func (m *manager) stage(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	if m.metrics != nil && m.metrics.tracer != nil {
		var span trace.Span
		ctx, span = m.metrics.tracer.Start(ctx, name)
		defer func() {
			endSpan(span, err)
		}()
	}

	log.DebugContext(ctx, "stage started", "stage", name)
	err = fn(ctx)
	m.recordStage(ctx, name, start, err)
	if err != nil {
		log.ErrorContext(ctx, "stage failed", "stage", name, "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	log.DebugContext(ctx, "stage finished", "stage", name, "duration", time.Since(start))
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

package app

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"stackforge/internal/adapters"
	"stackforge/internal/core"
	"stackforge/internal/ports"
	"stackforge/internal/types"
)

const sourceFetchTimeout = 10 * time.Minute

func (s Service) Build(ctx context.Context, req BuildRequest) (BuildResult, error) {
	req.BuildDir = strings.TrimSpace(req.BuildDir)
	if req.BuildDir == "" {
		return BuildResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("build directory is required")
	}
	req.InstallPrefix = strings.TrimSpace(req.InstallPrefix)
	if req.InstallPrefix == "" {
		return BuildResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("install prefix is required")
	}
	if req.Jobs < 1 {
		req.Jobs = 1
	}
	policy, err := core.ParseFailurePolicy(strings.TrimSpace(req.Policy))
	if err != nil {
		return BuildResult{}, err
	}

	// Resolution errors stop the run before anything is built.
	p, err := s.plan(ctx, req.Selection)
	if err != nil {
		return BuildResult{}, err
	}

	var builder ports.BuilderPort
	if s.NewBuilder != nil {
		builder = s.NewBuilder(req)
	}
	if builder == nil {
		builder = newShellBuilder(req)
	}
	if archiveDir := strings.TrimSpace(req.ArchiveDir); archiveDir != "" {
		builder = archivingBuilder{
			Builder:    builder,
			Archive:    adapters.NewDescriptionArchive(archiveDir),
			InstallDir: adapters.NewInstallTree(req.InstallPrefix).SoftwareDir,
			Clock:      s.now,
		}
	}

	executor := core.NewExecutor(policy, req.Jobs)
	var metrics ports.MetricsPort
	if path := strings.TrimSpace(req.MetricsFile); path != "" {
		metrics = adapters.NewTextfileMetrics(path)
		executor.Observer = metrics
	}

	startedAt := s.now()
	result, runErr := executor.Execute(ctx, p.Order, builder)
	finishedAt := s.now()

	if metrics != nil {
		if err := metrics.Flush(result); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to write metrics textfile")
		}
	}

	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir != "" {
		output := adapters.NewOutputFileAdapter(outputDir)
		if err := output.WriteBuildOrder(p.Order.Entries()); err != nil {
			return BuildResult{}, err
		}
		report := types.RunReport{
			StartedAt:  adapters.FormatReportTime(startedAt),
			FinishedAt: adapters.FormatReportTime(finishedAt),
			Policy:     policy,
			Jobs:       req.Jobs,
			Roots:      p.rootNames(),
			Outcomes:   result.Outcomes,
			Summary:    result.Summary(),
		}
		if err := output.WriteRunReport(report); err != nil {
			return BuildResult{}, err
		}
	}

	built := BuildResult{
		Roots:     p.rootNames(),
		Result:    result,
		OutputDir: outputDir,
	}
	if runErr != nil {
		return built, runErr
	}
	return built, core.FailureError(result)
}

// newShellBuilder is the default builder: steps run through the shell and
// sources are cached under the source path.
func newShellBuilder(req BuildRequest) ports.BuilderPort {
	builder := adapters.NewShellBuilder(req.BuildDir, adapters.NewInstallTree(req.InstallPrefix), req.Parallel)
	sourcePath := strings.TrimSpace(req.SourcePath)
	if sourcePath == "" {
		sourcePath = filepath.Join(req.BuildDir, "sources")
	}
	builder.Sources = adapters.NewSourceFetcher(sourcePath, sourceFetchTimeout, 0)
	return builder
}

// archivingBuilder archives the description of every node that built
// successfully. Archive problems are logged and never fail the node.
type archivingBuilder struct {
	Builder    ports.BuilderPort
	Archive    ports.ArchivePort
	InstallDir func(spec types.PackageSpec) string
	Clock      func() time.Time
}

func (b archivingBuilder) Build(ctx context.Context, target types.BuildTarget) error {
	clock := b.Clock
	if clock == nil {
		clock = time.Now
	}
	started := clock()
	if err := b.Builder.Build(ctx, target); err != nil {
		return err
	}
	finished := clock()
	stats := types.BuildStats{
		Module:    target.Module,
		BuiltAt:   adapters.FormatReportTime(finished),
		Duration:  finished.Sub(started),
		Easyblock: target.Easyblock,
	}
	if b.InstallDir != nil {
		stats.InstallDir = b.InstallDir(target.Spec)
	}
	if err := b.Archive.Archive(ctx, target, stats); err != nil {
		log.Ctx(ctx).Warn().
			Err(err).
			Str("module", target.Module).
			Msg("failed to archive description")
	}
	return nil
}

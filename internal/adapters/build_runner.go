package adapters

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"stackforge/internal/ports"
	"stackforge/internal/shared"
	"stackforge/internal/types"
)

const buildLogTailLines = 20

// ShellBuilder runs the planned steps of a node with "sh -c" inside a fresh
// per-node build directory and records the module file on success. Step
// output goes to <build dir>/build.log. When the sources unpack into a
// single directory the steps run inside it.
type ShellBuilder struct {
	BuildDir string
	Install  InstallTree
	Sources  ports.SourceFetcherPort
	Parallel int
	Shell    string
	Env      []string
}

func NewShellBuilder(buildDir string, install InstallTree, parallel int) ShellBuilder {
	if parallel < 1 {
		parallel = 1
	}
	return ShellBuilder{
		BuildDir: buildDir,
		Install:  install,
		Parallel: parallel,
		Shell:    "sh",
	}
}

func (b ShellBuilder) Build(ctx context.Context, target types.BuildTarget) error {
	if strings.TrimSpace(b.BuildDir) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("build directory is empty")
	}
	buildDir := filepath.Join(b.BuildDir, target.Spec.Name, target.Spec.FullVersion())
	if err := os.RemoveAll(buildDir); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to clean build directory").
			WithCause(err)
	}
	installDir := b.Install.SoftwareDir(target.Spec)
	for _, dir := range []string{buildDir, installDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("failed to create %s", dir)).
				WithCause(err)
		}
	}

	logFile, err := os.Create(filepath.Join(buildDir, "build.log"))
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create build log").
			WithCause(err)
	}
	defer logFile.Close()

	workDir := buildDir
	if b.Sources != nil && len(target.Sources) > 0 {
		if err := b.Sources.Fetch(ctx, target, buildDir); err != nil {
			return err
		}
		workDir = startDir(buildDir)
	}

	expand := strings.NewReplacer(
		"%(installdir)s", installDir,
		"%(builddir)s", buildDir,
		"%(parallel)s", strconv.Itoa(b.Parallel),
		"%(name)s", target.Spec.Name,
		"%(version)s", target.Spec.Version,
	)
	shell := b.Shell
	if shell == "" {
		shell = "sh"
	}
	for _, step := range target.Steps {
		command := expand.Replace(step.Command)
		log.Ctx(ctx).Debug().
			Str("module", target.Module).
			Str("step", step.Name).
			Str("command", command).
			Msg("running build step")
		fmt.Fprintf(logFile, "== %s: %s\n", step.Name, command)

		cmd := exec.CommandContext(ctx, shell, "-c", command)
		cmd.Dir = workDir
		cmd.Env = append(os.Environ(), b.Env...)
		cmd.Env = append(cmd.Env,
			"STACKFORGE_INSTALLDIR="+installDir,
			"STACKFORGE_BUILDDIR="+buildDir,
			"STACKFORGE_MODULE="+target.Module,
		)
		output, err := cmd.CombinedOutput()
		_, _ = logFile.Write(output)
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("%s step of %s failed", step.Name, target.Module)).
				WithCause(shared.CommandError(shared.TailLines(output, buildLogTailLines), err))
		}
	}
	return b.Install.MarkInstalled(target)
}

// startDir returns the single directory sources unpacked into, or dir.
func startDir(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return dir
	}
	var only string
	for _, entry := range entries {
		if entry.Name() == "build.log" {
			continue
		}
		if !entry.IsDir() || only != "" {
			return dir
		}
		only = entry.Name()
	}
	if only == "" {
		return dir
	}
	return filepath.Join(dir, only)
}

var _ ports.BuilderPort = ShellBuilder{}

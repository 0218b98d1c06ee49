package app

import (
	"time"

	"stackforge/internal/types"
)

// Selection describes which packages to work on and how to resolve them.
// It is shared by every command that resolves a dependency graph.
type Selection struct {
	Specs         []string
	Easystack     string
	RobotPaths    []string
	Toolchain     string
	Suffix        *string
	InstallPrefix string
	FilterDeps    []string
	Overrides     []string
	Force         bool
	Rebuild       bool
	RetainAllDeps bool
}

type ResolveRequest struct {
	Selection
	OutputDir string
	WriteDOT  bool
}

type ResolveResult struct {
	Roots     []string
	Order     []types.OrderEntry
	OutputDir string
}

type BuildRequest struct {
	Selection
	OutputDir   string
	BuildDir    string
	SourcePath  string
	ArchiveDir  string
	MetricsFile string
	Policy      string
	Jobs        int
	Parallel    int
}

type BuildResult struct {
	Roots     []string
	Result    types.RunResult
	OutputDir string
}

type DryRunRequest struct {
	Selection
	Short bool
}

type DryRunResult struct {
	Lines []string
}

type GraphRequest struct {
	Selection
}

type GraphResult struct {
	DOT   string
	Nodes int
	Edges int
}

type SearchRequest struct {
	RobotPaths []string
	Query      string
}

type SearchResult struct {
	Paths []string
}

type ValidateRequest struct {
	RobotPaths []string
}

type ValidateResult struct {
	Descriptions int
}

type InspectRequest struct {
	OutputDir string
}

type InspectResult struct {
	Order     []types.OrderEntry
	HasReport bool
	Report    types.RunReport
	Elapsed   time.Duration
	States    map[types.NodeState]int
}

type HistoryRequest struct {
	ArchiveDir string
	Name       string
}

type HistoryResult struct {
	Builds []types.ArchivedBuild
}

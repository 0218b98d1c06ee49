package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"stackforge/internal/adapters"
	"stackforge/internal/types"
)

// Inspect summarizes the build order and, when present, the run report of
// an output directory.
func (s Service) Inspect(req InspectRequest) (InspectResult, error) {
	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		return InspectResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output directory is required")
	}
	order, err := s.OutputReader.ReadBuildOrder(filepath.Join(outputDir, adapters.BuildOrderFile))
	if err != nil {
		return InspectResult{}, err
	}
	result := InspectResult{Order: order}

	reportPath := filepath.Join(outputDir, adapters.RunReportFile)
	if _, err := os.Stat(reportPath); err == nil {
		report, err := s.OutputReader.ReadRunReport(reportPath)
		if err != nil {
			return InspectResult{}, err
		}
		result.HasReport = true
		result.Report = report
		result.Elapsed = adapters.ReportElapsed(report)
		result.States = summarizeOutcomes(report.Outcomes)
		return result, nil
	}
	result.States = summarizeOrder(order)
	return result, nil
}

// History lists the archived descriptions of successful builds.
func (s Service) History(ctx context.Context, req HistoryRequest) (HistoryResult, error) {
	archiveDir := strings.TrimSpace(req.ArchiveDir)
	if archiveDir == "" {
		return HistoryResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("archive directory is required")
	}
	builds, err := adapters.NewDescriptionArchive(archiveDir).Archived(ctx, strings.TrimSpace(req.Name))
	if err != nil {
		return HistoryResult{}, err
	}
	return HistoryResult{Builds: builds}, nil
}

func summarizeOutcomes(outcomes []types.NodeOutcome) map[types.NodeState]int {
	states := map[types.NodeState]int{}
	for _, outcome := range outcomes {
		states[outcome.State]++
	}
	return states
}

func summarizeOrder(entries []types.OrderEntry) map[types.NodeState]int {
	states := map[types.NodeState]int{}
	for _, entry := range entries {
		states[entry.State]++
	}
	return states
}

func sortedKeys[K comparable, V any](input map[K]V) []K {
	keys := make([]K, 0, len(input))
	for key := range input {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
	})
	return keys
}

// StateCounts renders the state summary as "STATE=n" pairs in a stable
// order.
func (r InspectResult) StateCounts() []string {
	out := make([]string, 0, len(r.States))
	for _, state := range sortedKeys(r.States) {
		out = append(out, fmt.Sprintf("%s=%d", state, r.States[state]))
	}
	return out
}

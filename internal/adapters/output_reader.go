package adapters

import (
	"fmt"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"stackforge/internal/ports"
	"stackforge/internal/types"
)

type OutputReaderAdapter struct{}

func NewOutputReaderAdapter() OutputReaderAdapter {
	return OutputReaderAdapter{}
}

func (a OutputReaderAdapter) ReadBuildOrder(path string) ([]types.OrderEntry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("build.order not found").
			WithCause(err)
	}
	var entries []types.OrderEntry
	for i, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "\t", 5)
		if len(parts) != 5 || strings.TrimSpace(parts[0]) == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid build.order line %d", i+1))
		}
		easyblock := parts[2]
		if easyblock == "-" {
			easyblock = ""
		}
		switch parts[3] {
		case "root", "dep":
		default:
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid role %q on build.order line %d", parts[3], i+1))
		}
		entries = append(entries, types.OrderEntry{
			Module:    parts[0],
			State:     types.NodeState(parts[1]),
			Easyblock: easyblock,
			Root:      parts[3] == "root",
			Path:      parts[4],
		})
	}
	return entries, nil
}

func (a OutputReaderAdapter) ReadRunReport(path string) (types.RunReport, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return types.RunReport{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("run report not found").
			WithCause(err)
	}
	var report types.RunReport
	if err := yaml.Unmarshal(content, &report); err != nil {
		return types.RunReport{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse run report").
			WithCause(err)
	}
	if strings.TrimSpace(report.StartedAt) != "" && parseReportTime(report.StartedAt).IsZero() {
		return types.RunReport{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("run report has an invalid started_at: %s", report.StartedAt))
	}
	return report, nil
}

var _ ports.OutputReaderPort = OutputReaderAdapter{}

package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"stackforge/internal/ports"
	"stackforge/internal/types"
)

const (
	BuildOrderFile = "build.order"
	GraphDOTFile   = "dependencies.dot"
	RunReportFile  = "run-report.yaml"
)

const buildOrderHeader = "# module\tstate\teasyblock\trole\tpath"

type OutputFileAdapter struct {
	Dir string
}

func NewOutputFileAdapter(dir string) OutputFileAdapter {
	return OutputFileAdapter{Dir: dir}
}

// WriteBuildOrder writes one tab separated line per node, in build order.
func (a OutputFileAdapter) WriteBuildOrder(entries []types.OrderEntry) error {
	path, err := a.ensurePath(BuildOrderFile)
	if err != nil {
		return err
	}
	lines := []string{buildOrderHeader}
	for _, entry := range entries {
		role := "dep"
		if entry.Root {
			role = "root"
		}
		easyblock := entry.Easyblock
		if easyblock == "" {
			easyblock = "-"
		}
		lines = append(lines, strings.Join([]string{entry.Module, string(entry.State), easyblock, role, entry.Path}, "\t"))
	}
	return writeFile(path, strings.Join(lines, "\n")+"\n")
}

// WriteGraphDOT renders the graph in Graphviz format. Build edges are
// dashed and toolchain edges dotted; roots are boxes, installed nodes grey.
func (a OutputFileAdapter) WriteGraphDOT(graph types.GraphView) error {
	path, err := a.ensurePath(GraphDOTFile)
	if err != nil {
		return err
	}
	return writeFile(path, RenderDOT(graph))
}

func RenderDOT(graph types.GraphView) string {
	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	for _, node := range graph.Nodes {
		var attrs []string
		if node.Root {
			attrs = append(attrs, "shape=box")
		}
		if node.State == types.NodeStateSkipped {
			attrs = append(attrs, "color=gray")
		}
		if node.Hidden {
			attrs = append(attrs, "style=dashed")
		}
		if len(attrs) == 0 {
			fmt.Fprintf(&b, "  %q;\n", node.Module)
			continue
		}
		fmt.Fprintf(&b, "  %q [%s];\n", node.Module, strings.Join(attrs, ", "))
	}
	for _, edge := range graph.Edges {
		style := "solid"
		switch edge.Kind {
		case types.DependencyKindBuild:
			style = "dashed"
		case types.DependencyKindToolchain:
			style = "dotted"
		}
		fmt.Fprintf(&b, "  %q -> %q [style=%s];\n", edge.From, edge.To, style)
	}
	b.WriteString("}\n")
	return b.String()
}

func (a OutputFileAdapter) WriteRunReport(report types.RunReport) error {
	path, err := a.ensurePath(RunReportFile)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(report)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode run report").
			WithCause(err)
	}
	return writeFile(path, string(data))
}

func (a OutputFileAdapter) ensurePath(filename string) (string, error) {
	if a.Dir == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output directory is empty")
	}
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create output directory").
			WithCause(err)
	}
	return filepath.Join(a.Dir, filename), nil
}

func writeFile(path string, content string) error {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to write %s", path)).
			WithCause(err)
	}
	return nil
}

var _ ports.OutputPort = OutputFileAdapter{}

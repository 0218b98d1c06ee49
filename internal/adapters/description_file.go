package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"

	"stackforge/internal/types"
)

// hclDescriptionFile is the top-level shape of an HCL description.
type hclDescriptionFile struct {
	Package types.DescriptionFile `hcl:"package,block"`
}

// DescriptionFileAdapter reads package descriptions written as YAML
// (*.yaml, *.yml) or HCL (*.hcl).
type DescriptionFileAdapter struct{}

func NewDescriptionFileAdapter() DescriptionFileAdapter {
	return DescriptionFileAdapter{}
}

// IsDescriptionFile reports whether path has a description extension.
func IsDescriptionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".hcl":
		return true
	default:
		return false
	}
}

func (a DescriptionFileAdapter) Load(path string) (types.DescriptionFile, error) {
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		return a.loadHCL(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.DescriptionFile{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("description file not found: %s", path)).
			WithCause(err)
	}
	var desc types.DescriptionFile
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return types.DescriptionFile{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("failed to parse description yaml: %s", path)).
			WithCause(err)
	}
	return desc, nil
}

func (a DescriptionFileAdapter) loadHCL(path string) (types.DescriptionFile, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		code := errbuilder.CodeInvalidArgument
		if _, err := os.Stat(path); err != nil {
			code = errbuilder.CodeNotFound
		}
		return types.DescriptionFile{}, errbuilder.New().
			WithCode(code).
			WithMsg(fmt.Sprintf("failed to parse description hcl: %s", path)).
			WithCause(diags)
	}
	var parsed hclDescriptionFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return types.DescriptionFile{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("failed to decode description hcl: %s", path)).
			WithCause(diags)
	}
	return parsed.Package, nil
}

// LoadEasystack reads a YAML list of descriptions to install together.
func (a DescriptionFileAdapter) LoadEasystack(path string) (types.Easystack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Easystack{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("easystack file not found: %s", path)).
			WithCause(err)
	}
	var stack types.Easystack
	if err := yaml.Unmarshal(data, &stack); err != nil {
		return types.Easystack{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("failed to parse easystack yaml: %s", path)).
			WithCause(err)
	}
	if len(stack.Easyconfigs) == 0 {
		return types.Easystack{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("easystack lists no easyconfigs: %s", path))
	}
	return stack, nil
}

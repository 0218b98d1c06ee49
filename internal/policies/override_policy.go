package policies

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"stackforge/internal/types"
)

const (
	ActionForce   = "force"
	ActionRelax   = "relax"
	ActionReplace = "replace"
	ActionBlock   = "block"
)

// Override rewrites every declaration of one dependency name.
type Override struct {
	Name   string `yaml:"name" mapstructure:"name"`
	Action string `yaml:"action" mapstructure:"action"`
	Value  string `yaml:"value,omitempty" mapstructure:"value"`
}

// ParseOverride reads the flag form "name=action[:value]", for example
// "zlib=force:1.3.0" or "OpenSSL=block".
func ParseOverride(raw string) (Override, error) {
	name, rest, ok := strings.Cut(strings.TrimSpace(raw), "=")
	if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(rest) == "" {
		return Override{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid override %q, expected name=action[:value]", raw))
	}
	action, value, _ := strings.Cut(rest, ":")
	override := Override{
		Name:   strings.TrimSpace(name),
		Action: strings.ToLower(strings.TrimSpace(action)),
		Value:  strings.TrimSpace(value),
	}
	if err := override.validate(); err != nil {
		return Override{}, err
	}
	return override, nil
}

// String renders the override in the form ParseOverride reads.
func (o Override) String() string {
	if o.Value == "" {
		return o.Name + "=" + o.Action
	}
	return o.Name + "=" + o.Action + ":" + o.Value
}

func (o Override) validate() error {
	switch strings.ToLower(o.Action) {
	case ActionForce, ActionReplace:
		if o.Value == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("%s override for %s requires a value", o.Action, o.Name))
		}
	case ActionRelax, ActionBlock:
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown override action: %s", o.Action))
	}
	return nil
}

// ApplyOverride rewrites a declaration:
//
//	force    pins the version to Value
//	relax    accepts any version
//	replace  swaps the name for Value and accepts any version
//	block    rejects the declaration
func ApplyOverride(parent types.PackageSpec, decl types.DependencyDecl, override Override) (types.DependencyDecl, error) {
	switch strings.ToLower(override.Action) {
	case ActionForce:
		if override.Value == "" {
			return types.DependencyDecl{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("force override requires value")
		}
		decl.Spec.Version = override.Value
		return decl, nil
	case ActionRelax:
		decl.Spec.Version = ""
		return decl, nil
	case ActionReplace:
		if override.Value == "" {
			return types.DependencyDecl{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("replace override requires value")
		}
		decl.Spec.Name = override.Value
		decl.Spec.Version = ""
		return decl, nil
	case ActionBlock:
		return types.DependencyDecl{}, errbuilder.New().
			WithCode(errbuilder.CodePermissionDenied).
			WithMsg(fmt.Sprintf("dependency %s of %s blocked by override", decl.Spec.Name, parent.ModuleName()))
	default:
		return types.DependencyDecl{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown override action: %s", override.Action))
	}
}

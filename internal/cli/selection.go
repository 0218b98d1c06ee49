package cli

import (
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stackforge/internal/app"
	"stackforge/internal/policies"
)

// selectionOptions are the flags shared by every command that resolves a
// dependency graph. Positional arguments are package specs.
type selectionOptions struct {
	Easystack     string
	RobotPaths    []string
	Toolchain     string
	Suffix        string
	InstallPrefix string
	FilterDeps    []string
	Overrides     []string
	Force         bool
	Rebuild       bool
	RetainAllDeps bool
}

func addSelectionFlags(cmd *cobra.Command, opts *selectionOptions) {
	cmd.Flags().StringVar(&opts.Easystack, "easystack", "", "Easystack file listing the packages to process")
	cmd.Flags().StringSliceVar(&opts.RobotPaths, "robot-path", nil, "Directories searched for package descriptions, in priority order")
	cmd.Flags().StringVar(&opts.Toolchain, "toolchain", "", "Toolchain (name/version) for specs that do not name one")
	cmd.Flags().StringVar(&opts.Suffix, "suffix", "", "Version suffix for specs that do not name one")
	cmd.Flags().StringVar(&opts.InstallPrefix, "install-prefix", "", "Installation prefix checked for installed packages")
	cmd.Flags().StringSliceVar(&opts.FilterDeps, "filter-deps", nil, "Dependency patterns to drop (name, prefix*, kind:name)")
	cmd.Flags().StringSliceVar(&opts.Overrides, "override", nil, "Dependency overrides (name=force:version, name=relax, name=replace:other, name=block)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Build the requested packages even when installed")
	cmd.Flags().BoolVar(&opts.Rebuild, "rebuild", false, "Rebuild the requested packages even when installed")
	cmd.Flags().BoolVar(&opts.RetainAllDeps, "retain-all-deps", false, "Expand the full closure, ignoring installed packages")

	_ = viper.BindPFlag("easystack", cmd.Flags().Lookup("easystack"))
	_ = viper.BindPFlag("robot_paths", cmd.Flags().Lookup("robot-path"))
	_ = viper.BindPFlag("toolchain", cmd.Flags().Lookup("toolchain"))
	_ = viper.BindPFlag("suffix", cmd.Flags().Lookup("suffix"))
	_ = viper.BindPFlag("install_prefix", cmd.Flags().Lookup("install-prefix"))
	_ = viper.BindPFlag("filter_deps", cmd.Flags().Lookup("filter-deps"))
	_ = viper.BindPFlag("overrides", cmd.Flags().Lookup("override"))
	_ = viper.BindPFlag("force", cmd.Flags().Lookup("force"))
	_ = viper.BindPFlag("rebuild", cmd.Flags().Lookup("rebuild"))
	_ = viper.BindPFlag("retain_all_deps", cmd.Flags().Lookup("retain-all-deps"))
}

func resolveSelection(cmd *cobra.Command, args []string, opts selectionOptions) (app.Selection, error) {
	sel := app.Selection{
		Specs:         args,
		Easystack:     resolveString(cmd, opts.Easystack, "easystack", "easystack"),
		RobotPaths:    resolveStrings(cmd, opts.RobotPaths, "robot_paths", "robot-path"),
		Toolchain:     resolveString(cmd, opts.Toolchain, "toolchain", "toolchain"),
		InstallPrefix: resolveString(cmd, opts.InstallPrefix, "install_prefix", "install-prefix"),
		FilterDeps:    resolveStrings(cmd, opts.FilterDeps, "filter_deps", "filter-deps"),
		Overrides:     resolveStrings(cmd, opts.Overrides, "overrides", "override"),
		Force:         resolveBool(cmd, opts.Force, "force", "force"),
		Rebuild:       resolveBool(cmd, opts.Rebuild, "rebuild", "rebuild"),
		RetainAllDeps: resolveBool(cmd, opts.RetainAllDeps, "retain_all_deps", "retain-all-deps"),
	}
	// An empty suffix is a valid request, so only an explicit value counts.
	if flagChanged(cmd, "suffix") || viper.IsSet("suffix") {
		suffix := resolveString(cmd, opts.Suffix, "suffix", "suffix")
		sel.Suffix = &suffix
	}

	// Overrides may also be written as objects in the config file.
	var structured []policies.Override
	if err := viper.UnmarshalKey("dependency_overrides", &structured); err != nil {
		return app.Selection{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid dependency_overrides in config").
			WithCause(err)
	}
	for _, override := range structured {
		sel.Overrides = append(sel.Overrides, override.String())
	}
	return sel, nil
}

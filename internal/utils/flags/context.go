package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// DefaultRootFlagName exposes the shared scan root flag name.
	DefaultRootFlagName = "root"
	// DefaultRootFlagUsage describes the shared scan root flag purpose.
	DefaultRootFlagUsage = "Directories to scan (repeatable)"
	// DefaultIgnoreFlagName exposes the shared ignore flag name.
	DefaultIgnoreFlagName = "ignore"
	// DefaultIgnoreFlagShorthand provides the shorthand for the ignore flag.
	DefaultIgnoreFlagShorthand = "i"
	// DefaultIgnoreFlagUsage describes the shared ignore flag purpose.
	DefaultIgnoreFlagUsage = "Directories excluded from traversal (repeatable)"
)

// PathListFlagDefinition captures configuration for a repeatable path flag.
type PathListFlagDefinition struct {
	Name       string
	Shorthand  string
	Usage      string
	Enabled    bool
	Persistent bool
}

// PathListFlagValues stores the paths collected by a repeatable path flag.
type PathListFlagValues struct {
	Paths []string
}

// RootFlagDefinition captures configuration for scan root flags.
type RootFlagDefinition = PathListFlagDefinition

// RootFlagValues stores scan root flag values.
type RootFlagValues struct {
	Roots []string
}

// BindRootFlags attaches the scan root flag to the provided command.
func BindRootFlags(command *cobra.Command, defaults RootFlagValues, definition RootFlagDefinition) *RootFlagValues {
	if len(definition.Name) == 0 {
		definition.Name = DefaultRootFlagName
	}
	if len(definition.Usage) == 0 {
		definition.Usage = DefaultRootFlagUsage
	}

	values := RootFlagValues{Roots: append([]string{}, defaults.Roots...)}
	bindPathList(command, &values.Roots, definition)
	return &values
}

// BindIgnoreFlags attaches the ignore flag to the provided command.
func BindIgnoreFlags(command *cobra.Command, defaults PathListFlagValues, definition PathListFlagDefinition) *PathListFlagValues {
	if len(definition.Name) == 0 {
		definition.Name = DefaultIgnoreFlagName
		if len(definition.Shorthand) == 0 {
			definition.Shorthand = DefaultIgnoreFlagShorthand
		}
	}
	if len(definition.Usage) == 0 {
		definition.Usage = DefaultIgnoreFlagUsage
	}

	values := PathListFlagValues{Paths: append([]string{}, defaults.Paths...)}
	bindPathList(command, &values.Paths, definition)
	return &values
}

func bindPathList(command *cobra.Command, target *[]string, definition PathListFlagDefinition) {
	if command == nil || !definition.Enabled {
		return
	}

	targetSet := command.Flags()
	if definition.Persistent {
		targetSet = command.PersistentFlags()
	}
	if targetSet.Lookup(definition.Name) != nil {
		return
	}

	// StringArray keeps commas inside a path intact; each occurrence adds one path.
	targetSet.StringArrayVarP(target, definition.Name, definition.Shorthand, *target, definition.Usage)

	if definition.Persistent && command.Flags().Lookup(definition.Name) == nil {
		if persistentFlag := targetSet.Lookup(definition.Name); persistentFlag != nil {
			command.Flags().AddFlag(persistentFlag)
		}
	}
}

// FlagChanged reports whether the named flag was set on the command or any of its parents.
func FlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.Flags(),
		command.PersistentFlags(),
		command.InheritedFlags(),
	}
	if rootCommand := command.Root(); rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet != nil && flagSet.Changed(flagName) {
			return true
		}
	}
	return false
}

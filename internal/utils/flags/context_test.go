package flags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestBindRootFlagsUsesDefaultsAndParsesValues(t *testing.T) {
	command := &cobra.Command{}

	values := BindRootFlags(command, RootFlagValues{Roots: []string{"/tmp/default"}}, RootFlagDefinition{Enabled: true})

	require.NotNil(t, values)
	require.Equal(t, []string{"/tmp/default"}, values.Roots)

	parseError := command.ParseFlags([]string{"--" + DefaultRootFlagName, "/workspace", "--" + DefaultRootFlagName, "/projects"})
	require.NoError(t, parseError)
	require.Equal(t, []string{"/workspace", "/projects"}, values.Roots)
}

func TestBindIgnoreFlagsKeepsCommasInsidePaths(t *testing.T) {
	command := &cobra.Command{}

	values := BindIgnoreFlags(command, PathListFlagValues{}, PathListFlagDefinition{Enabled: true})

	parseError := command.ParseFlags([]string{"-" + DefaultIgnoreFlagShorthand, "/srv/a,b", "--" + DefaultIgnoreFlagName, "/srv/cache"})
	require.NoError(t, parseError)
	require.Equal(t, []string{"/srv/a,b", "/srv/cache"}, values.Paths)
}

func TestBindPathListSkipsDisabledDefinitions(t *testing.T) {
	command := &cobra.Command{}

	values := BindIgnoreFlags(command, PathListFlagValues{Paths: []string{"/srv/cache"}}, PathListFlagDefinition{Enabled: false})

	require.Equal(t, []string{"/srv/cache"}, values.Paths)
	require.Nil(t, command.Flags().Lookup(DefaultIgnoreFlagName))
}

func TestFlagChangedInspectsParentPersistentFlags(t *testing.T) {
	rootCommand := &cobra.Command{Use: "root"}
	var logLevel string
	rootCommand.PersistentFlags().StringVar(&logLevel, "log-level", "", "level")

	childCommand := &cobra.Command{Use: "child", RunE: func(*cobra.Command, []string) error { return nil }}
	rootCommand.AddCommand(childCommand)
	rootCommand.SetArgs([]string{"child", "--log-level", "debug"})

	require.NoError(t, rootCommand.Execute())
	require.True(t, FlagChanged(childCommand, "log-level"))
	require.False(t, FlagChanged(childCommand, "config"))
}

package scan

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gitdirty/internal/execshell"
	"github.com/temirov/gitdirty/internal/repos/dependencies"
	"github.com/temirov/gitdirty/internal/repos/shared"
	"github.com/temirov/gitdirty/internal/ui"
	"github.com/temirov/gitdirty/internal/utils"
	"github.com/temirov/gitdirty/internal/utils/flags"
)

const (
	commandUseConstant              = "scan [root ...]"
	commandShortDescriptionConstant = "Report repositories with uncommitted or unstaged changes"
	commandLongDescriptionConstant  = "scan walks each root directory, finds git repositories below it and prints one line for every repository whose working tree has modified, staged or untracked files. Directories passed with --ignore are pruned from the walk together with everything beneath them."
	workersFlagNameConstant         = "workers"
	workersFlagUsageConstant        = "Number of concurrent status queries"
	statusTimeoutFlagNameConstant   = "status-timeout"
	statusTimeoutFlagUsageConstant  = "Maximum duration of a single status query (0 disables the limit)"
	failOnDirtyFlagNameConstant     = "fail-on-dirty"
	failOnDirtyFlagUsageConstant    = "Exit with status 2 when a dirty repository is found"
	gitExecutableFlagNameConstant   = "git-executable"
	gitExecutableFlagUsageConstant  = "Path or name of the git executable"
	rootFlagUsageConstant           = "Directory to scan (repeatable, combined with positional roots)"
	ignoreFlagUsageConstant         = "Directory pruned from traversal together with its subtree (repeatable)"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the scan configuration loaded from file, environment and defaults.
type ConfigurationProvider func() CommandConfiguration

// HumanReadableLoggingProvider reports whether diagnostics are rendered for a console.
type HumanReadableLoggingProvider func() bool

// CommandBuilder assembles the scan cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        ConfigurationProvider
	HumanReadableLoggingProvider HumanReadableLoggingProvider
	Discoverer                   shared.RepositoryDiscoverer
	GitExecutor                  shared.GitExecutor
	GitManager                   shared.GitRepositoryManager
	FileSystem                   shared.FileSystem
	CommandEventsObserver        execshell.CommandEventObserver
}

// Build constructs the scan command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	flags.BindRootFlags(command, flags.RootFlagValues{}, flags.RootFlagDefinition{Usage: rootFlagUsageConstant, Enabled: true})
	flags.BindIgnoreFlags(command, flags.PathListFlagValues{}, flags.PathListFlagDefinition{Usage: ignoreFlagUsageConstant, Enabled: true})
	command.Flags().Int(workersFlagNameConstant, defaults.Workers, workersFlagUsageConstant)
	command.Flags().Duration(statusTimeoutFlagNameConstant, defaults.StatusTimeout, statusTimeoutFlagUsageConstant)
	flags.AddToggleFlag(command.Flags(), nil, failOnDirtyFlagNameConstant, "", defaults.FailOnDirty, failOnDirtyFlagUsageConstant)
	command.Flags().String(gitExecutableFlagNameConstant, defaults.GitExecutable, gitExecutableFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	options := builder.parseOptions(command, arguments, configuration)
	gitExecutable := configuration.GitExecutable
	if flags.FlagChanged(command, gitExecutableFlagNameConstant) {
		gitExecutable, _ = command.Flags().GetString(gitExecutableFlagNameConstant)
	}

	logger := builder.resolveLogger()
	gitExecutor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger, dependencies.GitExecutorOptions{
		GitExecutable: gitExecutable,
		Observer:      builder.resolveCommandEventsObserver(logger),
	})
	if executorError != nil {
		return executorError
	}

	gitManager, managerError := dependencies.ResolveGitRepositoryManager(builder.GitManager, gitExecutor)
	if managerError != nil {
		return managerError
	}

	reporter := shared.NewWriterReporter(utils.NewFlushingWriter(command.OutOrStdout()))
	service, serviceError := NewService(logger, builder.Discoverer, gitManager, builder.FileSystem, reporter)
	if serviceError != nil {
		return serviceError
	}

	_, runError := service.Run(command.Context(), options)
	return runError
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string, configuration CommandConfiguration) Options {
	options := Options{
		Roots:         configuration.Roots,
		Ignore:        configuration.Ignore,
		Workers:       configuration.Workers,
		StatusTimeout: configuration.StatusTimeout,
		FailOnDirty:   configuration.FailOnDirty,
	}

	explicitRoots := append([]string{}, arguments...)
	if flags.FlagChanged(command, flags.DefaultRootFlagName) {
		flagRoots, _ := command.Flags().GetStringArray(flags.DefaultRootFlagName)
		explicitRoots = append(explicitRoots, flagRoots...)
	}
	if len(sanitizePathList(explicitRoots)) > 0 {
		options.Roots = sanitizePathList(explicitRoots)
	}

	if flags.FlagChanged(command, flags.DefaultIgnoreFlagName) {
		ignoredPaths, _ := command.Flags().GetStringArray(flags.DefaultIgnoreFlagName)
		options.Ignore = sanitizePathList(ignoredPaths)
	}

	if flags.FlagChanged(command, workersFlagNameConstant) {
		options.Workers, _ = command.Flags().GetInt(workersFlagNameConstant)
	}
	if flags.FlagChanged(command, statusTimeoutFlagNameConstant) {
		options.StatusTimeout, _ = command.Flags().GetDuration(statusTimeoutFlagNameConstant)
	}
	if flags.FlagChanged(command, failOnDirtyFlagNameConstant) {
		options.FailOnDirty, _ = command.Flags().GetBool(failOnDirtyFlagNameConstant)
	}

	if options.Workers < 1 {
		options.Workers = 1
	}
	if options.StatusTimeout < 0 {
		options.StatusTimeout = time.Duration(0)
	}

	return options
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration().sanitize()
	}
	return builder.ConfigurationProvider().sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func (builder *CommandBuilder) resolveCommandEventsObserver(logger *zap.Logger) execshell.CommandEventObserver {
	if builder.CommandEventsObserver != nil {
		return builder.CommandEventsObserver
	}
	if builder.HumanReadableLoggingProvider != nil && builder.HumanReadableLoggingProvider() {
		return ui.NewConsoleCommandEventLogger(logger)
	}
	return nil
}

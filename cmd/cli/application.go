package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gitdirty/internal/configinit"
	"github.com/temirov/gitdirty/internal/scan"
	"github.com/temirov/gitdirty/internal/utils"
	"github.com/temirov/gitdirty/internal/utils/flags"
)

const (
	applicationNameConstant                  = "gitdirty"
	applicationShortDescriptionConstant      = "Find git repositories with uncommitted or unstaged changes"
	applicationLongDescriptionConstant       = "gitdirty walks directory trees, finds git repositories and reports every repository whose working tree differs from its last commit. Use it to audit a drive for unsaved work before a backup, wipe or migration."
	versionTemplateConstant                  = "{{.Name}} version {{.Version}}\n"
	configFileFlagNameConstant               = "config"
	configFileFlagUsageConstant              = "Path to a configuration file (YAML)"
	logLevelFlagNameConstant                 = "log-level"
	logLevelFlagUsageConstant                = "Override the configured log level"
	logFormatFlagNameConstant                = "log-format"
	logFormatFlagUsageConstant               = "Override the configured log format"
	logFileFlagNameConstant                  = "log-file"
	logFileFlagUsageConstant                 = "Also write structured diagnostics to this rotating log file"
	commonConfigurationKeyConstant           = "common"
	commonLogLevelConfigKeyConstant          = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant         = commonConfigurationKeyConstant + ".log_format"
	commonLogFileConfigKeyConstant           = commonConfigurationKeyConstant + ".log_file"
	scanConfigurationKeyConstant             = "scan"
	environmentPrefixConstant                = "GITDIRTY"
	configurationNameConstant                = "config"
	configurationTypeConstant                = "yaml"
	userConfigurationDirectoryNameConstant   = "gitdirty"
	defaultConfigurationSearchPathConstant   = "."
	skipConfigurationFilesAnnotationConstant = "gitdirty.skip-configuration-files"
	configurationInitializedMessageConstant  = "configuration initialized"
	configurationLogLevelFieldConstant       = "log_level"
	configurationLogFormatFieldConstant      = "log_format"
	configurationLogFileFieldConstant        = "log_file"
	configurationFileFieldConstant           = "config_file"
	configurationLoadErrorTemplateConstant   = "unable to load configuration: %w"
	invalidFlagValueErrorTemplateConstant    = "invalid --%s value: %w"
	loggerCreationErrorTemplateConstant      = "unable to create logger: %w"
	loggerCloseErrorTemplateConstant         = "unable to flush logger: %w"
	developmentVersionConstant               = "dev"
	buildInfoDevelopmentVersionConstant      = "(devel)"
)

// Exit codes returned by the gitdirty process.
const (
	ExitCodeSuccess           = 0
	ExitCodeFailure           = 1
	ExitCodeDirtyRepositories = 2
)

var (
	logLevelChoices = []string{
		string(utils.LogLevelDebug),
		string(utils.LogLevelInfo),
		string(utils.LogLevelWarn),
		string(utils.LogLevelError),
	}
	logFormatChoices = []string{
		string(utils.LogFormatAuto),
		string(utils.LogFormatStructured),
		string(utils.LogFormatConsole),
	}
)

// Version is reported by --version. Release builds set it with -ldflags "-X".
var Version string

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Scan   scan.CommandConfiguration      `mapstructure:"scan"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	scanBuilder            *scan.CommandBuilder
	initBuilder            *configinit.CommandBuilder
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	loggerOutputs          utils.LoggerOutputs
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	logFileFlagValue       string
	commandContextAccessor utils.CommandContextAccessor
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	application := &Application{
		configurationLoader:    newConfigurationLoader(defaultConfigurationSearchPaths()),
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Version:       resolveVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}
	cobraCommand.SetVersionTemplate(versionTemplateConstant)

	defaultLogging := defaultCommonConfiguration()
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", flags.FormatChoiceUsage(defaultLogging.LogLevel, logLevelChoices, logLevelFlagUsageConstant))
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", flags.FormatChoiceUsage(defaultLogging.LogFormat, logFormatChoices, logFormatFlagUsageConstant))
	cobraCommand.PersistentFlags().StringVar(&application.logFileFlagValue, logFileFlagNameConstant, "", logFileFlagUsageConstant)

	application.scanBuilder = &scan.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() scan.CommandConfiguration {
			return application.configuration.Scan
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
	}
	scanCommand, scanBuildError := application.scanBuilder.Build()
	if scanBuildError == nil {
		cobraCommand.AddCommand(scanCommand)
	}

	application.initBuilder = &configinit.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ContentProvider: func() []byte {
			content, _ := EmbeddedDefaultConfiguration()
			return content
		},
	}
	initCommand, initBuildError := application.initBuilder.Build()
	if initBuildError == nil {
		initCommand.Annotations = map[string]string{skipConfigurationFilesAnnotationConstant: "true"}
		cobraCommand.AddCommand(initCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the command hierarchy with the process arguments.
func (application *Application) Execute() error {
	return application.ExecuteWithArguments(os.Args[1:])
}

// ExecuteWithArguments runs the command hierarchy with the provided arguments, cancels the run on
// SIGINT or SIGTERM, and flushes the logger afterwards.
func (application *Application) ExecuteWithArguments(arguments []string) error {
	signalContext, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	application.rootCommand.SetArgs(flags.NormalizeToggleArguments(arguments))
	executionError := application.rootCommand.ExecuteContext(signalContext)

	if closeError := application.loggerOutputs.Close(); closeError != nil && executionError == nil {
		return fmt.Errorf(loggerCloseErrorTemplateConstant, closeError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

// ExitCodeForError maps the result of Execute to a process exit code.
func ExitCodeForError(executionError error) int {
	switch {
	case executionError == nil:
		return ExitCodeSuccess
	case errors.Is(executionError, scan.ErrDirtyRepositoriesFound):
		return ExitCodeDirtyRepositories
	default:
		return ExitCodeFailure
	}
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultLogging := defaultCommonConfiguration()
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  defaultLogging.LogLevel,
		commonLogFormatConfigKeyConstant: defaultLogging.LogFormat,
		commonLogFileConfigKeyConstant:   defaultLogging.LogFile,
	}
	for configurationKey, configurationValue := range scan.DefaultConfigurationValues(scanConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	configurationLoader := application.configurationLoader
	configurationFilePath := application.configurationFilePath
	if skipsConfigurationFiles(command) {
		configurationLoader = newConfigurationLoader(nil)
		configurationFilePath = ""
	}

	application.configuration = ApplicationConfiguration{}
	loadedConfiguration, loadError := configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration

	if flags.FlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if flags.FlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}
	if flags.FlagChanged(command, logFileFlagNameConstant) {
		application.configuration.Common.LogFile = application.logFileFlagValue
	}

	if normalizeError := application.normalizeCommonConfiguration(); normalizeError != nil {
		return normalizeError
	}

	loggerOutputs, loggerCreationError := application.loggerFactory.CreateLoggerOutputs(utils.LoggerConfiguration{
		Level:    utils.LogLevel(application.configuration.Common.LogLevel),
		Format:   utils.LogFormat(application.configuration.Common.LogFormat),
		FilePath: application.configuration.Common.LogFile,
	})
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.loggerOutputs = loggerOutputs
	application.logger = loggerOutputs.DiagnosticLogger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, string(loggerOutputs.Format)),
		zap.String(configurationLogFileFieldConstant, application.configuration.Common.LogFile),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationSource(command.Context(), utils.ConfigurationSource{
			RequestedPath: application.configurationFilePath,
			LoadedPath:    application.configurationMetadata.ConfigFileUsed,
		})
		command.SetContext(updatedContext)
	}

	return nil
}

func (application *Application) normalizeCommonConfiguration() error {
	defaultLogging := defaultCommonConfiguration()

	logLevel, logLevelError := flags.MatchChoice(application.configuration.Common.LogLevel, logLevelChoices)
	if logLevelError != nil {
		return fmt.Errorf(invalidFlagValueErrorTemplateConstant, logLevelFlagNameConstant, logLevelError)
	}
	if len(logLevel) == 0 {
		logLevel = defaultLogging.LogLevel
	}

	logFormat, logFormatError := flags.MatchChoice(application.configuration.Common.LogFormat, logFormatChoices)
	if logFormatError != nil {
		return fmt.Errorf(invalidFlagValueErrorTemplateConstant, logFormatFlagNameConstant, logFormatError)
	}
	if len(logFormat) == 0 {
		logFormat = defaultLogging.LogFormat
	}

	application.configuration.Common.LogLevel = logLevel
	application.configuration.Common.LogFormat = logFormat
	application.configuration.Common.LogFile = strings.TrimSpace(application.configuration.Common.LogFile)
	return nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	return application.loggerOutputs.HumanReadable()
}

func defaultCommonConfiguration() ApplicationCommonConfiguration {
	return ApplicationCommonConfiguration{
		LogLevel:  string(utils.LogLevelInfo),
		LogFormat: string(utils.LogFormatAuto),
	}
}

func newConfigurationLoader(searchPaths []string) *utils.ConfigurationLoader {
	configurationLoader := utils.NewConfigurationLoader(configurationNameConstant, configurationTypeConstant, environmentPrefixConstant, searchPaths)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())
	return configurationLoader
}

func defaultConfigurationSearchPaths() []string {
	searchPaths := []string{defaultConfigurationSearchPathConstant}
	if userConfigurationDirectory, directoryError := os.UserConfigDir(); directoryError == nil {
		searchPaths = append(searchPaths, filepath.Join(userConfigurationDirectory, userConfigurationDirectoryNameConstant))
	}
	return searchPaths
}

func skipsConfigurationFiles(command *cobra.Command) bool {
	if command == nil {
		return false
	}
	_, skip := command.Annotations[skipConfigurationFilesAnnotationConstant]
	return skip
}

func resolveVersion() string {
	if len(strings.TrimSpace(Version)) > 0 {
		return strings.TrimSpace(Version)
	}
	if buildInfo, available := debug.ReadBuildInfo(); available {
		moduleVersion := strings.TrimSpace(buildInfo.Main.Version)
		if len(moduleVersion) > 0 && moduleVersion != buildInfoDevelopmentVersionConstant {
			return moduleVersion
		}
	}
	return developmentVersionConstant
}

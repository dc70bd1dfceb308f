package configinit

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gitdirty/internal/repos/shared"
	"github.com/temirov/gitdirty/internal/utils"
	"github.com/temirov/gitdirty/internal/utils/flags"
)

const (
	commandUseConstant                  = "init"
	commandShortDescriptionConstant     = "Write a starter configuration file"
	commandLongDescriptionConstant      = "init writes the default configuration to the path given with --config, or to ./config.yaml. An existing file is kept unless --force is set."
	forceFlagNameConstant               = "force"
	forceFlagUsageConstant              = "Overwrite an existing configuration file"
	writtenLineTemplateConstant         = "Wrote configuration to %s\n"
	unexpectedArgumentsTemplateConstant = "init does not accept positional arguments: %v"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ContentProvider returns the configuration document to write.
type ContentProvider func() []byte

// CommandBuilder assembles the init cobra command.
type CommandBuilder struct {
	LoggerProvider  LoggerProvider
	ContentProvider ContentProvider
	FileSystem      shared.FileSystem
}

// Build constructs the init command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	flags.AddToggleFlag(command.Flags(), nil, forceFlagNameConstant, "", false, forceFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf(unexpectedArgumentsTemplateConstant, arguments)
	}

	forceValue, _ := command.Flags().GetBool(forceFlagNameConstant)
	configurationSource, _ := utils.NewCommandContextAccessor().ConfigurationSource(command.Context())

	service := NewService(builder.resolveLogger(), builder.FileSystem)
	writtenPath, runError := service.Run(command.Context(), Options{
		TargetPath: configurationSource.RequestedPath,
		Content:    builder.resolveContent(),
		Force:      forceValue,
	})
	if runError != nil {
		return runError
	}

	fmt.Fprintf(command.OutOrStdout(), writtenLineTemplateConstant, writtenPath)
	return nil
}

func (builder *CommandBuilder) resolveContent() []byte {
	if builder.ContentProvider == nil {
		return nil
	}
	return builder.ContentProvider()
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

package utils

import "context"

type commandContextKey string

const configurationSourceContextKeyConstant = commandContextKey("configurationSource")

// ConfigurationSource records where the configuration of a command run came from.
type ConfigurationSource struct {
	// RequestedPath is the path passed with --config, blank when none was given.
	RequestedPath string
	// LoadedPath is the configuration file that was read, blank when only defaults applied.
	LoadedPath string
}

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationSource attaches the configuration source to the provided context.
func (accessor CommandContextAccessor) WithConfigurationSource(parentContext context.Context, source ConfigurationSource) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationSourceContextKeyConstant, source)
}

// ConfigurationSource extracts the configuration source from the provided context.
func (accessor CommandContextAccessor) ConfigurationSource(executionContext context.Context) (ConfigurationSource, bool) {
	if executionContext == nil {
		return ConfigurationSource{}, false
	}
	source, available := executionContext.Value(configurationSourceContextKeyConstant).(ConfigurationSource)
	return source, available
}

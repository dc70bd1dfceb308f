package scan

import (
	"strings"
	"time"
)

const (
	defaultRootPathConstant       = "."
	defaultWorkerCountConstant    = 1
	defaultGitExecutableConstant  = "git"
	rootsConfigurationKey         = "roots"
	ignoreConfigurationKey        = "ignore"
	workersConfigurationKey       = "workers"
	statusTimeoutConfigurationKey = "status_timeout"
	failOnDirtyConfigurationKey   = "fail_on_dirty"
	gitExecutableConfigurationKey = "git_executable"
	configurationKeySeparator     = "."
)

// CommandConfiguration captures persistent settings for the scan command.
type CommandConfiguration struct {
	Roots         []string      `mapstructure:"roots"`
	Ignore        []string      `mapstructure:"ignore"`
	Workers       int           `mapstructure:"workers"`
	StatusTimeout time.Duration `mapstructure:"status_timeout"`
	FailOnDirty   bool          `mapstructure:"fail_on_dirty"`
	GitExecutable string        `mapstructure:"git_executable"`
}

// DefaultCommandConfiguration returns baseline configuration values for the scan command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Roots:         []string{defaultRootPathConstant},
		Ignore:        nil,
		Workers:       defaultWorkerCountConstant,
		StatusTimeout: 0,
		FailOnDirty:   false,
		GitExecutable: defaultGitExecutableConstant,
	}
}

// DefaultConfigurationValues returns Viper defaults for the scan configuration stored under prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		prefixedKey(prefix, rootsConfigurationKey):         defaults.Roots,
		prefixedKey(prefix, ignoreConfigurationKey):        []string{},
		prefixedKey(prefix, workersConfigurationKey):       defaults.Workers,
		prefixedKey(prefix, statusTimeoutConfigurationKey): defaults.StatusTimeout.String(),
		prefixedKey(prefix, failOnDirtyConfigurationKey):   defaults.FailOnDirty,
		prefixedKey(prefix, gitExecutableConfigurationKey): defaults.GitExecutable,
	}
}

// sanitize trims configuration values and clamps numeric settings to usable ranges.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration

	sanitized.Roots = sanitizePathList(configuration.Roots)
	sanitized.Ignore = sanitizePathList(configuration.Ignore)
	if sanitized.Workers < 1 {
		sanitized.Workers = defaultWorkerCountConstant
	}
	if sanitized.StatusTimeout < 0 {
		sanitized.StatusTimeout = 0
	}
	sanitized.GitExecutable = strings.TrimSpace(configuration.GitExecutable)

	return sanitized
}

func sanitizePathList(raw []string) []string {
	sanitized := make([]string, 0, len(raw))
	for _, candidate := range raw {
		trimmed := strings.TrimSpace(candidate)
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	return sanitized
}

func prefixedKey(prefix string, key string) string {
	trimmedPrefix := strings.Trim(strings.TrimSpace(prefix), configurationKeySeparator)
	if len(trimmedPrefix) == 0 {
		return key
	}
	return trimmedPrefix + configurationKeySeparator + key
}

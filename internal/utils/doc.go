// Package utils exposes helpers shared by the gitdirty commands.
//
// ConfigurationLoader layers embedded defaults, a YAML file and GITDIRTY_ environment variables
// through Viper. LoggerFactory builds the zap diagnostic logger, optionally teed into a rotating
// log file. FlushingWriter and CommandContextAccessor support command output and context plumbing.
package utils

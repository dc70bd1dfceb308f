// Package cli builds the gitdirty command-line interface. It wires the Cobra command tree, layers
// embedded defaults, configuration files, environment variables and flags through Viper, and
// creates the zap diagnostic logger shared by every command.
package cli

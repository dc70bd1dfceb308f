package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logLevelDebugStringConstant          = "debug"
	logLevelInfoStringConstant           = "info"
	logLevelWarnStringConstant           = "warn"
	logLevelErrorStringConstant          = "error"
	logFormatAutoStringConstant          = "auto"
	logFormatStructuredStringConstant    = "structured"
	logFormatConsoleStringConstant       = "console"
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
	logFileCloseErrorTemplateConstant    = "unable to close log file: %w"
	logTimestampKeyConstant              = "ts"
	logMessageKeyConstant                = "msg"
	logLevelKeyConstant                  = "level"
	logCallerKeyConstant                 = "caller"
	logFileMaxSizeMegabytesConstant      = 10
	logFileMaxBackupsConstant            = 3
	logFileMaxAgeDaysConstant            = 28
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Exported log level constants for reuse across packages.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Exported log format constants for reuse across packages. LogFormatAuto resolves to
// LogFormatConsole when the diagnostic stream is a terminal and LogFormatStructured otherwise.
const (
	LogFormatAuto       LogFormat = LogFormat(logFormatAutoStringConstant)
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
)

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// LoggerConfiguration describes the logger requested by the command-line layer.
type LoggerConfiguration struct {
	Level    LogLevel
	Format   LogFormat
	FilePath string
}

// LoggerOutputs bundles the diagnostic logger with the format it was resolved to.
type LoggerOutputs struct {
	DiagnosticLogger *zap.Logger
	Format           LogFormat
	logFile          io.Closer
}

// HumanReadable reports whether the diagnostic logger renders console output.
func (outputs LoggerOutputs) HumanReadable() bool {
	return outputs.Format == LogFormatConsole
}

// Close flushes the diagnostic logger and releases the rotating log file when present.
func (outputs LoggerOutputs) Close() error {
	var closeErrors []error
	if outputs.DiagnosticLogger != nil {
		if syncError := SyncLogger(outputs.DiagnosticLogger); syncError != nil {
			closeErrors = append(closeErrors, syncError)
		}
	}
	if outputs.logFile != nil {
		if closeError := outputs.logFile.Close(); closeError != nil {
			closeErrors = append(closeErrors, fmt.Errorf(logFileCloseErrorTemplateConstant, closeError))
		}
	}
	return errors.Join(closeErrors...)
}

// TerminalDetector reports whether the diagnostic destination is attached to a terminal.
type TerminalDetector func() bool

// LoggerFactory builds zap.Logger instances with consistent configuration.
type LoggerFactory struct {
	destination      zapcore.WriteSyncer
	terminalDetector TerminalDetector
}

// NewLoggerFactory constructs a logger factory writing diagnostics to standard error.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{
		destination: zapcore.Lock(os.Stderr),
		terminalDetector: func() bool {
			return term.IsTerminal(int(os.Stderr.Fd()))
		},
	}
}

// NewLoggerFactoryWithDestination constructs a logger factory writing diagnostics to the provided writer.
func NewLoggerFactoryWithDestination(destination io.Writer, terminalDetector TerminalDetector) *LoggerFactory {
	if terminalDetector == nil {
		terminalDetector = func() bool { return false }
	}
	return &LoggerFactory{
		destination:      zapcore.Lock(zapcore.AddSync(destination)),
		terminalDetector: terminalDetector,
	}
}

// ResolveLogFormat validates the requested format and resolves LogFormatAuto.
func (factory *LoggerFactory) ResolveLogFormat(requestedLogFormat LogFormat) (LogFormat, error) {
	normalizedFormat := LogFormat(strings.ToLower(strings.TrimSpace(string(requestedLogFormat))))
	switch normalizedFormat {
	case LogFormatStructured, LogFormatConsole:
		return normalizedFormat, nil
	case LogFormatAuto, "":
		if factory.terminalDetector != nil && factory.terminalDetector() {
			return LogFormatConsole, nil
		}
		return LogFormatStructured, nil
	default:
		return "", fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}
}

// CreateLogger produces a zap.Logger honoring the requested log level and format.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	loggerOutputs, creationError := factory.CreateLoggerOutputs(LoggerConfiguration{Level: requestedLogLevel, Format: requestedLogFormat})
	if creationError != nil {
		return nil, creationError
	}
	return loggerOutputs.DiagnosticLogger, nil
}

// CreateLoggerOutputs produces the diagnostic logger and, when a file path is configured,
// tees structured entries into a size-rotated log file.
func (factory *LoggerFactory) CreateLoggerOutputs(configuration LoggerConfiguration) (LoggerOutputs, error) {
	normalizedLevel := LogLevel(strings.ToLower(strings.TrimSpace(string(configuration.Level))))
	zapLogLevel, levelExists := logLevelMapping[normalizedLevel]
	if !levelExists {
		return LoggerOutputs{}, fmt.Errorf(unsupportedLogLevelTemplateConstant, configuration.Level)
	}

	resolvedFormat, formatError := factory.ResolveLogFormat(configuration.Format)
	if formatError != nil {
		return LoggerOutputs{}, formatError
	}

	levelEnabler := zap.NewAtomicLevelAt(zapLogLevel)
	cores := []zapcore.Core{
		zapcore.NewCore(buildEncoder(resolvedFormat), factory.destination, levelEnabler),
	}

	var logFile *lumberjack.Logger
	trimmedFilePath := strings.TrimSpace(configuration.FilePath)
	if len(trimmedFilePath) > 0 {
		logFile = &lumberjack.Logger{
			Filename:   trimmedFilePath,
			MaxSize:    logFileMaxSizeMegabytesConstant,
			MaxBackups: logFileMaxBackupsConstant,
			MaxAge:     logFileMaxAgeDaysConstant,
		}
		cores = append(cores, zapcore.NewCore(buildEncoder(LogFormatStructured), zapcore.AddSync(logFile), levelEnabler))
	}

	loggerOutputs := LoggerOutputs{
		DiagnosticLogger: zap.New(zapcore.NewTee(cores...)),
		Format:           resolvedFormat,
	}
	if logFile != nil {
		loggerOutputs.logFile = logFile
	}
	return loggerOutputs, nil
}

// SyncLogger flushes the logger, ignoring errors reported by unsyncable destinations such as terminals.
func SyncLogger(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}

func buildEncoder(format LogFormat) zapcore.Encoder {
	if format == LogFormatConsole {
		encoderConfiguration := zap.NewDevelopmentEncoderConfig()
		encoderConfiguration.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		encoderConfiguration.CallerKey = zapcore.OmitKey
		return zapcore.NewConsoleEncoder(encoderConfiguration)
	}

	encoderConfiguration := zap.NewProductionEncoderConfig()
	encoderConfiguration.TimeKey = logTimestampKeyConstant
	encoderConfiguration.MessageKey = logMessageKeyConstant
	encoderConfiguration.LevelKey = logLevelKeyConstant
	encoderConfiguration.CallerKey = logCallerKeyConstant
	encoderConfiguration.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(encoderConfiguration)
}

package configinit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/gitdirty/internal/repos/dependencies"
	"github.com/temirov/gitdirty/internal/repos/shared"
)

const (
	// DefaultTargetPathConstant names the file written when no explicit path is supplied.
	DefaultTargetPathConstant = "config.yaml"

	configurationDirectoryPermissionsConstant = fs.FileMode(0o755)
	configurationFilePermissionsConstant      = fs.FileMode(0o644)
	emptyContentMessageConstant               = "configuration content is empty"
	invalidContentTemplateConstant            = "configuration content is not valid YAML: %w"
	missingSectionTemplateConstant            = "configuration content is missing the %q section"
	resolvePathErrorTemplateConstant          = "unable to resolve configuration path %s: %w"
	inspectPathErrorTemplateConstant          = "unable to inspect configuration path %s: %w"
	createDirectoryErrorTemplateConstant      = "unable to create configuration directory %s: %w"
	writeFileErrorTemplateConstant            = "unable to write configuration file %s: %w"
	fileExistsMessageConstant                 = "configuration file already exists"
	fileExistsTemplateConstant                = "%s: %s (use --force to overwrite)"
	targetIsDirectoryTemplateConstant         = "configuration path %s is a directory"
	configurationWrittenMessageConstant       = "Configuration written"
	logFieldPathConstant                      = "path"
	logFieldOverwrittenConstant               = "overwritten"
)

// ErrConfigurationExists indicates the target file exists and overwriting was not requested.
var ErrConfigurationExists = errors.New(fileExistsMessageConstant)

// ErrEmptyConfiguration indicates no configuration content was supplied.
var ErrEmptyConfiguration = errors.New(emptyContentMessageConstant)

// RequiredSections lists the top-level keys a starter configuration must define.
var RequiredSections = []string{"common", "scan"}

// ExistingFileError reports a refusal to overwrite an existing configuration file.
type ExistingFileError struct {
	Path string
}

func (existingFileError ExistingFileError) Error() string {
	return fmt.Sprintf(fileExistsTemplateConstant, fileExistsMessageConstant, existingFileError.Path)
}

// Unwrap returns ErrConfigurationExists.
func (existingFileError ExistingFileError) Unwrap() error {
	return ErrConfigurationExists
}

// Options describe a configuration file to write.
type Options struct {
	TargetPath string
	Content    []byte
	Force      bool
}

// Service writes validated configuration content to disk.
type Service struct {
	logger     *zap.Logger
	fileSystem shared.FileSystem
}

// NewService constructs a Service. A nil filesystem falls back to the OS-backed default.
func NewService(logger *zap.Logger, fileSystem shared.FileSystem) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger, fileSystem: dependencies.ResolveFileSystem(fileSystem)}
}

// Run validates the content and writes it to the target path, returning the absolute path written.
func (service *Service) Run(executionContext context.Context, options Options) (string, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return "", contextError
	}
	if validationError := ValidateContent(options.Content); validationError != nil {
		return "", validationError
	}

	targetPath := strings.TrimSpace(options.TargetPath)
	if len(targetPath) == 0 {
		targetPath = DefaultTargetPathConstant
	}
	absolutePath, absoluteError := service.fileSystem.Abs(targetPath)
	if absoluteError != nil {
		return "", fmt.Errorf(resolvePathErrorTemplateConstant, targetPath, absoluteError)
	}

	overwritten := false
	existingInfo, statError := service.fileSystem.Stat(absolutePath)
	switch {
	case statError == nil && existingInfo.IsDir():
		return "", fmt.Errorf(targetIsDirectoryTemplateConstant, absolutePath)
	case statError == nil && !options.Force:
		return "", ExistingFileError{Path: absolutePath}
	case statError == nil:
		overwritten = true
	case !errors.Is(statError, fs.ErrNotExist):
		return "", fmt.Errorf(inspectPathErrorTemplateConstant, absolutePath, statError)
	}

	parentDirectory := filepath.Dir(absolutePath)
	if mkdirError := service.fileSystem.MkdirAll(parentDirectory, configurationDirectoryPermissionsConstant); mkdirError != nil {
		return "", fmt.Errorf(createDirectoryErrorTemplateConstant, parentDirectory, mkdirError)
	}
	if writeError := service.fileSystem.WriteFile(absolutePath, options.Content, configurationFilePermissionsConstant); writeError != nil {
		return "", fmt.Errorf(writeFileErrorTemplateConstant, absolutePath, writeError)
	}

	service.logger.Info(configurationWrittenMessageConstant, zap.String(logFieldPathConstant, absolutePath), zap.Bool(logFieldOverwrittenConstant, overwritten))
	return absolutePath, nil
}

// ValidateContent checks that content is a YAML mapping defining every required section.
func ValidateContent(content []byte) error {
	if len(strings.TrimSpace(string(content))) == 0 {
		return ErrEmptyConfiguration
	}

	var document map[string]any
	if decodeError := yaml.Unmarshal(content, &document); decodeError != nil {
		return fmt.Errorf(invalidContentTemplateConstant, decodeError)
	}
	for _, section := range RequiredSections {
		if _, present := document[section]; !present {
			return fmt.Errorf(missingSectionTemplateConstant, section)
		}
	}
	return nil
}

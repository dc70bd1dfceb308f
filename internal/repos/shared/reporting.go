package shared

import (
	"fmt"
	"io"
	"os"
	"sync"
)

const dirtyRepositoryLineTemplateConstant = "Uncommitted or unstaged changes found in %s\n"

// Reporter emits findings to an underlying sink.
type Reporter interface {
	Printf(format string, args ...any)
}

type writerReporter struct {
	writer io.Writer
	mutex  *sync.Mutex
}

// NewWriterReporter constructs a Reporter that writes to the provided io.Writer. Writes are serialized.
func NewWriterReporter(writer io.Writer) Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return writerReporter{writer: writer, mutex: &sync.Mutex{}}
}

func (reporter writerReporter) Printf(format string, args ...any) {
	if reporter.writer == nil || reporter.writer == io.Discard {
		return
	}
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	fmt.Fprintf(reporter.writer, format, args...)
}

// ReportDirtyRepository writes the finding line for a dirty repository.
func ReportDirtyRepository(reporter Reporter, repositoryPath string) {
	if reporter == nil {
		return
	}
	reporter.Printf(dirtyRepositoryLineTemplateConstant, repositoryPath)
}

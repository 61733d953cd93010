// Package clipboard places rendered release reports on the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

const writeReportFailedFormat = "write report to clipboard: %w"

// ErrEmptyReport is returned when there is nothing to copy.
var ErrEmptyReport = errors.New("report is empty")

// Copier copies a rendered report.
type Copier interface {
	Copy(text string) error
}

// WriteFunc writes text to a clipboard.
type WriteFunc func(text string) error

// Service copies reports with github.com/atotto/clipboard unless another writer is supplied.
type Service struct {
	write WriteFunc
}

// NewService returns a Service backed by the system clipboard.
func NewService() *Service {
	return NewServiceWithWriter(clipboard.WriteAll)
}

// NewServiceWithWriter returns a Service that hands reports to write.
func NewServiceWithWriter(write WriteFunc) *Service {
	if write == nil {
		write = clipboard.WriteAll
	}
	return &Service{write: write}
}

// Copy writes a non-empty report to the clipboard.
func (service *Service) Copy(text string) error {
	if len(text) == 0 {
		return ErrEmptyReport
	}
	if writeError := service.write(text); writeError != nil {
		return fmt.Errorf(writeReportFailedFormat, writeError)
	}
	return nil
}

var _ Copier = (*Service)(nil)

package scanning

import (
	"context"
	"fmt"
)

// Scanner defines the interface for reading betting slips with a vision model
type Scanner interface {
	// ExtractText sends the slip image to the model and returns its raw answer
	ExtractText(ctx context.Context, imageData []byte, contentType string) (string, error)
	// Close closes the scanner and releases resources
	Close() error
}

// Failure wraps any error raised while invoking the model. Callers decide
// whether to retry; scanners never do.
type Failure struct {
	Provider string
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s ocr failed: %v", f.Provider, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

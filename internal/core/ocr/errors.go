package ocr

import (
	"errors"
	"fmt"
)

// ErrExtraction matches every *ExtractionError via errors.Is.
var ErrExtraction = errors.New("text extraction failed")

// ExtractionError reports that the recognition or PDF text capability failed.
// The original cause is kept for errors.As / errors.Unwrap.
type ExtractionError struct {
	ContentType string
	Cause       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("text extraction failed (%s): %v", e.ContentType, e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

func newExtractionError(contentType string, cause error) error {
	return &ExtractionError{ContentType: contentType, Cause: cause}
}

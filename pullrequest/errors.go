package pullrequest

import (
	"errors"
	"fmt"
)

// ErrInvalidRecord matches every *InvalidRecordError via errors.Is.
var ErrInvalidRecord = errors.New("invalid pull request record")

// InvalidRecordError reports a single API record that failed validation.
// It never aborts a fetch; the record is dropped and reported as a warning.
type InvalidRecordError struct {
	Index  int
	Number int
	Err    error
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("record %d (number %d): %v", e.Index, e.Number, e.Err)
}

func (e *InvalidRecordError) Unwrap() error { return e.Err }

func (e *InvalidRecordError) Is(target error) bool { return target == ErrInvalidRecord }

// HTTPError is returned when the API answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// FormatError is returned for a non-JSON content type or a body that is not
// a JSON array.
type FormatError struct {
	ContentType string
	Err         error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unexpected response format (content type %q): %v", e.ContentType, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// NetworkError wraps transport failures such as DNS or connection errors.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

package inference

import (
	"errors"
	"fmt"
)

// ErrDecode is returned by the normalizer when the upload is not a decodable image.
var ErrDecode = errors.New("image could not be decoded")

type Kind string

const (
	KindNoFileProvided      Kind = "NoFileProvided"
	KindPreprocessingFailed Kind = "PreprocessingFailed"
	KindInferenceFailed     Kind = "InferenceFailed"
)

// Error is the terminal failure of a single prediction request. Err carries the
// internal cause and is only meant for logs.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the taxonomy kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}

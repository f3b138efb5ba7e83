package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig         = errors.New("invalid configuration")
	ErrCorpusLoad            = errors.New("corpus load failed")
	ErrIndexBuild            = errors.New("index build failed")
	ErrEmbedding             = errors.New("embedding provider error")
	ErrMalformedInput        = errors.New("malformed input")
	ErrClassifierUnavailable = errors.New("safety classifier unavailable")
	ErrTimeout               = errors.New("operation timed out")
	ErrInternal              = errors.New("internal error")
)

// AppError attaches the pipeline stage that produced an error.
type AppError struct {
	Err     error
	Stage   string
	Message string
}

func (e *AppError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Err.Error(), e.Stage, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, stage string, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Stage:   stage,
		Message: message,
	}
}

func Newf(sentinel error, stage string, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
	}
}

// Stage returns the stage recorded on err, or "" when err carries none.
func Stage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Stage
	}
	return ""
}

// ExitCode maps a fatal run error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidConfig):
		return 2
	case errors.Is(err, ErrCorpusLoad):
		return 3
	case errors.Is(err, ErrIndexBuild), errors.Is(err, ErrEmbedding):
		return 4
	case errors.Is(err, ErrTimeout):
		return 5
	default:
		return 1
	}
}

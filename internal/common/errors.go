package common

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Pipeline errors
var (
	ErrUnsupportedFormat       = errors.New("unsupported document format")
	ErrExtractionFailed        = errors.New("text extraction failed")
	ErrInvalidSchemeDefinition = errors.New("invalid scheme definition")
	ErrIncompleteClaim         = errors.New("claim record incomplete")
	ErrFileTooLarge            = errors.New("file exceeds size limit")
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDatabase     = errors.New("database error")
)

// Error codes carried by AppError.
const (
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeExtractionFailed  = "EXTRACTION_FAILED"
	CodeInvalidScheme     = "INVALID_SCHEME"
	CodeIncompleteClaim   = "INCOMPLETE_CLAIM"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeConfig            = "CONFIG_ERROR"
	CodeDatabase          = "DATABASE_ERROR"
	CodeFileTooLarge      = "FILE_TOO_LARGE"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// GRPCCode maps a pipeline error onto a gRPC status code.
func GRPCCode(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrNotFound):
		return codes.NotFound
	case errors.Is(err, ErrUnsupportedFormat),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrFileTooLarge),
		errors.Is(err, ErrInvalidSchemeDefinition):
		return codes.InvalidArgument
	case errors.Is(err, ErrExtractionFailed), errors.Is(err, ErrIncompleteClaim):
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

// ToStatus converts err into a gRPC status error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(GRPCCode(err), err.Error())
}

// ErrorCode returns the code of the first AppError in err's chain, or "".
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HTTPStatus maps a pipeline error onto an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidSchemeDefinition):
		return http.StatusBadRequest
	case errors.Is(err, ErrExtractionFailed), errors.Is(err, ErrIncompleteClaim):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

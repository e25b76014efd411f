// Package qrerr defines the error kinds surfaced by the QR rendering core and
// their mapping onto user-facing messages, stable codes and HTTP statuses.
package qrerr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Kind sentinels. Match them with errors.Is.
var (
	ErrImageLoadFailed  = errors.New("image load failed")
	ErrEncodingFailed   = errors.New("encoding failed")
	ErrExportFailed     = errors.New("export failed")
	ErrValidationFailed = errors.New("validation failed")
)

const (
	CodeImageLoadFailed  = "IMAGE_LOAD_FAILED"
	CodeEncodingFailed   = "ENCODING_FAILED"
	CodeExportFailed     = "EXPORT_FAILED"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInternal         = "INTERNAL_ERROR"
)

// Error is a classified failure. Message is safe to show to the user; Err is
// the underlying cause and is only meant for logs.
type Error struct {
	Kind    error
	Message string
	Err     error
}

// New returns a classified error.
func New(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error() + ": " + e.Message
	}
	return e.Kind.Error() + ": " + e.Message + ": " + e.Err.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ImageLoad wraps cause as ErrImageLoadFailed.
func ImageLoad(message string, cause error) error {
	return New(ErrImageLoadFailed, message, cause)
}

// Encoding wraps cause as ErrEncodingFailed.
func Encoding(message string, cause error) error {
	return New(ErrEncodingFailed, message, cause)
}

// Export wraps cause as ErrExportFailed.
func Export(message string, cause error) error {
	return New(ErrExportFailed, message, cause)
}

// Validation wraps cause as ErrValidationFailed.
func Validation(message string, cause error) error {
	return New(ErrValidationFailed, message, cause)
}

// Message returns the user-facing message carried by err, or a generic one.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Something went wrong. Please try again."
}

// Code maps err onto a stable error code.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrImageLoadFailed):
		return CodeImageLoadFailed
	case errors.Is(err, ErrEncodingFailed):
		return CodeEncodingFailed
	case errors.Is(err, ErrExportFailed):
		return CodeExportFailed
	case errors.Is(err, ErrValidationFailed):
		return CodeValidationFailed
	default:
		return CodeInternal
	}
}

// Status maps err onto an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, ErrEncodingFailed), errors.Is(err, ErrExportFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrImageLoadFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Response is the JSON error envelope written by the HTTP host.
type Response struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// NewResponse builds the envelope for err.
func NewResponse(err error) (int, Response) {
	status := Status(err)
	return status, Response{
		Error:   http.StatusText(status),
		Message: Message(err),
		Code:    Code(err),
	}
}

// WriteError writes the envelope for err to w.
func WriteError(w http.ResponseWriter, err error) {
	status, body := NewResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

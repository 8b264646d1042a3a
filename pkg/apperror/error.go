package apperror

import (
	"errors"
	"net/http"
)

// Kind groups failures by how the UI surfaces them.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindValidation Kind = "validation"
	KindIdentity   Kind = "identity"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

type AppError struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kindForCode(code),
		Message: message,
		Err:     err,
	}
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, message, nil)
}

func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, message, nil)
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, message, nil)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, message, nil)
}

func Internal(err error) *AppError {
	return New(http.StatusInternalServerError, "Internal Server Error", err)
}

// Upstream reports a failed call to the jobs API: a non-2xx status or a transport error.
// status is 0 for transport errors.
func Upstream(status int, message string, err error) *AppError {
	code := http.StatusBadGateway
	if status == http.StatusNotFound {
		code = http.StatusNotFound
	}
	return &AppError{Code: code, Kind: KindNetwork, Message: message, Err: err}
}

// Validation reports input rejected before any network call.
func Validation(message string, err error) *AppError {
	return &AppError{Code: http.StatusUnprocessableEntity, Kind: KindValidation, Message: message, Err: err}
}

// Identity reports a failure returned by the identity provider.
func Identity(code int, message string, err error) *AppError {
	return &AppError{Code: code, Kind: KindIdentity, Message: message, Err: err}
}

// KindOf returns the Kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// StatusOf returns the HTTP status carried by err, defaulting to 500.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

func kindForCode(code int) Kind {
	switch {
	case code == http.StatusNotFound:
		return KindNotFound
	case code == http.StatusUnprocessableEntity, code == http.StatusBadRequest:
		return KindValidation
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return KindIdentity
	default:
		return KindInternal
	}
}

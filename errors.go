package pylon

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies a handler-raised error so the Dispatcher can translate
// it into a transport-appropriate response without the handler knowing
// anything about HTTP status codes.
type ErrorKind uint8

// Error kinds; httpStatus maps each to its HTTP status.
const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindNotAuthenticated
	KindNotAuthorized
	KindNotAvailable
	KindValidation
	KindCancelled
	KindTimeout
	KindProtocol
	KindOverloaded
	KindPayloadTooLarge
)

// String returns the kind's lower_snake name, used in error-response bodies.
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindNotAuthenticated:
		return "not_authenticated"
	case KindNotAuthorized:
		return "not_authorized"
	case KindNotAvailable:
		return "not_available"
	case KindValidation:
		return "validation_error"
	case KindCancelled:
		return "cancelled"
	case KindTimeout:
		return "timeout"
	case KindProtocol:
		return "protocol_error"
	case KindOverloaded:
		return "overloaded"
	case KindPayloadTooLarge:
		return "payload_too_large"
	default:
		return "internal"
	}
}

// httpStatus is the fixed kind-to-status mapping table from §4.6/§7.
func (k ErrorKind) httpStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindNotAuthenticated:
		return http.StatusUnauthorized
	case KindNotAuthorized:
		return http.StatusForbidden
	case KindNotAvailable:
		return http.StatusServiceUnavailable
	case KindValidation:
		return http.StatusBadRequest
	case KindCancelled:
		return 499
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindProtocol:
		return http.StatusBadRequest
	case KindOverloaded:
		return http.StatusTooManyRequests
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Error is the error type every pylon handler is expected to return instead
// of a bare error, so the kind survives middleware translation intact.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// NewError builds an *Error of the given kind with a message.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind wrapping an underlying cause.
func Wrap(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Message: cause.Error(), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Status returns the HTTP status this error translates to.
func (e *Error) Status() int { return e.Kind.httpStatus() }

// AsError coerces any error into a *Error, defaulting unrecognized errors to
// KindInternal the way air's DefaultErrorHandler falls back to 500.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*Error); ok {
		return pe
	}
	return &Error{Kind: KindInternal, Message: err.Error(), Cause: err}
}

var (
	ErrNotFound         = NewError(KindNotFound, "resource not found")
	ErrNotAuthenticated = NewError(KindNotAuthenticated, "authentication required")
	ErrNotAuthorized    = NewError(KindNotAuthorized, "not authorized")
	ErrOverloaded       = NewError(KindOverloaded, "execution subsystem overloaded")
	ErrBodyTooLarge     = NewError(KindPayloadTooLarge, "request body exceeds configured limit")
)

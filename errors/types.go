package errors

import "net/http"

// Constructors for the status codes the auth service produces.

func BadRequest(format string, args ...any) *Error {
	return New(http.StatusBadRequest, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return New(http.StatusUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(http.StatusForbidden, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(http.StatusConflict, format, args...)
}

func TooManyRequests(format string, args ...any) *Error {
	return New(http.StatusTooManyRequests, format, args...)
}

func Internal(format string, args ...any) *Error {
	return New(http.StatusInternalServerError, format, args...)
}

func ServiceUnavailable(format string, args ...any) *Error {
	return New(http.StatusServiceUnavailable, format, args...)
}

// Configuration reports a deployment misconfiguration (missing secret,
// missing frontend URL). It always maps to a 500-class response and carries
// the "configuration" reason so it can be told apart from other internal
// errors in logs.
func Configuration(format string, args ...any) *Error {
	return New(http.StatusInternalServerError, format, args...).
		WithMetadata(map[string]string{"reason": ReasonConfiguration})
}

const ReasonConfiguration = "configuration"

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	var e *Error
	if !As(err, &e) {
		return false
	}
	return e.Metadata["reason"] == ReasonConfiguration
}

package oidc

import (
	"fmt"
	"net/http"
)

// ErrorCode is an OAuth2/OIDC protocol error code.
type ErrorCode string

const (
	ErrorCodeInvalidRequest          ErrorCode = "invalid_request"
	ErrorCodeInvalidClient           ErrorCode = "invalid_client"
	ErrorCodeInvalidGrant            ErrorCode = "invalid_grant"
	ErrorCodeInvalidScope            ErrorCode = "invalid_scope"
	ErrorCodeUnauthorizedClient      ErrorCode = "unauthorized_client"
	ErrorCodeUnsupportedGrantType    ErrorCode = "unsupported_grant_type"
	ErrorCodeUnsupportedResponseType ErrorCode = "unsupported_response_type"
	ErrorCodeAccessDenied            ErrorCode = "access_denied"
	ErrorCodeServerError             ErrorCode = "server_error"
)

// ErrorObject carries an OAuth2 protocol error across layers: the wire error
// code, a human-readable description, and the HTTP status to use when the
// error is rendered as a direct (non-redirect) response.
type ErrorObject struct {
	Code        ErrorCode
	Description string
	StatusCode  int
}

func (e *ErrorObject) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WithDescription returns a copy of the error with a new description.
func (e *ErrorObject) WithDescription(format string, args ...any) *ErrorObject {
	return &ErrorObject{Code: e.Code, Description: fmt.Sprintf(format, args...), StatusCode: e.StatusCode}
}

func newErrorObject(code ErrorCode, status int, format string, args ...any) *ErrorObject {
	return &ErrorObject{Code: code, Description: fmt.Sprintf(format, args...), StatusCode: status}
}

func ErrInvalidRequest(format string, args ...any) *ErrorObject {
	return newErrorObject(ErrorCodeInvalidRequest, http.StatusBadRequest, format, args...)
}

func ErrInvalidClient(format string, args ...any) *ErrorObject {
	return newErrorObject(ErrorCodeInvalidClient, http.StatusUnauthorized, format, args...)
}

func ErrInvalidGrant(format string, args ...any) *ErrorObject {
	return newErrorObject(ErrorCodeInvalidGrant, http.StatusBadRequest, format, args...)
}

func ErrInvalidScope(format string, args ...any) *ErrorObject {
	return newErrorObject(ErrorCodeInvalidScope, http.StatusBadRequest, format, args...)
}

func ErrUnauthorizedClient(format string, args ...any) *ErrorObject {
	return newErrorObject(ErrorCodeUnauthorizedClient, http.StatusBadRequest, format, args...)
}

func ErrUnsupportedGrantType(format string, args ...any) *ErrorObject {
	return newErrorObject(ErrorCodeUnsupportedGrantType, http.StatusBadRequest, format, args...)
}

func ErrUnsupportedResponseType(format string, args ...any) *ErrorObject {
	return newErrorObject(ErrorCodeUnsupportedResponseType, http.StatusBadRequest, format, args...)
}

func ErrAccessDenied(format string, args ...any) *ErrorObject {
	return newErrorObject(ErrorCodeAccessDenied, http.StatusForbidden, format, args...)
}

func ErrServerError(format string, args ...any) *ErrorObject {
	return newErrorObject(ErrorCodeServerError, http.StatusInternalServerError, format, args...)
}

// ParseErrorCode validates an error code received on the wire (e.g. in a
// relayed error response).
func ParseErrorCode(s string) (ErrorCode, error) {
	switch ErrorCode(s) {
	case ErrorCodeInvalidRequest, ErrorCodeInvalidClient, ErrorCodeInvalidGrant,
		ErrorCodeInvalidScope, ErrorCodeUnauthorizedClient, ErrorCodeUnsupportedGrantType,
		ErrorCodeUnsupportedResponseType, ErrorCodeAccessDenied, ErrorCodeServerError:
		return ErrorCode(s), nil
	}
	return "", fmt.Errorf("unrecognized error code %q", s)
}

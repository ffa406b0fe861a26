package oauthmodel

import "fmt"

// OAuth 2.0 error codes from RFC 6749 §5.2 surfaced by this service.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidClient  = "invalid_client"
	ErrorCodeAccessDenied   = "access_denied"
	ErrorCodeServerError    = "server_error"
)

// Error is a protocol-level OAuth 2.0 error. Depending on where it surfaces
// it is rendered as redirect query parameters, an inline error page, or a
// JSON token-endpoint body; the JSON tags match the wire format directly.
type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// InvalidRequest builds an invalid_request error.
func InvalidRequest(description string) *Error {
	return &Error{Code: ErrorCodeInvalidRequest, Description: description}
}

// InvalidClient builds an invalid_client error.
func InvalidClient(description string) *Error {
	return &Error{Code: ErrorCodeInvalidClient, Description: description}
}

// AccessDenied is the error returned to the client when the user declines
// consent.
func AccessDenied() *Error {
	return &Error{Code: ErrorCodeAccessDenied, Description: "the user denied the request"}
}

package authz

// AuthorizationRequest holds the query parameters of one inbound
// authorization request. It lives for a single request/response cycle and is
// never persisted; on the consent POST leg the same fields travel back
// through hidden form inputs.
type AuthorizationRequest struct {
	// ResponseType must be "code"; this service implements only the
	// authorization code flow.
	ResponseType string

	// ClientID must match the statically configured client.
	ClientID string

	// RedirectURI is where codes and errors are delivered. It is validated
	// against the allow-list before anything is ever sent to it.
	RedirectURI string

	// Scope is the requested permission string, shown verbatim on the
	// consent page and echoed into issued tokens. Not enforced beyond that.
	Scope string

	// State is the client's opaque CSRF value, echoed back unchanged on
	// every redirect when present.
	State string

	// CodeChallenge is the PKCE challenge: BASE64URL(SHA256(code_verifier)).
	// Required; codes are never issued without a challenge to bind to.
	CodeChallenge string

	// CodeChallengeMethod must be "S256" when present.
	CodeChallengeMethod string
}

package oauthmodel

// ResponseType represents the OAuth 2.0 response type requested at the
// authorization endpoint.
type ResponseType string

// CodeResponseType is the authorization code flow, the only flow this
// service supports.
const CodeResponseType ResponseType = "code"

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges a single-use authorization code for an
	// access/refresh token pair.
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a valid refresh token for a new access
	// token without re-prompting the user.
	RefreshTokenGrant GrantType = "refresh_token"
)

// CodeChallengeMethodS256 is the only PKCE challenge method this service
// accepts: code_challenge = BASE64URL(SHA256(code_verifier)).
const CodeChallengeMethodS256 = "S256"

package oauthmodel

// TokenRequest holds the parameters of one POST to the token endpoint. The
// endpoint accepts either a form-encoded or a JSON body; the JSON tags cover
// the latter and double as the canonical parameter names.
type TokenRequest struct {
	GrantType    GrantType `json:"grant_type"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret,omitempty"`

	// Authorization code grant.
	Code         string `json:"code,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	CodeVerifier string `json:"code_verifier,omitempty"`

	// Refresh token grant.
	RefreshToken string `json:"refresh_token,omitempty"`
}

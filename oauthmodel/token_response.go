package oauthmodel

// TokenResponse is the successful token-endpoint body. The plaintext tokens
// appear here exactly once; only their hashes are ever stored.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

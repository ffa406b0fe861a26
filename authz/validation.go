package authz

import (
	"strings"

	"github.com/pollverse/connect/clients"
	"github.com/pollverse/connect/oauthmodel"
)

// Validator checks inbound authorization requests against the protocol and
// the configured client. It holds no state and is safe to call repeatedly.
type Validator struct {
	registry *clients.Registry
}

func NewValidator(registry *clients.Registry) *Validator {
	return &Validator{registry: registry}
}

// Validate applies the checks in a fixed order and returns the first
// failure. The redirect URI is validated before anything else could be
// delivered to it: an unvalidated target must never receive even an error.
func (v *Validator) Validate(req *AuthorizationRequest) *oauthmodel.Error {
	if req.ResponseType != string(oauthmodel.CodeResponseType) {
		return oauthmodel.InvalidRequest("response_type must be 'code'")
	}
	if req.ClientID != v.registry.Resolve().ID {
		return oauthmodel.InvalidRequest("invalid client_id")
	}
	if strings.TrimSpace(req.RedirectURI) == "" || !v.registry.IsAllowedRedirect(req.RedirectURI) {
		return oauthmodel.InvalidRequest("redirect_uri missing or not allowed")
	}
	if req.CodeChallenge == "" {
		return oauthmodel.InvalidRequest("code_challenge required")
	}
	if req.CodeChallengeMethod != "" && req.CodeChallengeMethod != oauthmodel.CodeChallengeMethodS256 {
		return oauthmodel.InvalidRequest("unsupported code_challenge_method")
	}
	return nil
}

// HasSafeRedirect reports whether the request's redirect URI may be used to
// deliver an outcome. Only the configured client's allow-listed URIs are
// safe.
func (v *Validator) HasSafeRedirect(req *AuthorizationRequest) bool {
	return req.ClientID == v.registry.Resolve().ID && v.registry.IsAllowedRedirect(req.RedirectURI)
}

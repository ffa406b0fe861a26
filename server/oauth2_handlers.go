package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/pollverse/connect/authz"
	"github.com/pollverse/connect/oauthmodel"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

// AuthorizeGet begins the authorization flow: it validates the request,
// sends anonymous users to login, and renders the consent prompt for
// everyone else.
func (s *Server) AuthorizeGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := parseAuthorizationRequest(r.URL.Query())

		userID := s.sessionUserID(r)
		state, verr := s.authz.Begin(req, userID)
		if verr != nil {
			s.authorizationError(w, r, req, verr)
			return
		}

		switch state {
		case authz.StateUnauthenticated:
			s.redirectToLogin(w, r, req)
		case authz.StateAwaitingDecision:
			s.renderConsent(w, req)
		default:
			s.inlineError(w, oauthmodel.InvalidRequest("unexpected authorization state"))
		}
	}
}

// AuthorizePost resolves the consent decision. The request parameters come
// back through the consent form's hidden fields and are re-validated before
// anything is delivered to the redirect URI.
func (s *Server) AuthorizePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.inlineError(w, oauthmodel.InvalidRequest("could not parse form data"))
			return
		}
		req := parseAuthorizationRequest(r.PostForm)
		req.ResponseType = string(oauthmodel.CodeResponseType)

		if verr := s.authz.Validator().Validate(req); verr != nil {
			s.authorizationError(w, r, req, verr)
			return
		}

		userID := s.sessionUserID(r)
		outcome, err := s.authz.Decide(r.Context(), req, userID, r.PostFormValue("decision"))
		if err != nil {
			var oerr *oauthmodel.Error
			if errors.As(err, &oerr) {
				s.authorizationError(w, r, req, oerr)
				return
			}
			// Infrastructure failures stay on this server: the client gets
			// no redirect, the user gets a 500 page.
			log.Error().Err(err).Msg("consent decision failed")
			s.inlineError(w, &oauthmodel.Error{Code: oauthmodel.ErrorCodeServerError})
			return
		}

		switch outcome.State {
		case authz.StateDenied:
			s.authorizationError(w, r, req, oauthmodel.AccessDenied())
		case authz.StateUnauthenticated:
			s.redirectToLogin(w, r, req)
		case authz.StateApproved:
			redirectWithCode(w, r, req, outcome.Code)
		default:
			s.inlineError(w, oauthmodel.InvalidRequest("unexpected consent state"))
		}
	}
}

// Token exchanges an authorization code or a refresh token for tokens.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenReq, err := parseTokenRequest(r)
		if err != nil {
			writeTokenError(w, oauthmodel.InvalidRequest("could not parse token request"))
			return
		}

		tokenResponse, err := s.tokens.Exchange(r.Context(), tokenReq)
		if err != nil {
			var oerr *oauthmodel.Error
			if errors.As(err, &oerr) {
				writeTokenError(w, oerr)
				return
			}
			log.Error().Err(err).Msg("token exchange failed")
			writeTokenError(w, &oauthmodel.Error{Code: oauthmodel.ErrorCodeServerError})
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		_ = json.NewEncoder(w).Encode(tokenResponse)
	}
}

// Health reports liveness plus the reachability of the collaborator stores.
func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range s.healthChecks {
			if err := check(r.Context()); err != nil {
				log.Warn().Err(err).Msg("health check failed")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Helper functions

// sessionUserID resolves the session cookie to a user ID. A missing,
// unknown or expired session yields the empty string; the caller treats
// that as unauthenticated rather than an error.
func (s *Server) sessionUserID(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	userID, err := s.sessions.UserID(r.Context(), cookie.Value)
	if err != nil {
		return ""
	}
	return userID
}

// authorizationError delivers a protocol error for the authorize endpoints.
// When the request's redirect URI has been proven safe the error travels to
// the client via redirect query parameters; otherwise it must not leave the
// server and renders as an inline page instead.
func (s *Server) authorizationError(w http.ResponseWriter, r *http.Request, req *authz.AuthorizationRequest, oerr *oauthmodel.Error) {
	if !s.authz.Validator().HasSafeRedirect(req) {
		s.inlineError(w, oerr)
		return
	}

	u, err := url.Parse(req.RedirectURI)
	if err != nil {
		s.inlineError(w, oerr)
		return
	}
	q := u.Query()
	q.Set("error", oerr.Code)
	if oerr.Description != "" {
		q.Set("error_description", oerr.Description)
	}
	if req.State != "" {
		q.Set("state", req.State)
	}
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

// redirectWithCode sends the freshly issued authorization code back to the
// client. The caller has already validated the redirect URI.
func redirectWithCode(w http.ResponseWriter, r *http.Request, req *authz.AuthorizationRequest, code string) {
	u, err := url.Parse(req.RedirectURI)
	if err != nil {
		http.Error(w, "invalid redirect URI", http.StatusBadRequest)
		return
	}
	q := u.Query()
	q.Set("code", code)
	if req.State != "" {
		q.Set("state", req.State)
	}
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

// redirectToLogin hands the user to the identity system's login page with a
// return_to that replays this authorization request afterwards.
func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request, req *authz.AuthorizationRequest) {
	returnTo := RouteOAuth2Authorize + "?" + encodeAuthorizationRequest(req).Encode()

	loginURL := s.config.LoginURL
	sep := "?"
	if strings.Contains(loginURL, "?") {
		sep = "&"
	}
	http.Redirect(w, r, loginURL+sep+"return_to="+url.QueryEscape(returnTo), http.StatusFound)
}

func (s *Server) renderConsent(w http.ResponseWriter, req *authz.AuthorizationRequest) {
	data := struct {
		AppName    string
		ClientName string
		Scopes     []string
		Request    *authz.AuthorizationRequest
	}{
		AppName:    s.config.AppName,
		ClientName: s.registry.Resolve().Name,
		Scopes:     splitScope(req.Scope),
		Request:    req,
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.Header().Set("Cache-Control", "no-store")
	if err := s.pages.consent.Execute(w, data); err != nil {
		log.Err(err).Msg("Failed to render consent template")
	}
}

// inlineError renders a protocol error as an HTML page. Used whenever the
// redirect URI could not be trusted with the outcome.
func (s *Server) inlineError(w http.ResponseWriter, oerr *oauthmodel.Error) {
	status := http.StatusBadRequest
	if oerr.Code == oauthmodel.ErrorCodeServerError {
		status = http.StatusInternalServerError
	}

	data := struct {
		AppName     string
		Code        string
		Description string
	}{
		AppName:     s.config.AppName,
		Code:        oerr.Code,
		Description: oerr.Description,
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := s.pages.errorPage.Execute(w, data); err != nil {
		log.Err(err).Msg("Failed to render error template")
	}
}

// parseAuthorizationRequest reads the authorization parameters from a query
// string or a posted consent form; both use the same parameter names.
func parseAuthorizationRequest(values url.Values) *authz.AuthorizationRequest {
	return &authz.AuthorizationRequest{
		ResponseType:        values.Get("response_type"),
		ClientID:            values.Get("client_id"),
		RedirectURI:         values.Get("redirect_uri"),
		Scope:               values.Get("scope"),
		State:               values.Get("state"),
		CodeChallenge:       values.Get("code_challenge"),
		CodeChallengeMethod: values.Get("code_challenge_method"),
	}
}

// encodeAuthorizationRequest is the inverse of parseAuthorizationRequest,
// used to rebuild the authorize URL for the post-login return trip.
func encodeAuthorizationRequest(req *authz.AuthorizationRequest) url.Values {
	values := url.Values{}
	values.Set("response_type", string(oauthmodel.CodeResponseType))
	values.Set("client_id", req.ClientID)
	values.Set("redirect_uri", req.RedirectURI)
	if req.Scope != "" {
		values.Set("scope", req.Scope)
	}
	if req.State != "" {
		values.Set("state", req.State)
	}
	values.Set("code_challenge", req.CodeChallenge)
	if req.CodeChallengeMethod != "" {
		values.Set("code_challenge_method", req.CodeChallengeMethod)
	}
	return values
}

// parseTokenRequest accepts either a JSON or a form-encoded body.
func parseTokenRequest(r *http.Request) (oauthmodel.TokenRequest, error) {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var tokenReq oauthmodel.TokenRequest
		if err := json.NewDecoder(r.Body).Decode(&tokenReq); err != nil {
			return oauthmodel.TokenRequest{}, errors.Wrap(err, "[parseTokenRequest] json.Decode")
		}
		return tokenReq, nil
	}

	if err := r.ParseForm(); err != nil {
		return oauthmodel.TokenRequest{}, errors.Wrap(err, "[parseTokenRequest] r.ParseForm")
	}
	return oauthmodel.TokenRequest{
		GrantType:    oauthmodel.GrantType(r.FormValue("grant_type")),
		ClientID:     r.FormValue("client_id"),
		ClientSecret: r.FormValue("client_secret"),
		Code:         r.FormValue("code"),
		RedirectURI:  r.FormValue("redirect_uri"),
		CodeVerifier: r.FormValue("code_verifier"),
		RefreshToken: r.FormValue("refresh_token"),
	}, nil
}

// writeTokenError writes an OAuth2 error response for the token endpoint.
func writeTokenError(w http.ResponseWriter, oerr *oauthmodel.Error) {
	status := http.StatusBadRequest
	switch oerr.Code {
	case oauthmodel.ErrorCodeInvalidClient:
		status = http.StatusUnauthorized
		w.Header().Set("WWW-Authenticate", `Basic realm="token"`)
	case oauthmodel.ErrorCodeServerError:
		status = http.StatusInternalServerError
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	writeJSON(w, status, oerr)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func splitScope(scope string) []string {
	return strings.Fields(scope)
}

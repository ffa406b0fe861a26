package token

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/pollverse/connect/authcode"
	"github.com/pollverse/connect/clients"
	"github.com/pollverse/connect/internal/cryptoutil"
	"github.com/pollverse/connect/oauthmodel"
)

const (
	// AccessTokenTTL bounds how long an access token may be used.
	AccessTokenTTL = 60 * time.Minute
	// RefreshTokenTTL bounds how long the refresh token can keep rotating
	// access tokens without the user re-consenting.
	RefreshTokenTTL = 30 * 24 * time.Hour
)

// Manager redeems authorization codes for token pairs and rotates access
// tokens from refresh tokens. It is stateless between requests; all
// coordination happens through the repositories.
type Manager struct {
	registry *clients.Registry
	codes    authcode.Repo
	tokens   Repo
	nowTime  func() time.Time
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager initializes a Manager with required dependencies.
func NewManager(registry *clients.Registry, codes authcode.Repo, tokens Repo, options ...ManagerOption) (*Manager, error) {
	if registry == nil {
		return nil, errors.New("[NewManager] registry is required")
	}
	if codes == nil {
		return nil, errors.New("[NewManager] code repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewManager] token repo is required")
	}

	m := &Manager{
		registry: registry,
		codes:    codes,
		tokens:   tokens,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Exchange handles one token request, dispatching on grant type. Protocol
// failures come back as *oauthmodel.Error; anything else is an
// infrastructure failure the caller must treat as a 500.
func (m *Manager) Exchange(ctx context.Context, req oauthmodel.TokenRequest) (*oauthmodel.TokenResponse, error) {
	if err := m.registry.Authenticate(req.ClientID, req.ClientSecret); err != nil {
		return nil, oauthmodel.InvalidClient(err.Error())
	}

	switch req.GrantType {
	case oauthmodel.AuthorizationCodeGrant:
		return m.redeemCode(ctx, req)
	case oauthmodel.RefreshTokenGrant:
		return m.rotateAccessToken(ctx, req)
	default:
		return nil, oauthmodel.InvalidRequest("unsupported grant_type")
	}
}

func (m *Manager) redeemCode(ctx context.Context, req oauthmodel.TokenRequest) (*oauthmodel.TokenResponse, error) {
	if !m.registry.IsAllowedRedirect(req.RedirectURI) {
		return nil, oauthmodel.InvalidRequest("redirect_uri missing or not allowed")
	}

	record, err := m.codes.GetByHash(ctx, cryptoutil.HashToken(req.Code))
	if errors.Is(err, authcode.CodeNotFoundErr) {
		return nil, oauthmodel.InvalidRequest("invalid code")
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.redeemCode] codes.GetByHash")
	}

	if record.UsedAt != nil {
		return nil, oauthmodel.InvalidRequest("code already used")
	}

	now := m.nowTime()
	if record.ExpiresAt.Before(now) {
		// Expired rows are reaped lazily on the path that notices them.
		if err := m.codes.Delete(ctx, record.CodeHash); err != nil {
			log.Warn().Err(err).Msg("could not delete expired authorization code")
		}
		return nil, oauthmodel.InvalidRequest("code expired")
	}

	// The code is bound to the exact request it was issued for.
	if record.ClientID != req.ClientID {
		return nil, oauthmodel.InvalidRequest("code was issued to a different client")
	}
	if record.RedirectURI != req.RedirectURI {
		return nil, oauthmodel.InvalidRequest("redirect_uri mismatch")
	}

	if record.CodeChallenge != "" {
		if req.CodeVerifier == "" {
			return nil, oauthmodel.InvalidRequest("code_verifier required")
		}
		if record.CodeChallengeMethod != oauthmodel.CodeChallengeMethodS256 {
			return nil, oauthmodel.InvalidRequest("unsupported code_challenge_method")
		}
		challenge := cryptoutil.S256Challenge(req.CodeVerifier)
		if subtle.ConstantTimeCompare([]byte(challenge), []byte(record.CodeChallenge)) != 1 {
			return nil, oauthmodel.InvalidRequest("invalid code_verifier")
		}
	}

	// Single-use enforcement: a conditional write at the storage layer, not a
	// read-then-write. Losing it means a concurrent redemption already won.
	marked, err := m.codes.MarkUsed(ctx, record.CodeHash, now)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.redeemCode] codes.MarkUsed")
	}
	if !marked {
		return nil, oauthmodel.InvalidRequest("code already used")
	}

	accessToken, err := cryptoutil.RandomToken()
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.redeemCode] access token generation")
	}
	refreshToken, err := cryptoutil.RandomToken()
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.redeemCode] refresh token generation")
	}

	pair := &Pair{
		ID:               uuid.New().String(),
		ClientID:         record.ClientID,
		UserID:           record.UserID,
		Scope:            record.Scope,
		AccessTokenHash:  cryptoutil.HashToken(accessToken),
		RefreshTokenHash: cryptoutil.HashToken(refreshToken),
		AccessExpiresAt:  now.Add(AccessTokenTTL),
		RefreshExpiresAt: now.Add(RefreshTokenTTL),
	}
	if err := m.tokens.Insert(ctx, pair); err != nil {
		return nil, errors.Wrap(err, "[Manager.redeemCode] tokens.Insert")
	}

	return &oauthmodel.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(AccessTokenTTL.Seconds()),
		RefreshToken: refreshToken,
		Scope:        record.Scope,
	}, nil
}

func (m *Manager) rotateAccessToken(ctx context.Context, req oauthmodel.TokenRequest) (*oauthmodel.TokenResponse, error) {
	if req.RefreshToken == "" {
		return nil, oauthmodel.InvalidRequest("refresh_token required")
	}

	record, err := m.tokens.GetByRefreshHash(ctx, cryptoutil.HashToken(req.RefreshToken))
	if errors.Is(err, PairNotFoundErr) {
		return nil, oauthmodel.InvalidRequest("invalid refresh_token")
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.rotateAccessToken] tokens.GetByRefreshHash")
	}

	if record.RevokedAt != nil {
		return nil, oauthmodel.InvalidRequest("refresh token revoked")
	}
	if record.ClientID != req.ClientID {
		return nil, oauthmodel.InvalidClient("refresh token was issued to a different client")
	}
	now := m.nowTime()
	if record.RefreshExpiresAt.Before(now) {
		// Retire the pair so later lookups short-circuit on revoked_at.
		if err := m.tokens.Revoke(ctx, record.ID, now); err != nil {
			log.Warn().Err(err).Msg("could not revoke expired token pair")
		}
		return nil, oauthmodel.InvalidRequest("refresh token expired")
	}

	accessToken, err := cryptoutil.RandomToken()
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.rotateAccessToken] access token generation")
	}
	if err := m.tokens.RotateAccessToken(ctx, record.ID, cryptoutil.HashToken(accessToken), now.Add(AccessTokenTTL)); err != nil {
		return nil, errors.Wrap(err, "[Manager.rotateAccessToken] tokens.RotateAccessToken")
	}

	// The refresh token itself is not rotated: the same one keeps working
	// until it expires or is revoked, so the response carries no new one.
	return &oauthmodel.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(AccessTokenTTL.Seconds()),
		Scope:       record.Scope,
	}, nil
}

package authz

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/pollverse/connect/authcode"
	"github.com/pollverse/connect/clients"
	"github.com/pollverse/connect/internal/cryptoutil"
	"github.com/pollverse/connect/oauthmodel"
)

// AuthorizationCodeTTL bounds how long an issued code may sit unredeemed.
const AuthorizationCodeTTL = 5 * time.Minute

// Service drives the authorization leg of the code flow: request
// validation, the consent decision, and single-use code issuance.
type Service struct {
	registry  *clients.Registry
	codes     authcode.Repo
	validator *Validator
	nowTime   func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService initializes a Service with required dependencies.
func NewService(registry *clients.Registry, codes authcode.Repo, options ...ServiceOption) (*Service, error) {
	if registry == nil {
		return nil, errors.New("[NewService] registry is required")
	}
	if codes == nil {
		return nil, errors.New("[NewService] code repo is required")
	}

	s := &Service{
		registry:  registry,
		codes:     codes,
		validator: NewValidator(registry),
		nowTime:   time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Validator exposes the request validator for the HTTP layer.
func (s *Service) Validator() *Validator { return s.validator }

// Begin classifies an inbound authorization request. userID is empty when no
// authenticated session accompanies the request.
func (s *Service) Begin(req *AuthorizationRequest, userID string) (ConsentState, *oauthmodel.Error) {
	if verr := s.validator.Validate(req); verr != nil {
		return "", verr
	}
	if userID == "" {
		return StateUnauthenticated, nil
	}
	return StateAwaitingDecision, nil
}

// Decide resolves the consent decision for a request whose redirect target
// the caller has already proven safe. Approval issues exactly one
// authorization code.
func (s *Service) Decide(ctx context.Context, req *AuthorizationRequest, userID, decision string) (ConsentOutcome, error) {
	if decision == DecisionDeny {
		return ConsentOutcome{State: StateDenied}, nil
	}
	if decision != DecisionAllow {
		return ConsentOutcome{}, oauthmodel.InvalidRequest("unknown consent decision")
	}
	if userID == "" {
		return ConsentOutcome{State: StateUnauthenticated}, nil
	}

	// The PKCE parameters travelled back through the consent form and could
	// have been tampered with between the GET and POST legs; re-check them
	// before a code gets bound to them.
	if req.CodeChallenge == "" {
		return ConsentOutcome{}, oauthmodel.InvalidRequest("code_challenge required")
	}
	if req.CodeChallengeMethod != "" && req.CodeChallengeMethod != oauthmodel.CodeChallengeMethodS256 {
		return ConsentOutcome{}, oauthmodel.InvalidRequest("unsupported code_challenge_method")
	}

	code, err := s.IssueCode(ctx, userID, req)
	if err != nil {
		return ConsentOutcome{}, err
	}
	return ConsentOutcome{State: StateApproved, Code: code}, nil
}

// IssueCode mints a single-use authorization code bound to the user, client,
// redirect URI, scope and PKCE challenge. Only the hash of the code is
// persisted; the returned plaintext is the one copy that ever exists outside
// the redirect.
func (s *Service) IssueCode(ctx context.Context, userID string, req *AuthorizationRequest) (string, error) {
	plaintext, err := cryptoutil.RandomToken()
	if err != nil {
		return "", errors.Wrap(err, "[Service.IssueCode] token generation")
	}

	method := req.CodeChallengeMethod
	if method == "" {
		method = oauthmodel.CodeChallengeMethodS256
	}
	record := &authcode.Code{
		ID:                  uuid.New().String(),
		CodeHash:            cryptoutil.HashToken(plaintext),
		ClientID:            req.ClientID,
		UserID:              userID,
		RedirectURI:         req.RedirectURI,
		Scope:               req.Scope,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: method,
		ExpiresAt:           s.nowTime().Add(AuthorizationCodeTTL),
	}
	if err := s.codes.Insert(ctx, record); err != nil {
		return "", errors.Wrap(err, "[Service.IssueCode] codes.Insert")
	}
	return plaintext, nil
}

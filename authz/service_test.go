package authz_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/pollverse/connect/authcode/repofake"
	"github.com/pollverse/connect/authz"
	"github.com/pollverse/connect/clients"
	"github.com/pollverse/connect/internal/cryptoutil"
	"github.com/pollverse/connect/oauthmodel"
)

const testUserID = "user-1"

type serviceFixture struct {
	codeRepo *repofake.FakeCodeRepo
	service  *authz.Service
	now      time.Time
}

func setupServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	registry, err := clients.NewRegistry(clients.Client{
		ID:                   testClientID,
		AllowedRedirectHosts: []string{"agent.example.com"},
	})
	require.NoError(t, err)

	f := &serviceFixture{
		codeRepo: repofake.NewFakeCodeRepo(),
		now:      time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
	service, err := authz.NewService(registry, f.codeRepo,
		authz.WithNowTime(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.service = service
	return f
}

func TestService_Begin(t *testing.T) {
	f := setupServiceFixture(t)

	t.Run("no session parks the flow at login", func(t *testing.T) {
		state, verr := f.service.Begin(validRequest(), "")
		require.Nil(t, verr)
		require.Equal(t, authz.StateUnauthenticated, state)
	})

	t.Run("authenticated user awaits a decision", func(t *testing.T) {
		state, verr := f.service.Begin(validRequest(), testUserID)
		require.Nil(t, verr)
		require.Equal(t, authz.StateAwaitingDecision, state)
	})

	t.Run("invalid request never reaches a state", func(t *testing.T) {
		req := validRequest()
		req.CodeChallenge = ""
		_, verr := f.service.Begin(req, testUserID)
		require.NotNil(t, verr)
	})
}

func TestService_Decide(t *testing.T) {
	ctx := context.Background()

	t.Run("deny is terminal and issues nothing", func(t *testing.T) {
		f := setupServiceFixture(t)
		outcome, err := f.service.Decide(ctx, validRequest(), testUserID, authz.DecisionDeny)
		require.NoError(t, err)
		require.Equal(t, authz.StateDenied, outcome.State)
		require.Empty(t, outcome.Code)
		require.Equal(t, 0, f.codeRepo.Len())
	})

	t.Run("deny needs no session", func(t *testing.T) {
		f := setupServiceFixture(t)
		outcome, err := f.service.Decide(ctx, validRequest(), "", authz.DecisionDeny)
		require.NoError(t, err)
		require.Equal(t, authz.StateDenied, outcome.State)
	})

	t.Run("allow without a session parks the flow", func(t *testing.T) {
		f := setupServiceFixture(t)
		outcome, err := f.service.Decide(ctx, validRequest(), "", authz.DecisionAllow)
		require.NoError(t, err)
		require.Equal(t, authz.StateUnauthenticated, outcome.State)
		require.Equal(t, 0, f.codeRepo.Len())
	})

	t.Run("allow issues exactly one code", func(t *testing.T) {
		f := setupServiceFixture(t)
		outcome, err := f.service.Decide(ctx, validRequest(), testUserID, authz.DecisionAllow)
		require.NoError(t, err)
		require.Equal(t, authz.StateApproved, outcome.State)
		require.NotEmpty(t, outcome.Code)
		require.Equal(t, 1, f.codeRepo.Len())
	})

	t.Run("unknown decision is rejected", func(t *testing.T) {
		f := setupServiceFixture(t)
		_, err := f.service.Decide(ctx, validRequest(), testUserID, "maybe")
		var oerr *oauthmodel.Error
		require.True(t, errors.As(err, &oerr))
	})

	t.Run("stripped code_challenge is caught on the POST leg", func(t *testing.T) {
		f := setupServiceFixture(t)
		req := validRequest()
		req.CodeChallenge = ""
		_, err := f.service.Decide(ctx, req, testUserID, authz.DecisionAllow)
		var oerr *oauthmodel.Error
		require.True(t, errors.As(err, &oerr))
		require.Contains(t, oerr.Description, "code_challenge")
		require.Equal(t, 0, f.codeRepo.Len())
	})

	t.Run("tampered method is caught on the POST leg", func(t *testing.T) {
		f := setupServiceFixture(t)
		req := validRequest()
		req.CodeChallengeMethod = "plain"
		_, err := f.service.Decide(ctx, req, testUserID, authz.DecisionAllow)
		var oerr *oauthmodel.Error
		require.True(t, errors.As(err, &oerr))
	})
}

func TestService_IssueCode(t *testing.T) {
	ctx := context.Background()

	t.Run("persists only the hash, bound to the request", func(t *testing.T) {
		f := setupServiceFixture(t)
		req := validRequest()

		plaintext, err := f.service.IssueCode(ctx, testUserID, req)
		require.NoError(t, err)
		require.NotEmpty(t, plaintext)

		record, err := f.codeRepo.GetByHash(ctx, cryptoutil.HashToken(plaintext))
		require.NoError(t, err)
		require.Equal(t, testClientID, record.ClientID)
		require.Equal(t, testUserID, record.UserID)
		require.Equal(t, req.RedirectURI, record.RedirectURI)
		require.Equal(t, req.Scope, record.Scope)
		require.Equal(t, req.CodeChallenge, record.CodeChallenge)
		require.Equal(t, "S256", record.CodeChallengeMethod)
		require.Nil(t, record.UsedAt)
		require.Equal(t, f.now.Add(5*time.Minute), record.ExpiresAt)
	})

	t.Run("persistence failure surfaces and leaves no plaintext", func(t *testing.T) {
		f := setupServiceFixture(t)
		f.codeRepo.InsertErr = errors.New("connection refused")

		_, err := f.service.IssueCode(ctx, testUserID, validRequest())
		require.Error(t, err)
		require.Equal(t, 0, f.codeRepo.Len())
	})

	t.Run("codes are unique per issuance", func(t *testing.T) {
		f := setupServiceFixture(t)
		first, err := f.service.IssueCode(ctx, testUserID, validRequest())
		require.NoError(t, err)
		second, err := f.service.IssueCode(ctx, testUserID, validRequest())
		require.NoError(t, err)
		require.NotEqual(t, first, second)
		require.Equal(t, 2, f.codeRepo.Len())
	})
}

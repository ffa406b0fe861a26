package authcode_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/pollverse/connect/authcode"
	"github.com/stretchr/testify/require"
)

func setupCodeRepo(t *testing.T) (pgxmock.PgxPoolIface, *authcode.PostgresRepo) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, authcode.NewPostgresRepo(mock)
}

func TestPostgresRepo_Insert(t *testing.T) {
	mock, repo := setupCodeRepo(t)

	code := &authcode.Code{
		ID:                  "11111111-1111-1111-1111-111111111111",
		CodeHash:            "abc123",
		ClientID:            "pollverse-agent",
		UserID:              "user-1",
		RedirectURI:         "https://agent.example.com/callback",
		Scope:               "act",
		CodeChallenge:       "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		CodeChallengeMethod: "S256",
		ExpiresAt:           time.Now().Add(5 * time.Minute),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO authorization_codes")).
		WithArgs(code.ID, code.CodeHash, code.ClientID, code.UserID, code.RedirectURI,
			code.Scope, code.CodeChallenge, code.CodeChallengeMethod, code.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Insert(context.Background(), code))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_GetByHash(t *testing.T) {
	columns := []string{
		"id", "code_hash", "client_id", "user_id", "redirect_uri", "scope",
		"code_challenge", "code_challenge_method", "expires_at", "used_at", "created_at",
	}

	t.Run("found", func(t *testing.T) {
		mock, repo := setupCodeRepo(t)
		expires := time.Now().Add(5 * time.Minute)
		created := time.Now()

		mock.ExpectQuery(regexp.QuoteMeta("FROM authorization_codes")).
			WithArgs("abc123").
			WillReturnRows(pgxmock.NewRows(columns).AddRow(
				"11111111-1111-1111-1111-111111111111", "abc123", "pollverse-agent", "user-1",
				"https://agent.example.com/callback", "act",
				"E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", "S256",
				expires, (*time.Time)(nil), created))

		code, err := repo.GetByHash(context.Background(), "abc123")
		require.NoError(t, err)
		require.Equal(t, "user-1", code.UserID)
		require.Nil(t, code.UsedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, repo := setupCodeRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM authorization_codes")).
			WithArgs("missing").
			WillReturnRows(pgxmock.NewRows(columns))

		_, err := repo.GetByHash(context.Background(), "missing")
		require.ErrorIs(t, err, authcode.CodeNotFoundErr)
	})
}

func TestPostgresRepo_MarkUsed(t *testing.T) {
	usedAt := time.Now()

	t.Run("first redemption wins", func(t *testing.T) {
		mock, repo := setupCodeRepo(t)
		mock.ExpectExec(regexp.QuoteMeta("SET used_at = $2")).
			WithArgs("abc123", usedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		marked, err := repo.MarkUsed(context.Background(), "abc123", usedAt)
		require.NoError(t, err)
		require.True(t, marked)
	})

	t.Run("already used affects no rows", func(t *testing.T) {
		mock, repo := setupCodeRepo(t)
		mock.ExpectExec(regexp.QuoteMeta("SET used_at = $2")).
			WithArgs("abc123", usedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		marked, err := repo.MarkUsed(context.Background(), "abc123", usedAt)
		require.NoError(t, err)
		require.False(t, marked)
	})
}

func TestPostgresRepo_DeleteExpired(t *testing.T) {
	mock, repo := setupCodeRepo(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM authorization_codes WHERE expires_at < $1")).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	deleted, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, int64(3), deleted)
}

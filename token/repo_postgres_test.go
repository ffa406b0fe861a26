package token_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/pollverse/connect/token"
	"github.com/stretchr/testify/require"
)

func setupTokenRepo(t *testing.T) (pgxmock.PgxPoolIface, *token.PostgresRepo) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, token.NewPostgresRepo(mock)
}

func TestPostgresRepo_InsertPair(t *testing.T) {
	mock, repo := setupTokenRepo(t)
	now := time.Now()

	pair := &token.Pair{
		ID:               "22222222-2222-2222-2222-222222222222",
		ClientID:         testClientID,
		UserID:           testUserID,
		Scope:            testScope,
		AccessTokenHash:  "access-hash",
		RefreshTokenHash: "refresh-hash",
		AccessExpiresAt:  now.Add(time.Hour),
		RefreshExpiresAt: now.Add(30 * 24 * time.Hour),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO token_pairs")).
		WithArgs(pair.ID, pair.ClientID, pair.UserID, pair.Scope,
			pair.AccessTokenHash, pair.RefreshTokenHash,
			pair.AccessExpiresAt, pair.RefreshExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Insert(context.Background(), pair))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_GetByRefreshHash(t *testing.T) {
	columns := []string{
		"id", "client_id", "user_id", "scope", "access_token_hash", "refresh_token_hash",
		"access_expires_at", "refresh_expires_at", "revoked_at", "created_at",
	}

	t.Run("found", func(t *testing.T) {
		mock, repo := setupTokenRepo(t)
		now := time.Now()

		mock.ExpectQuery(regexp.QuoteMeta("FROM token_pairs")).
			WithArgs("refresh-hash").
			WillReturnRows(pgxmock.NewRows(columns).AddRow(
				"22222222-2222-2222-2222-222222222222", testClientID, testUserID, testScope,
				"access-hash", "refresh-hash",
				now.Add(time.Hour), now.Add(30*24*time.Hour), (*time.Time)(nil), now))

		pair, err := repo.GetByRefreshHash(context.Background(), "refresh-hash")
		require.NoError(t, err)
		require.Equal(t, testUserID, pair.UserID)
		require.Nil(t, pair.RevokedAt)
	})

	t.Run("not found", func(t *testing.T) {
		mock, repo := setupTokenRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM token_pairs")).
			WithArgs("missing").
			WillReturnRows(pgxmock.NewRows(columns))

		_, err := repo.GetByRefreshHash(context.Background(), "missing")
		require.ErrorIs(t, err, token.PairNotFoundErr)
	})
}

func TestPostgresRepo_RotateAccessToken(t *testing.T) {
	expires := time.Now().Add(time.Hour)

	t.Run("updates the live record", func(t *testing.T) {
		mock, repo := setupTokenRepo(t)
		mock.ExpectExec(regexp.QuoteMeta("SET access_token_hash = $2, access_expires_at = $3")).
			WithArgs("pair-1", "new-access-hash", expires).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.RotateAccessToken(context.Background(), "pair-1", "new-access-hash", expires))
	})

	t.Run("revoked or missing record affects no rows", func(t *testing.T) {
		mock, repo := setupTokenRepo(t)
		mock.ExpectExec(regexp.QuoteMeta("SET access_token_hash = $2, access_expires_at = $3")).
			WithArgs("pair-1", "new-access-hash", expires).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.RotateAccessToken(context.Background(), "pair-1", "new-access-hash", expires)
		require.ErrorIs(t, err, token.PairNotFoundErr)
	})
}

func TestPostgresRepo_Revoke(t *testing.T) {
	mock, repo := setupTokenRepo(t)
	revokedAt := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("SET revoked_at = $2")).
		WithArgs("pair-1", revokedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Revoke(context.Background(), "pair-1", revokedAt))
}

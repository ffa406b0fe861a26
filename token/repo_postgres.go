package token

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepo stores token pairs in the token_pairs table.
type PostgresRepo struct {
	db DB
}

func NewPostgresRepo(db DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Insert(ctx context.Context, pair *Pair) error {
	query := `
		INSERT INTO token_pairs
			(id, client_id, user_id, scope, access_token_hash, refresh_token_hash, access_expires_at, refresh_expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`
	_, err := r.db.Exec(ctx, query,
		pair.ID, pair.ClientID, pair.UserID, pair.Scope,
		pair.AccessTokenHash, pair.RefreshTokenHash,
		pair.AccessExpiresAt, pair.RefreshExpiresAt)
	return errors.Wrap(err, "[PostgresRepo.Insert] token_pairs")
}

func (r *PostgresRepo) GetByRefreshHash(ctx context.Context, refreshHash string) (*Pair, error) {
	pair := &Pair{}
	query := `
		SELECT id, client_id, user_id, scope, access_token_hash, refresh_token_hash, access_expires_at, refresh_expires_at, revoked_at, created_at
		FROM token_pairs
		WHERE refresh_token_hash = $1
	`
	err := r.db.QueryRow(ctx, query, refreshHash).Scan(
		&pair.ID, &pair.ClientID, &pair.UserID, &pair.Scope,
		&pair.AccessTokenHash, &pair.RefreshTokenHash,
		&pair.AccessExpiresAt, &pair.RefreshExpiresAt,
		&pair.RevokedAt, &pair.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, PairNotFoundErr
	}
	if err != nil {
		return nil, errors.Wrap(err, "[PostgresRepo.GetByRefreshHash] token_pairs")
	}
	return pair, nil
}

func (r *PostgresRepo) RotateAccessToken(ctx context.Context, id, accessHash string, accessExpiresAt time.Time) error {
	query := `
		UPDATE token_pairs
		SET access_token_hash = $2, access_expires_at = $3
		WHERE id = $1 AND revoked_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, id, accessHash, accessExpiresAt)
	if err != nil {
		return errors.Wrap(err, "[PostgresRepo.RotateAccessToken] token_pairs")
	}
	if tag.RowsAffected() == 0 {
		return PairNotFoundErr
	}
	return nil
}

func (r *PostgresRepo) Revoke(ctx context.Context, id string, revokedAt time.Time) error {
	query := `
		UPDATE token_pairs
		SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, id, revokedAt)
	if err != nil {
		return errors.Wrap(err, "[PostgresRepo.Revoke] token_pairs")
	}
	if tag.RowsAffected() == 0 {
		return PairNotFoundErr
	}
	return nil
}

package authcode

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

// DB is the subset of pgxpool.Pool the repository uses, small enough for
// pgxmock to stand in during tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepo stores authorization codes in the authorization_codes table.
type PostgresRepo struct {
	db DB
}

func NewPostgresRepo(db DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Insert(ctx context.Context, code *Code) error {
	query := `
		INSERT INTO authorization_codes
			(id, code_hash, client_id, user_id, redirect_uri, scope, code_challenge, code_challenge_method, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`
	_, err := r.db.Exec(ctx, query,
		code.ID, code.CodeHash, code.ClientID, code.UserID, code.RedirectURI,
		code.Scope, code.CodeChallenge, code.CodeChallengeMethod, code.ExpiresAt)
	return errors.Wrap(err, "[PostgresRepo.Insert] authorization_codes")
}

func (r *PostgresRepo) GetByHash(ctx context.Context, codeHash string) (*Code, error) {
	code := &Code{}
	query := `
		SELECT id, code_hash, client_id, user_id, redirect_uri, scope, code_challenge, code_challenge_method, expires_at, used_at, created_at
		FROM authorization_codes
		WHERE code_hash = $1
	`
	err := r.db.QueryRow(ctx, query, codeHash).Scan(
		&code.ID, &code.CodeHash, &code.ClientID, &code.UserID, &code.RedirectURI,
		&code.Scope, &code.CodeChallenge, &code.CodeChallengeMethod,
		&code.ExpiresAt, &code.UsedAt, &code.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, CodeNotFoundErr
	}
	if err != nil {
		return nil, errors.Wrap(err, "[PostgresRepo.GetByHash] authorization_codes")
	}
	return code, nil
}

// MarkUsed is a single conditional UPDATE keyed on used_at IS NULL; the
// affected row count decides the winner under concurrent redemption.
func (r *PostgresRepo) MarkUsed(ctx context.Context, codeHash string, usedAt time.Time) (bool, error) {
	query := `
		UPDATE authorization_codes
		SET used_at = $2
		WHERE code_hash = $1 AND used_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, codeHash, usedAt)
	if err != nil {
		return false, errors.Wrap(err, "[PostgresRepo.MarkUsed] authorization_codes")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, codeHash string) error {
	query := `DELETE FROM authorization_codes WHERE code_hash = $1`
	_, err := r.db.Exec(ctx, query, codeHash)
	return errors.Wrap(err, "[PostgresRepo.Delete] authorization_codes")
}

func (r *PostgresRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM authorization_codes WHERE expires_at < $1`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, errors.Wrap(err, "[PostgresRepo.DeleteExpired] authorization_codes")
	}
	return tag.RowsAffected(), nil
}

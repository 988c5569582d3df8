package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okorelov/profile-auth/internal/core/domain"
	"github.com/okorelov/profile-auth/internal/repository"
)

const uniqueViolationCode = "23505"

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var accountColumns = []string{
	"id",
	"email",
	"display_name",
	"password_hash",
	"external_identity_id",
	"last_authenticated_at",
	"refresh_token_hash",
	"refresh_token_expires_at",
	"reset_token_hash",
	"reset_token_expires_at",
	"failed_attempts",
	"locked_until",
	"token_version",
	"created_at",
	"updated_at",
}

// AccountRepository implements port.AccountRepository backed by PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// NewAccountRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	repo := &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:     time.Now,
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithClock overrides the clock used for updated_at stamps (tests).
func (r *AccountRepository) WithClock(clock func() time.Time) {
	if clock != nil {
		r.now = clock
	}
}

// Create inserts a new account row. A duplicate email surfaces as
// repository.ErrConflict.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	query := r.builder.Insert("auth.accounts").
		Columns(accountColumns...).
		Values(
			account.ID,
			account.Email,
			account.DisplayName,
			account.PasswordHash,
			account.ExternalIdentityID,
			account.LastAuthenticatedAt,
			account.RefreshTokenHash,
			account.RefreshTokenExpiresAt,
			account.ResetTokenHash,
			account.ResetTokenExpiresAt,
			account.FailedAttempts,
			account.LockedUntil,
			account.TokenVersion,
			account.CreatedAt,
			account.UpdatedAt,
		)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("auth.accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	return r.scanAccount(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByEmail retrieves an account by its normalized email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("auth.accounts").
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by email sql: %w", err)
	}

	return r.scanAccount(r.exec.QueryRow(ctx, stmt, args...))
}

// Update writes the account's mutable fields, guarded by the updated_at the
// caller loaded. Zero matched rows means the row either vanished
// (repository.ErrNotFound) or moved underneath the caller
// (repository.ErrConflict).
func (r *AccountRepository) Update(ctx context.Context, account domain.Account) (*domain.Account, error) {
	stampedAt := r.now().UTC()

	stmt, args, err := r.builder.Update("auth.accounts").
		Set("email", account.Email).
		Set("display_name", account.DisplayName).
		Set("password_hash", account.PasswordHash).
		Set("external_identity_id", account.ExternalIdentityID).
		Set("last_authenticated_at", account.LastAuthenticatedAt).
		Set("refresh_token_hash", account.RefreshTokenHash).
		Set("refresh_token_expires_at", account.RefreshTokenExpiresAt).
		Set("reset_token_hash", account.ResetTokenHash).
		Set("reset_token_expires_at", account.ResetTokenExpiresAt).
		Set("failed_attempts", account.FailedAttempts).
		Set("locked_until", account.LockedUntil).
		Set("token_version", account.TokenVersion).
		Set("updated_at", stampedAt).
		Where(squirrel.Eq{"id": account.ID, "updated_at": account.UpdatedAt}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update account sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if _, getErr := r.GetByID(ctx, account.ID); getErr != nil {
			if errors.Is(getErr, repository.ErrNotFound) {
				return nil, repository.ErrNotFound
			}
			return nil, fmt.Errorf("recheck account: %w", getErr)
		}
		return nil, repository.ErrConflict
	}

	account.UpdatedAt = stampedAt
	return &account, nil
}

func (r *AccountRepository) scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account

	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.DisplayName,
		&account.PasswordHash,
		&account.ExternalIdentityID,
		&account.LastAuthenticatedAt,
		&account.RefreshTokenHash,
		&account.RefreshTokenExpiresAt,
		&account.ResetTokenHash,
		&account.ResetTokenExpiresAt,
		&account.FailedAttempts,
		&account.LockedUntil,
		&account.TokenVersion,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	return &account, nil
}

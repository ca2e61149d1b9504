package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"user-account-service/internal/user/domain"
)

const userColumns = `id, first_name, last_name, email, phone_dial_code, phone_number, password_hash, role,
	is_blocked, login_type, reset_token_hash, version, is_active, created_at, created_by, updated_at, updated_by, meta_status`

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PostgresRepository stores users in the users table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts u. Returns ErrDuplicateEmail when the email is already taken.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	var dialCode, number sql.NullString
	if u.Phone != nil {
		dialCode = sql.NullString{String: u.Phone.DialCode, Valid: true}
		number = sql.NullString{String: u.Phone.Number, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		u.ID, u.FirstName, nullString(u.LastName), u.Email, dialCode, number, nullString(u.PasswordHash), u.Role,
		u.IsBlocked, string(u.LoginType), nullString(u.ResetTokenHash), u.Version, u.IsActive,
		u.CreatedAt, nullString(u.CreatedBy), u.UpdatedAt, nullString(u.UpdatedBy), nullString(u.MetaStatus),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}

// IsExisting reports whether a user with email exists.
func (r *PostgresRepository) IsExisting(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

// GetByEmail returns the user with the given email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// UpdateByID applies patch only when the stored version matches expectedVersion.
func (r *PostgresRepository) UpdateByID(ctx context.Context, id string, expectedVersion int, patch domain.Patch) (*domain.User, error) {
	query, args := buildUpdate(id, expectedVersion, patch)
	u, err := r.queryOne(ctx, query, args...)
	if err != nil || u != nil {
		return u, err
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrVersionConflict
	}
	return nil, nil
}

// Ping checks the database connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// buildUpdate returns a conditional UPDATE ... RETURNING for patch. Only non-nil patch fields are
// written; the row must still be at expectedVersion.
func buildUpdate(id string, expectedVersion int, p domain.Patch) (string, []any) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.FirstName != nil {
		add("first_name", *p.FirstName)
	}
	if p.LastName != nil {
		add("last_name", nullString(*p.LastName))
	}
	if p.Phone != nil {
		add("phone_dial_code", p.Phone.DialCode)
		add("phone_number", p.Phone.Number)
	}
	if p.IsActive != nil {
		add("is_active", *p.IsActive)
	}
	if p.PasswordHash != nil {
		add("password_hash", nullString(*p.PasswordHash))
	}
	if p.ResetTokenHash != nil {
		add("reset_token_hash", nullString(*p.ResetTokenHash))
	}
	add("version", p.Audit.Version)
	add("updated_by", nullString(p.Audit.UpdatedBy))
	add("updated_at", p.Audit.UpdatedAt)

	args = append(args, id)
	where := fmt.Sprintf("id = $%d", len(args))
	if expectedVersion <= 0 {
		where += " AND (version IS NULL OR version = 0)"
	} else {
		args = append(args, expectedVersion)
		where += fmt.Sprintf(" AND version = $%d", len(args))
	}
	query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE " + where + " RETURNING " + userColumns
	return query, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var lastName, dialCode, number, password, resetToken, createdBy, updatedBy, meta sql.NullString
	var loginType string
	var version sql.NullInt64
	var createdAt, updatedAt time.Time
	if err := row.Scan(&u.ID, &u.FirstName, &lastName, &u.Email, &dialCode, &number, &password, &u.Role,
		&u.IsBlocked, &loginType, &resetToken, &version, &u.IsActive, &createdAt, &createdBy, &updatedAt, &updatedBy, &meta); err != nil {
		return nil, err
	}
	u.LastName = lastName.String
	if dialCode.Valid || number.Valid {
		u.Phone = &domain.Phone{DialCode: dialCode.String, Number: number.String}
	}
	u.PasswordHash = password.String
	u.LoginType = domain.LoginType(loginType)
	u.ResetTokenHash = resetToken.String
	u.Version = int(version.Int64)
	u.CreatedAt = createdAt.UTC()
	u.CreatedBy = createdBy.String
	u.UpdatedAt = updatedAt.UTC()
	u.UpdatedBy = updatedBy.String
	u.MetaStatus = meta.String
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

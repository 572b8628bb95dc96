package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"acceso/internal/user/models"
	id "acceso/pkg/domain"
	"acceso/pkg/platform/sentinel"
	"acceso/pkg/platform/tx"
)

// PostgresStore persists users in PostgreSQL. Statements join the caller's
// transaction when one is carried in the context, so a mutation and its
// uniqueness checks commit atomically.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// executor is satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) exec(ctx context.Context) executor {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	query := `
		INSERT INTO users (id, username, person_id, role_id, password_hash, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.exec(ctx).ExecContext(ctx, query,
		uuid.UUID(user.ID),
		user.Username,
		uuid.UUID(user.PersonID),
		uuid.UUID(user.RoleID),
		user.PasswordHash,
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user already exists: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	query := `
		UPDATE users
		SET username = $2, person_id = $3, role_id = $4, password_hash = $5, active = $6, updated_at = $7
		WHERE id = $1
	`
	res, err := s.exec(ctx).ExecContext(ctx, query,
		uuid.UUID(user.ID),
		user.Username,
		uuid.UUID(user.PersonID),
		uuid.UUID(user.RoleID),
		user.PasswordHash,
		user.Active,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user already exists: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("update user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	query := selectUserColumns + ` WHERE id = $1`
	user, err := scanUser(s.exec(ctx).QueryRowContext(ctx, query, uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := selectUserColumns + ` WHERE username = $1`
	user, err := scanUser(s.exec(ctx).QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) FindByPersonID(ctx context.Context, personID id.PersonID) (*models.User, error) {
	query := selectUserColumns + ` WHERE person_id = $1`
	user, err := scanUser(s.exec(ctx).QueryRowContext(ctx, query, uuid.UUID(personID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by person: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) ExistsByID(ctx context.Context, userID id.UserID) (bool, error) {
	var exists bool
	err := s.exec(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, uuid.UUID(userID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := selectUserColumns + `
		ORDER BY username
		LIMIT $1 OFFSET $2
	`
	rows, err := s.exec(ctx).QueryContext(ctx, query, normalizeLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

func (s *PostgresStore) ListByRole(ctx context.Context, roleID id.RoleID) ([]*models.User, error) {
	query := selectUserColumns + `
		WHERE role_id = $1
		ORDER BY username
	`
	rows, err := s.exec(ctx).QueryContext(ctx, query, uuid.UUID(roleID))
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

func (s *PostgresStore) Search(ctx context.Context, search string) ([]*models.User, error) {
	query := selectUserColumns + `
		WHERE username ILIKE '%' || $1 || '%'
		ORDER BY username
	`
	rows, err := s.exec(ctx).QueryContext(ctx, query, search)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

func (s *PostgresStore) CountByRole(ctx context.Context, roleID id.RoleID) (int, error) {
	var count int
	err := s.exec(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role_id = $1`, uuid.UUID(roleID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := s.exec(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

const selectUserColumns = `
	SELECT id, username, person_id, role_id, password_hash, active, created_at, updated_at
	FROM users`

const defaultListLimit = 100

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user     models.User
		userID   uuid.UUID
		personID uuid.UUID
		roleID   uuid.UUID
	)
	err := row.Scan(&userID, &user.Username, &personID, &roleID,
		&user.PasswordHash, &user.Active, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.ID = id.UserID(userID)
	user.PersonID = id.PersonID(personID)
	user.RoleID = id.RoleID(roleID)
	return &user, nil
}

func scanUsers(rows *sql.Rows) ([]*models.User, error) {
	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

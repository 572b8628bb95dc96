package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"acceso/internal/role/models"
	id "acceso/pkg/domain"
	"acceso/pkg/platform/sentinel"
	"acceso/pkg/platform/tx"
)

// PostgresStore persists roles in PostgreSQL. Statements join the caller's
// transaction when one is carried in the context.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed role store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

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

func (s *PostgresStore) Create(ctx context.Context, role *models.Role) error {
	if role == nil {
		return fmt.Errorf("role is required")
	}
	query := `
		INSERT INTO roles (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.exec(ctx).ExecContext(ctx, query,
		uuid.UUID(role.ID), role.Name, role.Description, role.CreatedAt, role.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("role already exists: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, role *models.Role) error {
	if role == nil {
		return fmt.Errorf("role is required")
	}
	query := `
		UPDATE roles
		SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
	`
	res, err := s.exec(ctx).ExecContext(ctx, query,
		uuid.UUID(role.ID), role.Name, role.Description, role.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("role already exists: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("update role: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update role rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("role not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, roleID id.RoleID) (*models.Role, error) {
	query := selectRoleColumns + ` WHERE id = $1`
	role, err := scanRole(s.exec(ctx).QueryRowContext(ctx, query, uuid.UUID(roleID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find role by id: %w", err)
	}
	return role, nil
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.Role, error) {
	query := selectRoleColumns + ` WHERE name = $1`
	role, err := scanRole(s.exec(ctx).QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find role by name: %w", err)
	}
	return role, nil
}

func (s *PostgresStore) ExistsByID(ctx context.Context, roleID id.RoleID) (bool, error) {
	var exists bool
	err := s.exec(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM roles WHERE id = $1)`, uuid.UUID(roleID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check role exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Role, error) {
	query := selectRoleColumns + ` ORDER BY name`
	rows, err := s.exec(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []*models.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

func (s *PostgresStore) Delete(ctx context.Context, roleID id.RoleID) error {
	res, err := s.exec(ctx).ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, uuid.UUID(roleID))
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete role rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("role not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

const selectRoleColumns = `
	SELECT id, name, description, created_at, updated_at
	FROM roles`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRole(row rowScanner) (*models.Role, error) {
	var (
		role   models.Role
		roleID uuid.UUID
	)
	err := row.Scan(&roleID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, err
	}
	role.ID = id.RoleID(roleID)
	return &role, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

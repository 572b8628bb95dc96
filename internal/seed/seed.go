// Package seed bootstraps the fixed role catalogue and the initial
// administrator account. Running it repeatedly is safe: anything that already
// exists is left untouched.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	rolemodels "acceso/internal/role/models"
	"acceso/internal/user/credentials"
	usermodels "acceso/internal/user/models"
	id "acceso/pkg/domain"
	"acceso/pkg/platform/sentinel"
)

// AdminUsername is the login name of the bootstrap administrator.
const AdminUsername = "admin"

// DefaultRoles are created on first start, in this order. The administrator
// account is attached to the first one.
var DefaultRoles = []struct {
	Name        string
	Description string
}{
	{"ADMINISTRADOR", "Full administrative access"},
	{"SUPERVISOR", "Supervises day-to-day operations"},
	{"TRABAJADOR", "Regular worker account"},
}

// Roles is the slice of the role store the seeder needs.
type Roles interface {
	FindByName(ctx context.Context, name string) (*rolemodels.Role, error)
	Create(ctx context.Context, role *rolemodels.Role) error
}

// Users is the slice of the user store the seeder needs.
type Users interface {
	FindByUsername(ctx context.Context, username string) (*usermodels.User, error)
	Create(ctx context.Context, user *usermodels.User) error
}

// Tx runs fn inside a single transaction so a partially seeded catalogue is
// never visible. The in-memory deployment uses NopTx.
type Tx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PasswordGenerator produces the initial administrator password when none is
// supplied.
type PasswordGenerator interface {
	Generate() (string, error)
}

// NopTx runs fn directly, without transactional guarantees.
type NopTx struct{}

func (NopTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Result reports what the seeder actually did.
type Result struct {
	RolesCreated []string
	AdminCreated bool
	// AdminPassword is the generated initial password, set only when the
	// admin account was created in this run and no password was supplied.
	AdminPassword string
}

// Seeder provisions roles and the initial administrator.
type Seeder struct {
	roles     Roles
	users     Users
	tx        Tx
	passwords PasswordGenerator
	logger    *slog.Logger
}

// Option configures a Seeder.
type Option func(s *Seeder)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Seeder) { s.logger = logger }
}

func WithPasswordGenerator(gen PasswordGenerator) Option {
	return func(s *Seeder) { s.passwords = gen }
}

// New builds a Seeder over the given stores. tx may be NopTx for stores
// without transaction support.
func New(roles Roles, users Users, tx Tx, opts ...Option) *Seeder {
	s := &Seeder{
		roles:     roles,
		users:     users,
		tx:        tx,
		passwords: credentials.NewGenerator(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run seeds the role catalogue and the administrator account. adminPassword
// sets the initial credential; when empty a random one is generated and
// returned in the Result (and logged once, since there is no other way to
// learn it).
func (s *Seeder) Run(ctx context.Context, adminPassword string) (Result, error) {
	var result Result

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()

		adminRoleID, created, err := s.ensureRoles(ctx, now)
		if err != nil {
			return err
		}
		result.RolesCreated = created

		generated, createdAdmin, err := s.ensureAdmin(ctx, adminRoleID, adminPassword, now)
		if err != nil {
			return err
		}
		result.AdminCreated = createdAdmin
		result.AdminPassword = generated
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if len(result.RolesCreated) > 0 {
		s.logger.InfoContext(ctx, "seeded roles", "roles", result.RolesCreated)
	}
	if result.AdminCreated {
		attrs := []any{"username", AdminUsername}
		if result.AdminPassword != "" {
			attrs = append(attrs, "initial_password", result.AdminPassword)
		}
		s.logger.InfoContext(ctx, "seeded administrator account", attrs...)
	}
	return result, nil
}

// ensureRoles creates any missing default roles and returns the ID of the
// administrator role.
func (s *Seeder) ensureRoles(ctx context.Context, now time.Time) (id.RoleID, []string, error) {
	var (
		adminRoleID id.RoleID
		created     []string
	)

	for i, def := range DefaultRoles {
		role, err := s.roles.FindByName(ctx, def.Name)
		switch {
		case err == nil:
			// Already present.
		case errors.Is(err, sentinel.ErrNotFound):
			role, err = rolemodels.NewRole(id.RoleID(uuid.New()), def.Name, def.Description, now)
			if err != nil {
				return id.RoleID{}, nil, fmt.Errorf("build role %s: %w", def.Name, err)
			}
			if err := s.roles.Create(ctx, role); err != nil {
				return id.RoleID{}, nil, fmt.Errorf("create role %s: %w", def.Name, err)
			}
			created = append(created, def.Name)
		default:
			return id.RoleID{}, nil, fmt.Errorf("find role %s: %w", def.Name, err)
		}

		if i == 0 {
			adminRoleID = role.ID
		}
	}

	return adminRoleID, created, nil
}

// ensureAdmin creates the bootstrap administrator when absent. Returns the
// generated password, if any, and whether the account was created.
func (s *Seeder) ensureAdmin(ctx context.Context, roleID id.RoleID, password string, now time.Time) (string, bool, error) {
	_, err := s.users.FindByUsername(ctx, AdminUsername)
	if err == nil {
		return "", false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return "", false, fmt.Errorf("find admin user: %w", err)
	}

	var generated string
	if password == "" {
		generated, err = s.passwords.Generate()
		if err != nil {
			return "", false, fmt.Errorf("generate admin password: %w", err)
		}
		password = generated
	}

	hash, err := credentials.Hash(password)
	if err != nil {
		return "", false, fmt.Errorf("hash admin password: %w", err)
	}

	admin, err := usermodels.NewUser(id.UserID(uuid.New()), AdminUsername, id.PersonID(uuid.New()), roleID, hash, now)
	if err != nil {
		return "", false, fmt.Errorf("build admin user: %w", err)
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return "", false, fmt.Errorf("create admin user: %w", err)
	}

	return generated, true, nil
}

package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"acceso/internal/role/models"
	id "acceso/pkg/domain"
	dErrors "acceso/pkg/domain-errors"
	"acceso/pkg/platform/audit"
	"acceso/pkg/platform/sentinel"
	"acceso/pkg/requestcontext"
)

// Store is the persistence boundary for roles.
type Store interface {
	Create(ctx context.Context, role *models.Role) error
	Update(ctx context.Context, role *models.Role) error
	FindByID(ctx context.Context, roleID id.RoleID) (*models.Role, error)
	FindByName(ctx context.Context, name string) (*models.Role, error)
	List(ctx context.Context) ([]*models.Role, error)
	Delete(ctx context.Context, roleID id.RoleID) error
}

// UsageCounter reports how many accounts reference a role. Satisfied by the
// user store.
type UsageCounter interface {
	CountByRole(ctx context.Context, roleID id.RoleID) (int, error)
}

// Recorder captures audit events; see the user service for the contract.
type Recorder interface {
	Record(ctx context.Context, userID id.UserID, action audit.Action, details any)
}

// Service orchestrates role management. Role mutations are audited against
// the administrator performing them.
type Service struct {
	roles    Store
	usage    UsageCounter
	recorder Recorder
	logger   *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithRecorder(recorder Recorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

// New constructs a Service.
func New(roles Store, usage UsageCounter, opts ...Option) *Service {
	s := &Service{roles: roles, usage: usage}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new role with a unique name.
func (s *Service) Create(ctx context.Context, actorID id.UserID, name, description string) (*models.Role, error) {
	role, err := models.NewRole(id.RoleID(uuid.New()), name, description, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "role name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create role")
	}

	s.record(ctx, actorID, audit.ActionRoleCreated, map[string]any{"name": role.Name})
	s.logInfo(ctx, "role created", "role_id", role.ID.String(), "name", role.Name)
	return role, nil
}

// Get fetches a role by ID.
func (s *Service) Get(ctx context.Context, roleID id.RoleID) (*models.Role, error) {
	role, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		return nil, asLookupError(err)
	}
	return role, nil
}

// GetByName fetches a role by its unique name.
func (s *Service) GetByName(ctx context.Context, name string) (*models.Role, error) {
	role, err := s.roles.FindByName(ctx, name)
	if err != nil {
		return nil, asLookupError(err)
	}
	return role, nil
}

// List returns all roles ordered by name.
func (s *Service) List(ctx context.Context) ([]*models.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list roles")
	}
	return roles, nil
}

// UpdateParams carries optional field changes for a role.
type UpdateParams struct {
	Name        *string
	Description *string
}

// Update applies field changes to a role.
func (s *Service) Update(ctx context.Context, actorID id.UserID, roleID id.RoleID, params UpdateParams) (*models.Role, error) {
	role, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		return nil, asLookupError(err)
	}

	changes := map[string]any{}
	if params.Name != nil {
		renamed, err := models.NewRole(role.ID, *params.Name, role.Description, role.CreatedAt)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		changes["name"] = renamed.Name
		role.Name = renamed.Name
	}
	if params.Description != nil {
		changes["description"] = *params.Description
		role.Description = *params.Description
	}
	if len(changes) == 0 {
		return role, nil
	}
	role.Touch(requestcontext.Now(ctx))

	if err := s.roles.Update(ctx, role); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "role name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update role")
	}

	s.record(ctx, actorID, audit.ActionRoleUpdated, changes)
	return role, nil
}

// Delete removes a role. Refused while any account still references it.
func (s *Service) Delete(ctx context.Context, actorID id.UserID, roleID id.RoleID) error {
	role, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		return asLookupError(err)
	}

	inUse, err := s.usage.CountByRole(ctx, roleID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check role usage")
	}
	if inUse > 0 {
		return dErrors.New(dErrors.CodeConflict, "role is assigned to users")
	}

	if err := s.roles.Delete(ctx, roleID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "role not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete role")
	}

	s.record(ctx, actorID, audit.ActionRoleDeleted, map[string]any{"name": role.Name})
	s.logInfo(ctx, "role deleted", "role_id", roleID.String(), "name", role.Name)
	return nil
}

func (s *Service) record(ctx context.Context, actorID id.UserID, action audit.Action, details any) {
	if s.recorder != nil {
		s.recorder.Record(ctx, actorID, action, details)
	}
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func asLookupError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "role not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load role")
}

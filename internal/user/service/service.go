package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"acceso/internal/user/credentials"
	"acceso/internal/user/metrics"
	"acceso/internal/user/models"
	id "acceso/pkg/domain"
	dErrors "acceso/pkg/domain-errors"
	"acceso/pkg/platform/audit"
	"acceso/pkg/platform/sentinel"
	"acceso/pkg/requestcontext"
)

// Store is the persistence boundary for user accounts.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByPersonID(ctx context.Context, personID id.PersonID) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	ListByRole(ctx context.Context, roleID id.RoleID) ([]*models.User, error)
	Search(ctx context.Context, query string) ([]*models.User, error)
	Delete(ctx context.Context, userID id.UserID) error
}

// RoleDirectory answers whether a role exists. Satisfied by the role store.
type RoleDirectory interface {
	ExistsByID(ctx context.Context, roleID id.RoleID) (bool, error)
}

// Recorder captures audit events. Satisfied by audit.Recorder. Calls are
// void: audit outcome never influences the result of a user operation.
type Recorder interface {
	Record(ctx context.Context, userID id.UserID, action audit.Action, details any)
}

// Invalidator drops cached derived state for a user. Satisfied by the
// existence cache; optional.
type Invalidator interface {
	Invalidate(ctx context.Context, userID id.UserID)
}

// PasswordGenerator produces temporary passwords for resets.
type PasswordGenerator interface {
	Generate() (string, error)
}

// Service orchestrates account management and authentication.
//
// Every mutation persists its primary change first and records the audit
// event after; a failed mutation is never audited, and an audit failure is
// never visible in the mutation's result.
type Service struct {
	users       Store
	roles       RoleDirectory
	recorder    Recorder
	invalidator Invalidator
	passwords   PasswordGenerator
	logger      *slog.Logger
	metrics     *metrics.Metrics
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

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) {
		s.invalidator = inv
	}
}

func WithPasswordGenerator(gen PasswordGenerator) Option {
	return func(s *Service) {
		s.passwords = gen
	}
}

// New constructs a Service.
func New(users Store, roles RoleDirectory, opts ...Option) *Service {
	s := &Service{
		users:     users,
		roles:     roles,
		passwords: credentials.NewGenerator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams carries the input for account creation.
type CreateParams struct {
	Username string
	PersonID id.PersonID
	RoleID   id.RoleID
	Password string
}

// Create registers a new account. The username and person reference must be
// unused and the role must exist.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.User, error) {
	if err := credentials.ValidatePolicy(params.Password); err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, params.RoleID); err != nil {
		return nil, err
	}

	hash, err := credentials.Hash(params.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	user, err := models.NewUser(
		id.UserID(uuid.New()), params.Username, params.PersonID, params.RoleID,
		hash, requestcontext.Now(ctx),
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "username or person already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.record(ctx, user.ID, audit.ActionUserCreated, map[string]any{
		"username": user.Username,
		"role_id":  user.RoleID.String(),
	})
	if s.metrics != nil {
		s.metrics.IncrementUserCreated()
	}
	s.logInfo(ctx, "user created", "user_id", user.ID.String(), "username", user.Username)

	return user, nil
}

// Get fetches an account by ID.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, asLookupError(err)
	}
	return user, nil
}

// GetByUsername fetches an account by its unique username.
func (s *Service) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, asLookupError(err)
	}
	return user, nil
}

// GetByPerson fetches the account linked to a person record.
func (s *Service) GetByPerson(ctx context.Context, personID id.PersonID) (*models.User, error) {
	user, err := s.users.FindByPersonID(ctx, personID)
	if err != nil {
		return nil, asLookupError(err)
	}
	return user, nil
}

// List returns a page of accounts ordered by username.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

// ListByRole returns every account holding the given role.
func (s *Service) ListByRole(ctx context.Context, roleID id.RoleID) ([]*models.User, error) {
	users, err := s.users.ListByRole(ctx, roleID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users by role")
	}
	return users, nil
}

// Search returns accounts whose username contains the query, case-insensitive.
func (s *Service) Search(ctx context.Context, query string) ([]*models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "search query cannot be empty")
	}
	users, err := s.users.Search(ctx, query)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search users")
	}
	return users, nil
}

// UpdateParams carries optional field changes for an account. Nil fields are
// left untouched.
type UpdateParams struct {
	Username *string
	RoleID   *id.RoleID
	Active   *bool
}

// Update applies field changes to an account, re-checking uniqueness and
// role existence as needed.
func (s *Service) Update(ctx context.Context, userID id.UserID, params UpdateParams) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, asLookupError(err)
	}

	changes := map[string]any{}
	if params.Username != nil {
		username := strings.TrimSpace(*params.Username)
		if username == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "username cannot be empty")
		}
		changes["username"] = username
		user.Username = username
	}
	if params.RoleID != nil {
		if err := s.requireRole(ctx, *params.RoleID); err != nil {
			return nil, err
		}
		changes["role_id"] = params.RoleID.String()
		user.RoleID = *params.RoleID
	}
	if params.Active != nil {
		changes["active"] = *params.Active
		user.Active = *params.Active
	}
	if len(changes) == 0 {
		return user, nil
	}
	user.Touch(requestcontext.Now(ctx))

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "username or person already in use")
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}

	s.record(ctx, user.ID, audit.ActionUserUpdated, changes)
	return user, nil
}

// Delete removes an account. The audit event is recorded against actorID,
// the administrator performing the deletion; the removed account can no
// longer be an audit actor once its row is gone.
func (s *Service) Delete(ctx context.Context, userID id.UserID, actorID id.UserID) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return asLookupError(err)
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, userID)
	}

	s.record(ctx, actorID, audit.ActionUserDeleted, map[string]any{
		"deleted_user_id": userID.String(),
		"username":        user.Username,
	})
	if s.metrics != nil {
		s.metrics.IncrementUserDeleted()
	}
	s.logInfo(ctx, "user deleted", "user_id", userID.String())
	return nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID id.UserID, current, next string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return asLookupError(err)
	}
	if !credentials.Verify(current, user.PasswordHash) {
		return dErrors.New(dErrors.CodeValidation, "current password is incorrect")
	}
	if err := credentials.ValidatePolicy(next); err != nil {
		return err
	}

	hash, err := credentials.Hash(next)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	user.PasswordHash = hash
	user.Touch(requestcontext.Now(ctx))

	if err := s.users.Update(ctx, user); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update password")
	}

	s.record(ctx, user.ID, audit.ActionPasswordChanged, nil)
	return nil
}

// ResetPassword issues a generated temporary password for an account and
// returns it in plaintext, once. Intended for administrative resets.
func (s *Service) ResetPassword(ctx context.Context, userID id.UserID) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", asLookupError(err)
	}

	plaintext, err := s.passwords.Generate()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate password")
	}
	hash, err := credentials.Hash(plaintext)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	user.PasswordHash = hash
	user.Touch(requestcontext.Now(ctx))

	if err := s.users.Update(ctx, user); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to update password")
	}

	s.record(ctx, user.ID, audit.ActionPasswordReset, nil)
	return plaintext, nil
}

// Authenticate validates a username/password pair.
//
// The failure path is deliberately uniform: an unknown username, a wrong
// password, and an inactive account all yield the same unauthorized error and
// no audit event, so a caller probing the endpoint learns nothing about which
// accounts exist. Only a success leaves a trace.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveAuthenticate(start)
		}
	}()

	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.rejectLogin(ctx, username)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to authenticate")
	}
	if !credentials.Verify(password, user.PasswordHash) {
		return nil, s.rejectLogin(ctx, username)
	}
	if !user.IsActive() {
		return nil, s.rejectLogin(ctx, username)
	}

	s.record(ctx, user.ID, audit.ActionLoginSuccess, loginDetails(ctx))
	if s.metrics != nil {
		s.metrics.IncrementLoginSuccess()
	}
	s.logInfo(ctx, "login succeeded", "user_id", user.ID.String())

	return user, nil
}

func (s *Service) rejectLogin(ctx context.Context, username string) error {
	if s.metrics != nil {
		s.metrics.IncrementLoginFailure()
	}
	s.logInfo(ctx, "login rejected", "username", username)
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}

// loginDetails builds the login_success audit payload from the request
// context: client IP plus browser and OS parsed from the User-Agent header.
func loginDetails(ctx context.Context) map[string]any {
	details := map[string]any{}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		details["ip"] = ip
	}
	if raw := requestcontext.UserAgent(ctx); raw != "" {
		ua := useragent.New(raw)
		browser, version := ua.Browser()
		details["browser"] = strings.TrimSpace(browser + " " + version)
		details["os"] = ua.OS()
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

func (s *Service) requireRole(ctx context.Context, roleID id.RoleID) error {
	if roleID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "role reference is required")
	}
	exists, err := s.roles.ExistsByID(ctx, roleID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check role")
	}
	if !exists {
		return dErrors.New(dErrors.CodeValidation, "role does not exist")
	}
	return nil
}

func (s *Service) record(ctx context.Context, userID id.UserID, action audit.Action, details any) {
	if s.recorder != nil {
		s.recorder.Record(ctx, userID, action, details)
	}
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func asLookupError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"acceso/internal/user/models"
	"acceso/internal/user/service"
	id "acceso/pkg/domain"
	dErrors "acceso/pkg/domain-errors"
	"acceso/pkg/platform/httputil"
	request "acceso/pkg/platform/middleware/request"
)

// actorHeader identifies the administrator performing a destructive
// operation, for the audit trail.
const actorHeader = "X-Actor-Id"

// Service defines the account operations the handler exposes.
// Returns domain objects, not HTTP response DTOs.
type Service interface {
	Create(ctx context.Context, params service.CreateParams) (*models.User, error)
	Get(ctx context.Context, userID id.UserID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByPerson(ctx context.Context, personID id.PersonID) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	ListByRole(ctx context.Context, roleID id.RoleID) ([]*models.User, error)
	Search(ctx context.Context, query string) ([]*models.User, error)
	Update(ctx context.Context, userID id.UserID, params service.UpdateParams) (*models.User, error)
	Delete(ctx context.Context, userID id.UserID, actorID id.UserID) error
	ChangePassword(ctx context.Context, userID id.UserID, current, next string) error
	ResetPassword(ctx context.Context, userID id.UserID) (string, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/login", h.HandleLogin)
	r.Post("/admin/users", h.HandleCreateUser)
	r.Get("/admin/users", h.HandleListUsers)
	r.Get("/admin/users/{id}", h.HandleGetUser)
	r.Get("/admin/users/by-username/{username}", h.HandleGetUserByUsername)
	r.Get("/admin/users/by-person/{personID}", h.HandleGetUserByPerson)
	r.Put("/admin/users/{id}", h.HandleUpdateUser)
	r.Delete("/admin/users/{id}", h.HandleDeleteUser)
	r.Post("/admin/users/{id}/change-password", h.HandleChangePassword)
	r.Post("/admin/users/{id}/reset-password", h.HandleResetPassword)
}

// HandleLogin authenticates a username/password pair. Every failure mode
// returns the same 401 body.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	user, err := h.service.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &LoginResponse{User: toUserResponse(user)})
}

// HandleCreateUser registers a new account.
func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	params, err := req.ToParams()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	user, err := h.service.Create(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "create user failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

// HandleListUsers lists accounts. Supports ?q= substring search, ?role_id=
// filtering, and ?limit=/?offset= pagination; q and role_id are exclusive.
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	var (
		users []*models.User
		err   error
	)
	switch {
	case r.URL.Query().Get("q") != "":
		users, err = h.service.Search(ctx, r.URL.Query().Get("q"))
	case r.URL.Query().Get("role_id") != "":
		var roleID id.RoleID
		roleID, err = id.ParseRoleID(r.URL.Query().Get("role_id"))
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid role id"))
			return
		}
		users, err = h.service.ListByRole(ctx, roleID)
	default:
		limit, offset := pagination(r)
		users, err = h.service.List(ctx, limit, offset)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "list users failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toUserListResponse(users))
}

// HandleGetUser returns a single account.
func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	user, err := h.service.Get(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "get user failed", "error", err, "request_id", requestID, "user_id", userID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleGetUserByUsername resolves an account by its unique username.
func (h *Handler) HandleGetUserByUsername(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.service.GetByUsername(ctx, chi.URLParam(r, "username"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleGetUserByPerson resolves the account linked to a person record.
func (h *Handler) HandleGetUserByPerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	personID, err := id.ParsePersonID(chi.URLParam(r, "personID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid person id"))
		return
	}

	user, err := h.service.GetByPerson(ctx, personID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleUpdateUser applies field changes to an account.
func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	params, err := req.ToParams()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	user, err := h.service.Update(ctx, userID, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "update user failed", "error", err, "request_id", requestID, "user_id", userID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleDeleteUser removes an account. The X-Actor-Id header names the
// administrator performing the deletion for the audit trail.
func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}
	actorID, err := id.ParseUserID(r.Header.Get(actorHeader))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing or invalid X-Actor-Id header"))
		return
	}

	if err := h.service.Delete(ctx, userID, actorID); err != nil {
		h.logger.ErrorContext(ctx, "delete user failed", "error", err, "request_id", requestID, "user_id", userID)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleChangePassword replaces an account's password after verifying the
// current one.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[ChangePasswordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
		h.logger.ErrorContext(ctx, "change password failed", "error", err, "request_id", requestID, "user_id", userID)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleResetPassword issues a generated temporary password. The plaintext
// appears only in this response.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	plaintext, err := h.service.ResetPassword(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "reset password failed", "error", err, "request_id", requestID, "user_id", userID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &ResetPasswordResponse{TemporaryPassword: plaintext})
}

func (h *Handler) userIDParam(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return id.UserID{}, false
	}
	return userID, true
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

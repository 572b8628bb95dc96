package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"acceso/internal/role/models"
	"acceso/internal/role/service"
	id "acceso/pkg/domain"
	dErrors "acceso/pkg/domain-errors"
	"acceso/pkg/platform/httputil"
	request "acceso/pkg/platform/middleware/request"
)

const actorHeader = "X-Actor-Id"

// Service defines the role operations the handler exposes.
type Service interface {
	Create(ctx context.Context, actorID id.UserID, name, description string) (*models.Role, error)
	Get(ctx context.Context, roleID id.RoleID) (*models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
	List(ctx context.Context) ([]*models.Role, error)
	Update(ctx context.Context, actorID id.UserID, roleID id.RoleID, params service.UpdateParams) (*models.Role, error)
	Delete(ctx context.Context, actorID id.UserID, roleID id.RoleID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/roles", h.HandleCreateRole)
	r.Get("/admin/roles", h.HandleListRoles)
	r.Get("/admin/roles/{id}", h.HandleGetRole)
	r.Put("/admin/roles/{id}", h.HandleUpdateRole)
	r.Delete("/admin/roles/{id}", h.HandleDeleteRole)
}

type CreateRoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r *CreateRoleRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *CreateRoleRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

type UpdateRoleRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// HandleCreateRole registers a new role.
func (h *Handler) HandleCreateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateRoleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	role, err := h.service.Create(ctx, actorID, req.Name, req.Description)
	if err != nil {
		h.logger.ErrorContext(ctx, "create role failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, role)
}

// HandleListRoles lists all roles, or resolves one by ?name=.
func (h *Handler) HandleListRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if name := r.URL.Query().Get("name"); name != "" {
		role, err := h.service.GetByName(ctx, strings.ToUpper(strings.TrimSpace(name)))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, role)
		return
	}

	roles, err := h.service.List(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"roles": roles,
		"count": len(roles),
	})
}

// HandleGetRole returns a single role.
func (h *Handler) HandleGetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	roleID, ok := h.roleIDParam(w, r)
	if !ok {
		return
	}

	role, err := h.service.Get(ctx, roleID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, role)
}

// HandleUpdateRole applies field changes to a role.
func (h *Handler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	roleID, ok := h.roleIDParam(w, r)
	if !ok {
		return
	}
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateRoleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	role, err := h.service.Update(ctx, actorID, roleID, service.UpdateParams{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "update role failed", "error", err, "request_id", requestID, "role_id", roleID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, role)
}

// HandleDeleteRole removes a role; 409 while accounts still reference it.
func (h *Handler) HandleDeleteRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	roleID, ok := h.roleIDParam(w, r)
	if !ok {
		return
	}
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, actorID, roleID); err != nil {
		h.logger.ErrorContext(ctx, "delete role failed", "error", err, "request_id", requestID, "role_id", roleID)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) roleIDParam(w http.ResponseWriter, r *http.Request) (id.RoleID, bool) {
	roleID, err := id.ParseRoleID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid role id"))
		return id.RoleID{}, false
	}
	return roleID, true
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	actorID, err := id.ParseUserID(r.Header.Get(actorHeader))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing or invalid X-Actor-Id header"))
		return id.UserID{}, false
	}
	return actorID, true
}

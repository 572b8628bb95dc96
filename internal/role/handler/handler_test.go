package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acceso/internal/role/models"
	roleservice "acceso/internal/role/service"
	rolestore "acceso/internal/role/store"
	id "acceso/pkg/domain"
)

type fakeUsage struct {
	counts map[id.RoleID]int
}

func (f *fakeUsage) CountByRole(_ context.Context, roleID id.RoleID) (int, error) {
	return f.counts[roleID], nil
}

func newTestRouter(t *testing.T) (chi.Router, *fakeUsage) {
	t.Helper()
	usage := &fakeUsage{counts: map[id.RoleID]int{}}
	svc := roleservice.New(rolestore.NewInMemoryStore(), usage)
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	h.Register(r)
	return r, usage
}

func createRoleViaAPI(t *testing.T, r chi.Router, name string) models.Role {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(CreateRoleRequest{Name: name}))
	req := httptest.NewRequest(http.MethodPost, "/admin/roles", &buf)
	req.Header.Set(actorHeader, uuid.NewString())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var role models.Role
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &role))
	return role
}

func TestHandleCreateRole(t *testing.T) {
	r, _ := newTestRouter(t)

	role := createRoleViaAPI(t, r, "supervisor")
	assert.Equal(t, "SUPERVISOR", role.Name)

	// Without the actor header the request is rejected.
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(CreateRoleRequest{Name: "otro"}))
	req := httptest.NewRequest(http.MethodPost, "/admin/roles", &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListRoles_ByName(t *testing.T) {
	r, _ := newTestRouter(t)
	created := createRoleViaAPI(t, r, "ADMINISTRADOR")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/roles?name=administrador", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var role models.Role
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &role))
	assert.Equal(t, created.ID, role.ID)
}

func TestHandleDeleteRole_ConflictWhileReferenced(t *testing.T) {
	r, usage := newTestRouter(t)
	role := createRoleViaAPI(t, r, "SUPERVISOR")

	usage.counts[role.ID] = 1
	req := httptest.NewRequest(http.MethodDelete, "/admin/roles/"+role.ID.String(), nil)
	req.Header.Set(actorHeader, uuid.NewString())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	usage.counts[role.ID] = 0
	req = httptest.NewRequest(http.MethodDelete, "/admin/roles/"+role.ID.String(), nil)
	req.Header.Set(actorHeader, uuid.NewString())
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

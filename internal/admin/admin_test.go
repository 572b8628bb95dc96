package admin

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "acceso/pkg/domain"
	"acceso/pkg/platform/audit"
	"acceso/pkg/platform/audit/store/memory"
	"acceso/pkg/requestcontext"
)

type allowAllActors struct{}

func (allowAllActors) ExistsByID(context.Context, id.UserID) (bool, error) { return true, nil }

func newTestRouter(t *testing.T) (chi.Router, *memory.InMemoryStore, *audit.Recorder) {
	t.Helper()
	store := memory.NewInMemoryStore()
	recorder := audit.NewRecorder(store, allowAllActors{})
	h := New(store, recorder, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	h.Register(r)
	return r, store, recorder
}

func recordAt(recorder *audit.Recorder, userID id.UserID, action audit.Action, at time.Time) {
	ctx := requestcontext.WithTime(context.Background(), at)
	recorder.Record(ctx, userID, action, nil)
}

func get(r chi.Router, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandleListEvents_FiltersAndPagination(t *testing.T) {
	r, _, recorder := newTestRouter(t)
	actor := id.UserID(uuid.New())
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	recordAt(recorder, actor, audit.ActionUserCreated, base)
	recordAt(recorder, actor, audit.ActionLoginSuccess, base.Add(time.Hour))
	recordAt(recorder, actor, audit.ActionUserDeleted, base.Add(48*time.Hour))

	rec := get(r, "/admin/audit")
	require.Equal(t, http.StatusOK, rec.Code)
	var list EventListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 3, list.Count)
	assert.Equal(t, string(audit.ActionUserDeleted), list.Events[0].Action, "newest first")

	rec = get(r, "/admin/audit?action=login_success")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "operations", list.Events[0].Category)

	rec = get(r, "/admin/audit?from="+base.Format(time.RFC3339)+"&to="+base.Add(2*time.Hour).Format(time.RFC3339))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Count)

	rec = get(r, "/admin/audit?from=bogus&to="+base.Format(time.RFC3339))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetEvent(t *testing.T) {
	r, store, recorder := newTestRouter(t)
	actor := id.UserID(uuid.New())
	recorder.Record(context.Background(), actor, audit.ActionUserCreated, map[string]string{"username": "alice"})

	events, err := store.ListAll(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)

	rec := get(r, "/admin/audit/"+events[0].ID.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var event EventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
	assert.Equal(t, actor.String(), event.UserID)

	var details map[string]string
	require.NoError(t, json.Unmarshal(event.Details, &details))
	assert.Equal(t, "alice", details["username"])

	rec = get(r, "/admin/audit/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListEventsByUser(t *testing.T) {
	r, _, recorder := newTestRouter(t)
	alice := id.UserID(uuid.New())
	bob := id.UserID(uuid.New())
	recorder.Record(context.Background(), alice, audit.ActionUserCreated, nil)
	recorder.Record(context.Background(), bob, audit.ActionUserCreated, nil)

	rec := get(r, "/admin/audit/users/"+alice.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var list EventListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, alice.String(), list.Events[0].UserID)
}

func TestHandlePurge(t *testing.T) {
	r, _, recorder := newTestRouter(t)
	actor := id.UserID(uuid.New())
	old := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	recordAt(recorder, actor, audit.ActionUserCreated, old)
	recordAt(recorder, actor, audit.ActionUserUpdated, recent)

	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)

	req := httptest.NewRequest(http.MethodDelete, "/admin/audit?before="+cutoff, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var purge PurgeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &purge))
	assert.Equal(t, int64(1), purge.Removed)

	// Same cutoff again removes nothing.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/audit?before="+cutoff, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &purge))
	assert.Equal(t, int64(0), purge.Removed)

	// Missing cutoff is rejected.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/audit", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "acceso/pkg/domain"
	"acceso/pkg/platform/audit"
	"acceso/pkg/platform/audit/store/memory"
	"acceso/pkg/requestcontext"
)

type fakeActors struct {
	exists map[id.UserID]bool
	err    error
}

func (f *fakeActors) ExistsByID(_ context.Context, userID id.UserID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.exists[userID], nil
}

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error { return errors.New("store down") }
func (failingStore) FindByID(context.Context, id.AuditEventID) (audit.Event, error) {
	return audit.Event{}, errors.New("store down")
}
func (failingStore) ListByUser(context.Context, id.UserID, int, int) ([]audit.Event, error) {
	return nil, errors.New("store down")
}
func (failingStore) ListByAction(context.Context, string) ([]audit.Event, error) {
	return nil, errors.New("store down")
}
func (failingStore) ListBetween(context.Context, time.Time, time.Time) ([]audit.Event, error) {
	return nil, errors.New("store down")
}
func (failingStore) ListAll(context.Context, int, int) ([]audit.Event, error) {
	return nil, errors.New("store down")
}
func (failingStore) PurgeBefore(context.Context, time.Time) (int64, error) {
	return 0, errors.New("store down")
}

type panickingStore struct{ failingStore }

func (panickingStore) Append(context.Context, audit.Event) error { panic("store panicked") }

func newActor() id.UserID { return id.UserID(uuid.New()) }

func TestRecord_PersistsEventForExistingActor(t *testing.T) {
	store := memory.NewInMemoryStore()
	actor := newActor()
	recorder := audit.NewRecorder(store, &fakeActors{exists: map[id.UserID]bool{actor: true}})

	recorder.Record(context.Background(), actor, audit.ActionUserCreated, map[string]string{"username": "alice"})

	events, err := store.ListByUser(context.Background(), actor, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.ActionUserCreated), events[0].Action)
	assert.False(t, events[0].ID.IsNil())
	assert.False(t, events[0].Timestamp.IsZero())
	assert.True(t, json.Valid([]byte(events[0].Details)))
}

func TestRecord_SilentlyDropsMissingActor(t *testing.T) {
	store := memory.NewInMemoryStore()
	recorder := audit.NewRecorder(store, &fakeActors{exists: map[id.UserID]bool{}})

	recorder.Record(context.Background(), newActor(), audit.ActionUserUpdated, "detalle")

	events, err := store.ListAll(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRecord_AbsorbsActorLookupFailure(t *testing.T) {
	store := memory.NewInMemoryStore()
	recorder := audit.NewRecorder(store, &fakeActors{err: errors.New("directory down")})

	assert.NotPanics(t, func() {
		recorder.Record(context.Background(), newActor(), audit.ActionLoginSuccess, nil)
	})

	events, err := store.ListAll(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRecord_AbsorbsStoreFailure(t *testing.T) {
	actor := newActor()
	recorder := audit.NewRecorder(failingStore{}, &fakeActors{exists: map[id.UserID]bool{actor: true}})

	assert.NotPanics(t, func() {
		recorder.Record(context.Background(), actor, audit.ActionUserDeleted, "gone")
	})
}

func TestRecord_AbsorbsStorePanic(t *testing.T) {
	actor := newActor()
	recorder := audit.NewRecorder(panickingStore{}, &fakeActors{exists: map[id.UserID]bool{actor: true}})

	assert.NotPanics(t, func() {
		recorder.Record(context.Background(), actor, audit.ActionUserDeleted, nil)
	})
}

func TestRecord_SerializerFailureStillRecordsValidJSON(t *testing.T) {
	store := memory.NewInMemoryStore()
	actor := newActor()
	recorder := audit.NewRecorder(store, &fakeActors{exists: map[id.UserID]bool{actor: true}},
		audit.WithNormalizer(audit.NewNormalizer(audit.WithMarshal(func(any) ([]byte, error) {
			return nil, errors.New("serializer down")
		}))),
	)

	recorder.Record(context.Background(), actor, audit.ActionPasswordChanged, `note with "quotes"`)

	events, err := store.ListByUser(context.Background(), actor, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, json.Valid([]byte(events[0].Details)))
}

func TestRecord_SurvivesCancelledCallerContext(t *testing.T) {
	store := memory.NewInMemoryStore()
	actor := newActor()
	recorder := audit.NewRecorder(store, &fakeActors{exists: map[id.UserID]bool{actor: true}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	recorder.Record(ctx, actor, audit.ActionUserCreated, nil)

	events, err := store.ListByUser(context.Background(), actor, 10, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRecord_UsesPinnedClock(t *testing.T) {
	store := memory.NewInMemoryStore()
	actor := newActor()
	recorder := audit.NewRecorder(store, &fakeActors{exists: map[id.UserID]bool{actor: true}})

	pinned := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), pinned)
	recorder.Record(ctx, actor, audit.ActionRoleCreated, nil)

	events, err := store.ListByUser(context.Background(), actor, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Timestamp.Equal(pinned))
}

func TestRecord_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	actor := newActor()
	recorder := audit.NewRecorder(store, &fakeActors{exists: map[id.UserID]bool{actor: true}},
		audit.WithAsyncBuffer(16),
	)

	for range 5 {
		recorder.Record(context.Background(), actor, audit.ActionUserUpdated, nil)
	}
	recorder.Close()

	events, err := store.ListByUser(context.Background(), actor, 100, 0)
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestPurgeBefore_RemovesOnlyOlderEvents(t *testing.T) {
	store := memory.NewInMemoryStore()
	actor := newActor()
	recorder := audit.NewRecorder(store, &fakeActors{exists: map[id.UserID]bool{actor: true}})

	old := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	recorder.Record(requestcontext.WithTime(context.Background(), old), actor, audit.ActionUserCreated, nil)
	recorder.Record(requestcontext.WithTime(context.Background(), recent), actor, audit.ActionUserUpdated, nil)

	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	removed, err := recorder.PurgeBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	// Purging again with the same cutoff removes nothing.
	removed, err = recorder.PurgeBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)

	events, err := store.ListAll(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Timestamp.Equal(recent))
}

func TestPurgeBefore_PropagatesStoreError(t *testing.T) {
	recorder := audit.NewRecorder(failingStore{}, &fakeActors{})

	_, err := recorder.PurgeBefore(context.Background(), time.Now())
	assert.Error(t, err)
}

package session_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/crypt"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/session"
)

type staff struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

func validStaff(s staff) bool { return s.ID != "" && s.Role != "" }

func TestLifecycleOpenResumeClear(t *testing.T) {
	ctx := context.Background()
	mgr := session.NewManager(session.NewMemoryStore(), time.Hour, validStaff)

	s, err := mgr.Open(ctx, staff{ID: "u1", Role: "waiter"})
	require.NoError(t, err)
	assert.Equal(t, session.StateActive, s.State())

	again, err := mgr.Resume(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, again.Active())
	assert.Equal(t, "u1", again.Value.ID)

	require.NoError(t, mgr.Clear(ctx, again))
	assert.Equal(t, session.StateCleared, again.State())

	_, err = mgr.Resume(ctx, s.ID)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestOpenRejectsInvalidValue(t *testing.T) {
	mgr := session.NewManager(session.NewMemoryStore(), time.Hour, validStaff)
	_, err := mgr.Open(context.Background(), staff{})
	assert.Error(t, err)
}

func TestResumeUnknownID(t *testing.T) {
	mgr := session.NewManager[staff](session.NewMemoryStore(), time.Hour, nil)
	_, err := mgr.Resume(context.Background(), "missing")
	assert.ErrorIs(t, err, session.ErrNoSession)

	_, err = mgr.Resume(context.Background(), "")
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestCorruptRecordIsDiscarded(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	mgr := session.NewManager(store, time.Hour, validStaff)

	require.NoError(t, store.Save(ctx, session.Key("bad"), []byte("{not json"), time.Hour))

	_, err := mgr.Resume(ctx, "bad")
	assert.ErrorIs(t, err, session.ErrNoSession)

	_, err = store.Load(ctx, session.Key("bad"))
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestInvalidStoredValueIsDiscarded(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	mgr := session.NewManager(store, time.Hour, validStaff)

	rec := `{"value":{"id":"u1","role":""},"expires_at":"2999-01-01T00:00:00Z"}`
	require.NoError(t, store.Save(ctx, session.Key("x"), []byte(rec), time.Hour))

	_, err := mgr.Resume(ctx, "x")
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestExpiredRecordIsDiscarded(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	mgr := session.NewManager(store, time.Hour, validStaff)

	rec := `{"value":{"id":"u1","role":"kitchen"},"expires_at":"2000-01-01T00:00:00Z"}`
	require.NoError(t, store.Save(ctx, session.Key("old"), []byte(rec), time.Hour))

	_, err := mgr.Resume(ctx, "old")
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestFileStoreSurvivesNewManager(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := session.NewFileStore(dir)
	require.NoError(t, err)
	s, err := session.NewManager(store, time.Hour, validStaff).Open(ctx, staff{ID: "u2", Role: "kitchen"})
	require.NoError(t, err)

	reopened, err := session.NewFileStore(dir)
	require.NoError(t, err)
	back, err := session.NewManager(reopened, time.Hour, validStaff).Resume(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "kitchen", back.Value.Role)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "restaurant_user_"+s.ID+".json", entries[0].Name())
}

func TestFileStoreCorruptFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := session.NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "restaurant_user_abc.json"), []byte("garbage"), 0o600))

	_, err = session.NewManager(store, time.Hour, validStaff).Resume(ctx, "abc")
	assert.ErrorIs(t, err, session.ErrNoSession)

	_, err = os.Stat(filepath.Join(dir, "restaurant_user_abc.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "init", session.StateInit.String())
	assert.Equal(t, "active", session.StateActive.String())
	assert.Equal(t, "cleared", session.StateCleared.String())
}

func TestSealedStoreEncryptsAtRest(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	files, err := session.NewFileStore(dir)
	require.NoError(t, err)
	box, err := crypt.New("session-key")
	require.NoError(t, err)

	mgr := session.NewManager(session.NewSealedStore(files, box), time.Hour, validStaff)
	s, err := mgr.Open(ctx, staff{ID: "u-secret", Role: "waiter"})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	raw, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "u-secret")

	back, err := mgr.Resume(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "u-secret", back.Value.ID)

	// A rotated key makes old records unreadable; they are dropped.
	other, _ := crypt.New("rotated")
	rotated := session.NewManager(session.NewSealedStore(files, other), time.Hour, validStaff)
	_, err = rotated.Resume(ctx, s.ID)
	assert.ErrorIs(t, err, session.ErrNoSession)
	_, err = mgr.Resume(ctx, s.ID)
	assert.ErrorIs(t, err, session.ErrNoSession, "record was deleted")
}

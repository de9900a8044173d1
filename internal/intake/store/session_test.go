// internal/intake/store/session_test.go
package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transaction-intake/internal/common/config"
	"transaction-intake/internal/common/database"
	stderrors "transaction-intake/internal/common/errors"
	"transaction-intake/internal/intake/draft"
)

func newTestSessionStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewSessionStore(rdb, 30*time.Minute), mr
}

func TestSessionStore_CreateAndLoad(t *testing.T) {
	ss, _ := newTestSessionStore(t)
	ctx := context.Background()

	sessionID, st, err := ss.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)
	assert.Equal(t, 1, st.Step())

	loaded, err := ss.Load(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Step())
	assert.NotNil(t, loaded.Draft().Documents)
}

func TestSessionStore_SaveRoundTrip(t *testing.T) {
	ss, _ := newTestSessionStore(t)
	ctx := context.Background()

	sessionID, st, err := ss.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, st.SetField("agentRole", string(draft.RoleDualAgent)))
	require.NoError(t, st.SetField("property.address", "123 Main St"))
	c := st.AddClient(draft.ClientSeller)
	st.GoToStep(3)
	require.NoError(t, ss.Save(ctx, sessionID, st))

	loaded, err := ss.Load(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Step())
	assert.Equal(t, draft.RoleDualAgent, loaded.Draft().AgentRole)
	assert.Equal(t, "123 Main St", loaded.Draft().Property.Address)
	require.Len(t, loaded.Draft().Clients, 1)
	assert.Equal(t, c.ID, loaded.Draft().Clients[0].ID)
	assert.Equal(t, draft.ClientSeller, loaded.Draft().Clients[0].Type)
}

func TestSessionStore_LoadMissing(t *testing.T) {
	ss, _ := newTestSessionStore(t)

	_, err := ss.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeSessionNotFound))
}

func TestSessionStore_Expiry(t *testing.T) {
	ss, mr := newTestSessionStore(t)
	ctx := context.Background()

	sessionID, _, err := ss.Create(ctx)
	require.NoError(t, err)

	mr.FastForward(31 * time.Minute)

	_, err = ss.Load(ctx, sessionID)
	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeSessionNotFound))
}

func TestSessionStore_CorruptPayload(t *testing.T) {
	ss, mr := newTestSessionStore(t)

	require.NoError(t, mr.Set(sessionKeyPrefix+"bad", "{not json"))

	_, err := ss.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeSessionStoreFailed))
}

func TestSessionStore_Count(t *testing.T) {
	ss, mr := newTestSessionStore(t)
	ctx := context.Background()

	n, err := ss.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	first, _, err := ss.Create(ctx)
	require.NoError(t, err)
	_, _, err = ss.Create(ctx)
	require.NoError(t, err)

	n, err = ss.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, ss.Delete(ctx, first))
	n, err = ss.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Expired sessions fall out of the count without any explicit delete.
	mr.FastForward(31 * time.Minute)
	n, err = ss.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSessionStore_Delete(t *testing.T) {
	ss, _ := newTestSessionStore(t)
	ctx := context.Background()

	sessionID, _, err := ss.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, ss.Delete(ctx, sessionID))

	_, err = ss.Load(ctx, sessionID)
	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeSessionNotFound))
}

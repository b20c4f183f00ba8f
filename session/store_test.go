package session_test

import (
	"context"
	"testing"

	"github.com/miu-servicedesk/portal/session"
	"github.com/miu-servicedesk/portal/users"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *session.Store {
	t.Helper()
	return session.NewStore(session.NewInMemoryRepo(), "sid-1")
}

func TestStoreTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	token, err := store.Token(ctx)
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, store.SetToken(ctx, "t1"))
	token, err = store.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "t1", token)
}

func TestStoreUserNormalizedOnRead(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.SetUser(ctx, &users.User{
		FirstName: "Nour",
		LastName:  "Adel",
		Role:      "technician",
	}))

	user, err := store.User(ctx)
	require.NoError(t, err)
	require.Equal(t, users.RoleTechnician, user.Role)
	require.Equal(t, "Nour Adel", user.DisplayName)
}

func TestStorePendingLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	pending, err := store.Pending(ctx)
	require.NoError(t, err)
	require.Nil(t, pending)

	require.NoError(t, store.SetPending(ctx, &session.Pending{
		Email:   "a@miuegypt.edu.eg",
		Purpose: session.PurposeVerification,
	}))

	pending, err = store.Pending(ctx)
	require.NoError(t, err)
	require.Equal(t, session.PurposeVerification, pending.Purpose)

	require.NoError(t, store.ClearPending(ctx))
	pending, err = store.Pending(ctx)
	require.NoError(t, err)
	require.Nil(t, pending)
}

func TestStoreClearAllIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.SetToken(ctx, "t1"))
	require.NoError(t, store.SetUser(ctx, &users.User{Role: users.RoleAdmin}))
	require.NoError(t, store.SetPending(ctx, &session.Pending{Email: "a@miuegypt.edu.eg", Purpose: session.PurposeLogin}))

	require.NoError(t, store.ClearAll(ctx))
	require.NoError(t, store.ClearAll(ctx))

	state, err := store.State(ctx)
	require.NoError(t, err)
	require.Empty(t, state.Token)
	require.Nil(t, state.User)
	require.Nil(t, state.Pending)
	require.False(t, state.Remember)
}

func TestStoreFlashIsOneShot(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.SetFlash(ctx, "access denied"))

	flash, err := store.TakeFlash(ctx)
	require.NoError(t, err)
	require.Equal(t, "access denied", flash)

	flash, err = store.TakeFlash(ctx)
	require.NoError(t, err)
	require.Empty(t, flash)
}

func TestStoreSnapshotsDoNotAlias(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.SetUser(ctx, &users.User{Role: users.RoleStudent}))

	user, err := store.User(ctx)
	require.NoError(t, err)
	user.Role = users.RoleAdmin

	again, err := store.User(ctx)
	require.NoError(t, err)
	require.Equal(t, users.RoleStudent, again.Role)
}

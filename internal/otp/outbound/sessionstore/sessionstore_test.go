package sessionstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*SessionStore, *session.Manager, context.Context) {
	t.Helper()

	mgr := session.NewManager(session.ManagerConfig{Store: memstore.NewWithCleanupInterval(0)})
	ctx, err := mgr.Load(context.Background(), "")
	require.NoError(t, err)

	return New(mgr, instrument.NewNoop()), mgr, ctx
}

func TestSessionStore_BeginPeekConsume(t *testing.T) {
	store, mgr, ctx := newStore(t)

	ch, err := store.PeekChallenge(ctx)
	require.NoError(t, err)
	assert.Nil(t, ch)

	exp := time.UnixMilli(1_767_261_900_000)
	require.NoError(t, store.BeginChallenge(ctx, entity.Challenge{Email: "user@x.com", Digest: "d1", ExpiresAt: exp}))
	assert.Equal(t, "1767261900000", mgr.GetString(ctx, KeyExpiration))

	ch, err = store.PeekChallenge(ctx)
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.Equal(t, entity.Challenge{Email: "user@x.com", Digest: "d1", ExpiresAt: exp}, *ch)

	// Peek does not mutate.
	again, err := store.PeekChallenge(ctx)
	require.NoError(t, err)
	assert.Equal(t, ch, again)

	// Begin replaces.
	require.NoError(t, store.BeginChallenge(ctx, entity.Challenge{Email: "b@x.com", Digest: "d2", ExpiresAt: exp}))
	ch, err = store.PeekChallenge(ctx)
	require.NoError(t, err)
	assert.Equal(t, "d2", ch.Digest)

	require.NoError(t, store.ConsumeChallenge(ctx))
	require.NoError(t, store.ConsumeChallenge(ctx))
	ch, err = store.PeekChallenge(ctx)
	require.NoError(t, err)
	assert.Nil(t, ch)
}

func TestSessionStore_PartialRecordIsAbsent(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{"missing email", map[string]string{KeyCode: "d", KeyExpiration: "1"}},
		{"missing expiration", map[string]string{KeyCode: "d", KeyEmail: "a@b.c"}},
		{"missing code", map[string]string{KeyEmail: "a@b.c", KeyExpiration: "1"}},
		{"empty code", map[string]string{KeyCode: "", KeyEmail: "a@b.c", KeyExpiration: "1"}},
		{"bad expiration", map[string]string{KeyCode: "d", KeyEmail: "a@b.c", KeyExpiration: "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mgr, ctx := newStore(t)
			for k, v := range tt.values {
				mgr.Put(ctx, k, v)
			}

			ch, err := store.PeekChallenge(ctx)
			require.NoError(t, err)
			assert.Nil(t, ch)
		})
	}
}

func TestSessionStore_RedeemChallenge(t *testing.T) {
	store, _, ctx := newStore(t)
	require.NoError(t, store.BeginChallenge(ctx, entity.Challenge{Email: "a@b.c", Digest: "d", ExpiresAt: time.Now()}))

	keep := errors.New("keep")
	err := store.RedeemChallenge(ctx, func(ch *entity.Challenge) (bool, error) {
		require.NotNil(t, ch)
		return false, keep
	})
	assert.ErrorIs(t, err, keep)

	ch, err := store.PeekChallenge(ctx)
	require.NoError(t, err)
	require.NotNil(t, ch)

	require.NoError(t, store.RedeemChallenge(ctx, func(*entity.Challenge) (bool, error) { return true, nil }))

	require.NoError(t, store.RedeemChallenge(ctx, func(ch *entity.Challenge) (bool, error) {
		assert.Nil(t, ch)
		return false, nil
	}))
}

func TestSessionStore_Principal(t *testing.T) {
	store, mgr, ctx := newStore(t)
	token := mgr.Token(ctx)

	p, err := store.GetPrincipal(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, store.BeginChallenge(ctx, entity.Challenge{Email: "a@b.c", Digest: "d", ExpiresAt: time.Now()}))
	require.NoError(t, store.EstablishPrincipal(ctx, entity.Principal{Email: "a@b.c", Authenticated: true}))
	assert.Equal(t, "true", mgr.GetString(ctx, KeyLoggedIn))
	assert.NotEqual(t, token, mgr.Token(ctx))

	p, err = store.GetPrincipal(ctx)
	require.NoError(t, err)
	assert.Equal(t, &entity.Principal{Email: "a@b.c", Authenticated: true}, p)

	require.NoError(t, store.ClearPrincipal(ctx))
	p, err = store.GetPrincipal(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	for _, k := range []string{KeyViewerEmail, KeyLoggedIn} {
		assert.False(t, mgr.Exists(ctx, k), k)
	}
	// The challenge is only dropped by ConsumeChallenge.
	assert.True(t, mgr.Exists(ctx, KeyCode))
}

func TestSessionStore_RemovingAbsentKeysKeepsSessionUnmodified(t *testing.T) {
	store, mgr, ctx := newStore(t)

	require.NoError(t, store.ConsumeChallenge(ctx))
	require.NoError(t, store.ClearPrincipal(ctx))
	assert.Equal(t, scs.Unmodified, mgr.Status(ctx))
}

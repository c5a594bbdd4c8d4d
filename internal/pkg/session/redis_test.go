package session

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestRedisStore_WithManager(t *testing.T) {
	mr, client := setupMiniredis(t)
	codec := newCodec(t)
	mgr := NewManager(ManagerConfig{
		Store:  NewRedisStore(client),
		Locker: NewRedisLocker(client, uid.NewUUID(), 5*time.Millisecond),
		Codec:  codec,
		Cookie: CookieConfig{Name: "otp_session"},
		TTL:    time.Hour,
	})

	put := mgr.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		mgr.Put(r.Context(), "otp_email", "a@b.co")
	}))
	get := mgr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(mgr.GetString(r.Context(), "otp_email")))
	}))

	c := sessionCookie(t, serve(t, put, nil))
	require.NotNil(t, c)

	key := "session:" + c.Value
	require.True(t, mr.Exists(key))
	ttl := mr.TTL(key)
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	raw, err := mr.Get(key)
	require.NoError(t, err)
	_, values, err := codec.Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", values["otp_email"])

	assert.Equal(t, "a@b.co", serve(t, get, c).Body.String())
	// The request lock is gone once the response is out.
	for _, k := range mr.Keys() {
		assert.NotContains(t, k, redisLockPrefix)
	}

	mr.Close()
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, get, c).Code)
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	mr, client := setupMiniredis(t)
	l := NewRedisLocker(client, uid.NewUUID(), 5*time.Millisecond)

	unlock, err := l.Lock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("session-lock:k"))

	_, err = l.Lock(ctx, "k", 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	assert.False(t, mr.Exists("session-lock:k"))

	unlock2, err := l.Lock(ctx, "k", time.Second)
	require.NoError(t, err)

	// A stale unlock from the first holder must not release the new owner.
	unlock()
	assert.True(t, mr.Exists("session-lock:k"))
	unlock2()
}

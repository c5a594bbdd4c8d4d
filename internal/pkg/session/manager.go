package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
)

// Locker serializes work on one key across concurrent requests.
type Locker interface {
	// Lock blocks until key is held or ctx is done. The lock is released by the
	// returned func, or after ttl when the holder disappears.
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// ManagerConfig holds the Manager dependencies.
type ManagerConfig struct {
	// Store persists records; nil uses the scs in-memory store.
	Store  scs.Store
	Locker Locker
	// Codec serializes records; nil uses the scs gob codec.
	Codec  scs.Codec
	Cookie CookieConfig
	// TTL is the lifetime of a session. It is not extended by activity.
	TTL time.Duration
	// LockTTL bounds how long one request may hold a session.
	LockTTL time.Duration
}

// Manager loads and commits sessions around HTTP handlers. The scs helpers
// (Put, GetString, Remove, RenewToken, Destroy...) are promoted from the
// embedded SessionManager.
type Manager struct {
	*scs.SessionManager

	locker  Locker
	lockTTL time.Duration
}

// NewManager returns a Manager, filling unset cookie and ttl fields with defaults.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Cookie.Name == "" {
		cfg.Cookie.Name = "session"
	}
	if cfg.Cookie.Path == "" {
		cfg.Cookie.Path = "/"
	}
	if cfg.Cookie.SameSite == 0 {
		cfg.Cookie.SameSite = http.SameSiteLaxMode
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	if cfg.Locker == nil {
		cfg.Locker = NewMemoryLocker()
	}

	sm := scs.New()
	if cfg.Store != nil {
		sm.Store = cfg.Store
	}
	if cfg.Codec != nil {
		sm.Codec = cfg.Codec
	}
	sm.Lifetime = cfg.TTL
	sm.Cookie = scs.SessionCookie{
		Name:     cfg.Cookie.Name,
		Domain:   cfg.Cookie.Domain,
		HttpOnly: cfg.Cookie.HTTPOnly,
		Path:     cfg.Cookie.Path,
		Persist:  true,
		SameSite: cfg.Cookie.SameSite,
		Secure:   cfg.Cookie.Secure,
	}
	sm.ErrorFunc = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.ErrorContext(r.Context(), "session store failed", "error", err)
		writeUnavailable(w)
	}

	return &Manager{
		SessionManager: sm,
		locker:         cfg.Locker,
		lockTTL:        cfg.LockTTL,
	}
}

// Middleware wraps next with scs load and commit. A request presenting a
// session token holds that token's lock until the session is committed.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	loadAndSave := m.LoadAndSave(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(m.Cookie.Name); err == nil && c.Value != "" {
			unlock, err := m.locker.Lock(r.Context(), lockKey(c.Value), m.lockTTL)
			if err != nil {
				slog.ErrorContext(r.Context(), "failed to lock session", "error", err)
				writeUnavailable(w)
				return
			}
			defer unlock()
		}

		loadAndSave.ServeHTTP(w, r)
	})
}

// lockKey keeps raw tokens out of the lock namespace.
func lockKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

func writeUnavailable(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(`{"message":"session store unavailable"}` + "\n"))
}

package otp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2/memstore"
	"github.com/shandysiswandi/otpgate/internal/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/session"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	srv    *httptest.Server
	client *http.Client
	codes  chan event.OTPChallengeRequestedMessage
}

func newConfig(t *testing.T, yaml string) config.Config {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	require.NoError(t, err)
	return cfg
}

func newHarness(t *testing.T, yaml string) *harness {
	t.Helper()

	cfg := newConfig(t, yaml)
	v, err := validator.NewV10()
	require.NoError(t, err)
	h, err := hash.NewHMACSHA256("test-secret")
	require.NoError(t, err)

	broker := messaging.NewMemory(8)
	pool := goroutine.NewPool(2, 8)
	t.Cleanup(func() {
		_ = pool.Close()
		_ = broker.Close()
	})

	codes := make(chan event.OTPChallengeRequestedMessage, 8)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = broker.Consume(ctx, event.OTPChallengeRequestedDestination, func(_ context.Context, msg messaging.Message) error {
			var m event.OTPChallengeRequestedMessage
			if err := json.Unmarshal(msg.Body, &m); err != nil {
				return err
			}
			codes <- m
			return nil
		}, messaging.WithGroup("test"))
	}()

	codec, err := session.NewSignedCodec("test-secret")
	require.NoError(t, err)
	mgr := session.NewManager(session.ManagerConfig{
		Store:  memstore.NewWithCleanupInterval(0),
		Codec:  codec,
		Cookie: session.CookieConfig{Name: "otp_session", HTTPOnly: true},
	})
	r := router.NewRouter(router.Config{
		Config:      cfg,
		UUID:        uid.NewUUID(),
		Middlewares: []router.Middleware{mgr.Middleware},
	})

	require.NoError(t, otp.New(otp.Dependency{
		Config:     cfg,
		Router:     r,
		Sessions:   mgr,
		Pool:       pool,
		Publisher:  broker,
		HMAC:       h,
		Clock:      clock.New(),
		Validator:  v,
		Instrument: instrument.NewNoop(),
	}))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	// Messages published before the consumer joins are dropped.
	require.Eventually(t, func() bool {
		return broker.Groups(event.OTPChallengeRequestedDestination) == 1
	}, time.Second, 5*time.Millisecond)

	return &harness{srv: srv, client: &http.Client{Jar: jar}, codes: codes}
}

func (h *harness) call(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (h *harness) sessionCookie(t *testing.T) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.srv.URL, nil)
	require.NoError(t, err)
	for _, c := range h.client.Jar.Cookies(req.URL) {
		if c.Name == "otp_session" {
			return c.Value
		}
	}
	return ""
}

func (h *harness) nextCode(t *testing.T) event.OTPChallengeRequestedMessage {
	t.Helper()
	select {
	case m := <-h.codes:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no otp notification published")
		return event.OTPChallengeRequestedMessage{}
	}
}

func TestOTPFlow(t *testing.T) {
	h := newHarness(t, "otp:\n  length: 6\n  expiration_seconds: 300\n")

	status, body := h.call(t, http.MethodGet, "/api/v1/otp/content", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, map[string]any{"next": "/api/v1/otp/request"}, body["error"])

	status, _ = h.call(t, http.MethodPost, "/api/v1/otp/verify", map[string]string{"otp": "123456"})
	assert.Equal(t, http.StatusConflict, status)

	status, body = h.call(t, http.MethodPost, "/api/v1/otp/request", map[string]string{"email": "User@X.com"})
	require.Equal(t, http.StatusCreated, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "User@X.com", data["email"])
	assert.EqualValues(t, 5, data["expiry_minutes"])

	msg := h.nextCode(t)
	assert.Equal(t, "User@X.com", msg.Email)
	assert.Equal(t, 5, msg.ExpiryMinutes)
	// The subject names the host the visitor typed, port included.
	assert.Equal(t, strings.TrimPrefix(h.srv.URL, "http://"), msg.Host)
	assert.Contains(t, msg.Host, ":")
	require.Len(t, msg.Code, 6)

	status, body = h.call(t, http.MethodGet, "/api/v1/otp/verify", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "User@X.com", body["data"].(map[string]any)["email"])

	wrong := "000000"
	if msg.Code == wrong {
		wrong = "111111"
	}
	status, _ = h.call(t, http.MethodPost, "/api/v1/otp/verify", map[string]string{"otp": wrong})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = h.call(t, http.MethodPost, "/api/v1/otp/verify", map[string]string{"otp": "12ab"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, map[string]any{"otp": "otp must be exactly 6 digits"}, body["error"])

	before := h.sessionCookie(t)
	status, _ = h.call(t, http.MethodPost, "/api/v1/otp/verify", map[string]string{"otp": msg.Code})
	require.Equal(t, http.StatusOK, status)
	assert.NotEqual(t, before, h.sessionCookie(t), "session id must rotate on login")

	status, body = h.call(t, http.MethodGet, "/api/v1/otp/content", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "User@X.com", body["data"].(map[string]any)["viewer_email"])

	status, body = h.call(t, http.MethodGet, "/api/v1/otp/state", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Authenticated", body["data"].(map[string]any)["state"])

	status, _ = h.call(t, http.MethodPost, "/api/v1/otp/verify", map[string]string{"otp": msg.Code})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = h.call(t, http.MethodPost, "/api/v1/otp/logout", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = h.call(t, http.MethodGet, "/api/v1/otp/content", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestNew_RejectsBadPolicy(t *testing.T) {
	cfg := newConfig(t, "otp:\n  length: 0\n")
	v, err := validator.NewV10()
	require.NoError(t, err)
	h, err := hash.NewHMACSHA256("k")
	require.NoError(t, err)

	err = otp.New(otp.Dependency{
		Config:     cfg,
		Router:     router.NewRouter(router.Config{Config: cfg}),
		Sessions:   session.NewManager(session.ManagerConfig{}),
		Pool:       goroutine.NewPool(1, 1),
		Publisher:  messaging.NewMemory(1),
		HMAC:       h,
		Clock:      clock.New(),
		Validator:  v,
		Instrument: instrument.NewNoop(),
	})
	assert.ErrorIs(t, err, otp.ErrInvalidCodeLength)
}

func TestVerify_ConcurrentSameCookieSucceedsOnce(t *testing.T) {
	h := newHarness(t, "otp:\n  length: 6\n")

	status, _ := h.call(t, http.MethodPost, "/api/v1/otp/request", map[string]string{"email": "a@b.co"})
	require.Equal(t, http.StatusCreated, status)
	code := h.nextCode(t).Code
	cookie := h.sessionCookie(t)
	require.NotEmpty(t, cookie)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = map[int]int{}
	)
	for range 20 {
		wg.Go(func() {
			req, err := http.NewRequest(http.MethodPost, h.srv.URL+"/api/v1/otp/verify", strings.NewReader(`{"otp":"`+code+`"}`))
			if !assert.NoError(t, err) {
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.AddCookie(&http.Cookie{Name: "otp_session", Value: cookie})

			resp, err := http.DefaultClient.Do(req)
			if !assert.NoError(t, err) {
				return
			}
			_ = resp.Body.Close()

			mu.Lock()
			statuses[resp.StatusCode]++
			mu.Unlock()
		})
	}
	wg.Wait()

	assert.Equal(t, map[int]int{http.StatusOK: 1, http.StatusConflict: 19}, statuses)
}

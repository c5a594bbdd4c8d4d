package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/otp/outbound/sessionstore"
	"github.com/shandysiswandi/otpgate/internal/otp/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/session"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codes struct {
	mu   sync.Mutex
	next []string
	err  error
}

func (c *codes) Generate(length int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	code := c.next[0]
	c.next = c.next[1:]
	return code, nil
}

type notifications struct {
	mu   sync.Mutex
	sent []usecase.ChallengeNotification
}

func (n *notifications) NotifyChallenge(_ context.Context, in usecase.ChallengeNotification) {
	n.mu.Lock()
	n.sent = append(n.sent, in)
	n.mu.Unlock()
}

type fixture struct {
	uc     *usecase.Usecase
	clock  *clock.Frozen
	codes  *codes
	notify *notifications
	mgr    *session.Manager
	ctx    context.Context
}

func newFixture(t *testing.T, gen ...string) *fixture {
	t.Helper()

	v, err := validator.NewV10()
	require.NoError(t, err)
	h, err := hash.NewHMACSHA256("test-secret")
	require.NoError(t, err)

	f := &fixture{
		clock:  clock.NewFrozen(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		codes:  &codes{next: gen},
		notify: &notifications{},
		mgr:    session.NewManager(session.ManagerConfig{Store: memstore.NewWithCleanupInterval(0)}),
	}
	f.ctx, err = f.mgr.Load(context.Background(), "")
	require.NoError(t, err)
	f.uc = usecase.New(usecase.Dependency{
		Config:      usecase.Config{CodeLength: 6, Expiration: 300 * time.Second},
		RepoSession: sessionstore.New(f.mgr, instrument.NewNoop()),
		Notifier:    f.notify,
		Generator:   f.codes,
		HMAC:        h,
		Clock:       f.clock,
		Validator:   v,
		Instrument:  instrument.NewNoop(),
	})
	return f
}

func (f *fixture) request(t *testing.T, email string) *usecase.RequestChallengeOutput {
	t.Helper()
	out, err := f.uc.RequestChallenge(f.ctx, usecase.RequestChallengeInput{Email: email, Host: "example.com"})
	require.NoError(t, err)
	return out
}

func (f *fixture) verify(code string) error {
	_, err := f.uc.VerifyChallenge(f.ctx, usecase.VerifyChallengeInput{Code: code})
	return err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	return gerr.StatusCode()
}

func TestRequestChallenge(t *testing.T) {
	f := newFixture(t, "042917")

	// Only surrounding whitespace is dropped; the mailbox is used as typed.
	out := f.request(t, "  User@X.com ")
	assert.Equal(t, "User@X.com", out.Email)
	assert.Equal(t, f.clock.Now().Add(5*time.Minute), out.ExpiresAt)
	assert.Equal(t, 5, out.ExpiryMinutes)

	require.Len(t, f.notify.sent, 1)
	assert.Equal(t, usecase.ChallengeNotification{Email: "User@X.com", Code: "042917", ExpiryMinutes: 5, Host: "example.com"}, f.notify.sent[0])
	assert.Equal(t, "User@X.com", f.mgr.GetString(f.ctx, sessionstore.KeyEmail))

	stored := f.mgr.GetString(f.ctx, sessionstore.KeyCode)
	assert.NotEqual(t, "042917", stored, "code must be stored as a digest")
	assert.NotEmpty(t, stored)

	st, err := f.uc.State(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.StateChallengePending, st.State)

	pending, err := f.uc.PendingChallenge(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "User@X.com", pending.Email)
}

func TestRequestChallenge_InvalidEmail(t *testing.T) {
	for _, email := range []string{"", "   ", "not-an-email", "a@"} {
		f := newFixture(t, "111111")
		_, err := f.uc.RequestChallenge(f.ctx, usecase.RequestChallengeInput{Email: email})
		require.Error(t, err, email)
		assert.Equal(t, 422, statusOf(t, err))

		var verr validator.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Values(), "email")
		assert.Empty(t, f.notify.sent)
	}
}

func TestRequestChallenge_GeneratorFailure(t *testing.T) {
	f := newFixture(t)
	f.codes.err = otp.ErrInvalidLength

	_, err := f.uc.RequestChallenge(f.ctx, usecase.RequestChallengeInput{Email: "a@b.c"})
	assert.Equal(t, 500, statusOf(t, err))
	assert.ErrorIs(t, err, otp.ErrInvalidLength)
}

func TestVerifyChallenge_Scenario(t *testing.T) {
	f := newFixture(t, "042917")
	f.request(t, "user@x.com")

	out, err := f.uc.VerifyChallenge(f.ctx, usecase.VerifyChallengeInput{Code: "042917"})
	require.NoError(t, err)
	assert.Equal(t, "user@x.com", out.Email)

	st, err := f.uc.State(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.StateAuthenticated, st.State)
	assert.Equal(t, "user@x.com", st.Email)

	content, err := f.uc.Content(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "user@x.com", content.ViewerEmail)

	// Single use.
	err = f.verify("042917")
	assert.ErrorIs(t, err, entity.ErrNoPendingChallenge)
	assert.Equal(t, 409, statusOf(t, err))
}

func TestVerifyChallenge_NoChallenge(t *testing.T) {
	f := newFixture(t)

	err := f.verify("123456")
	assert.ErrorIs(t, err, entity.ErrNoPendingChallenge)

	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, map[string]string{"next": usecase.RequestEntryPoint}, gerr.Fields())

	// The check precedes format validation.
	assert.ErrorIs(t, f.verify("abc"), entity.ErrNoPendingChallenge)
}

func TestVerifyChallenge_SecondRequestReplacesFirst(t *testing.T) {
	f := newFixture(t, "111111", "222222")
	f.request(t, "a@x.com")
	f.request(t, "b@x.com")

	assert.ErrorIs(t, f.verify("111111"), entity.ErrCodeMismatch)

	out, err := f.uc.VerifyChallenge(f.ctx, usecase.VerifyChallengeInput{Code: "222222"})
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", out.Email)
}

func TestVerifyChallenge_Expired(t *testing.T) {
	f := newFixture(t, "042917")
	f.request(t, "user@x.com")

	f.clock.Advance(300 * time.Second)
	st, err := f.uc.State(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.StateChallengePending, st.State)

	f.clock.Advance(time.Millisecond)
	err = f.verify("042917")
	assert.ErrorIs(t, err, entity.ErrChallengeExpired)
	assert.Equal(t, 410, statusOf(t, err))

	// Purged on observation.
	assert.ErrorIs(t, f.verify("042917"), entity.ErrNoPendingChallenge)
}

func TestVerifyChallenge_AtExactExpiryStillAccepted(t *testing.T) {
	f := newFixture(t, "042917")
	f.request(t, "user@x.com")

	f.clock.Advance(300 * time.Second)
	require.NoError(t, f.verify("042917"))
}

func TestVerifyChallenge_MismatchKeepsChallenge(t *testing.T) {
	f := newFixture(t, "042917")
	f.request(t, "user@x.com")

	for range 5 {
		err := f.verify("000000")
		assert.ErrorIs(t, err, entity.ErrCodeMismatch)
		assert.Equal(t, 401, statusOf(t, err))
	}

	st, err := f.uc.State(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.StateChallengePending, st.State)

	require.NoError(t, f.verify("042917"))
}

func TestVerifyChallenge_InvalidFormatKeepsChallenge(t *testing.T) {
	f := newFixture(t, "042917")
	f.request(t, "user@x.com")

	for _, code := range []string{"", "04291", "0429170", "04291a", " 042917", "０４２９１７"} {
		err := f.verify(code)
		require.Error(t, err, code)
		assert.Equal(t, 422, statusOf(t, err), code)

		var verr validator.ValidationError
		require.ErrorAs(t, err, &verr, code)
		assert.Contains(t, verr.Values(), "otp")
	}

	require.NoError(t, f.verify("042917"))
}

func TestVerifyChallenge_ConcurrentRedemptionSucceedsOnce(t *testing.T) {
	f := newFixture(t, "042917")
	f.request(t, "user@x.com")

	// session.Manager.Middleware holds this lock per session token.
	locker := session.NewMemoryLocker()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, conflict int
	for range 8 {
		wg.Go(func() {
			unlock, err := locker.Lock(context.Background(), "sid", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			err = f.verify("042917")
			unlock()
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, entity.ErrNoPendingChallenge):
				conflict++
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, conflict)
}

func TestLogout(t *testing.T) {
	f := newFixture(t, "042917", "555555")
	f.request(t, "user@x.com")
	require.NoError(t, f.verify("042917"))

	f.request(t, "user@x.com")
	require.NoError(t, f.uc.Logout(f.ctx))

	_, err := f.uc.Content(f.ctx)
	assert.ErrorIs(t, err, entity.ErrNotAuthenticated)
	assert.Equal(t, 401, statusOf(t, err))

	st, err := f.uc.State(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.StateNoChallenge, st.State)

	assert.ErrorIs(t, f.verify("555555"), entity.ErrNoPendingChallenge)

	for _, k := range []string{sessionstore.KeyCode, sessionstore.KeyEmail, sessionstore.KeyExpiration, sessionstore.KeyLoggedIn, sessionstore.KeyViewerEmail} {
		assert.False(t, f.mgr.Exists(f.ctx, k), k)
	}

	// Idempotent.
	require.NoError(t, f.uc.Logout(f.ctx))
}

func TestLogout_AnonymousSessionStaysUnmodified(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.uc.Logout(f.ctx))
	assert.Equal(t, scs.Unmodified, f.mgr.Status(f.ctx))
}

func TestContent_Anonymous(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.Content(f.ctx)
	assert.ErrorIs(t, err, entity.ErrNotAuthenticated)

	_, err = f.uc.PendingChallenge(f.ctx)
	assert.ErrorIs(t, err, entity.ErrNoPendingChallenge)
}

func TestRequestChallenge_RealGenerator(t *testing.T) {
	f := newFixture(t)
	v, err := validator.NewV10()
	require.NoError(t, err)
	h, err := hash.NewHMACSHA256("k")
	require.NoError(t, err)

	uc := usecase.New(usecase.Dependency{
		Config:      usecase.Config{CodeLength: 8, Expiration: time.Minute},
		RepoSession: sessionstore.New(f.mgr, instrument.NewNoop()),
		Notifier:    f.notify,
		Generator:   otp.NewNumeric(),
		HMAC:        h,
		Clock:       f.clock,
		Validator:   v,
		Instrument:  instrument.NewNoop(),
	})

	_, err = uc.RequestChallenge(f.ctx, usecase.RequestChallengeInput{Email: "a@b.co"})
	require.NoError(t, err)
	require.Len(t, f.notify.sent, 1)

	code := f.notify.sent[0].Code
	assert.Len(t, code, 8)
	assert.Empty(t, strings.Trim(code, "0123456789"))

	_, err = uc.VerifyChallenge(f.ctx, usecase.VerifyChallengeInput{Code: code})
	require.NoError(t, err)
}

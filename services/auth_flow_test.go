package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"spinwin/mockapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFlow(env *testEnv, backend Backend) *AuthFlow {
	sessions := NewSessionStore(backend, env.store, env.keys("dev-1"))
	return NewAuthFlow(backend, sessions, env.clock, 30*time.Second)
}

var adaForm = SignupForm{
	Name:     "Ada Lovelace",
	Email:    "ada@example.com",
	Password: "pw-123456",
	Phone:    "+91 98765 43210",
}

func TestSignupVerifyCompletesFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	flow := newTestFlow(env, env.backend)

	require.NoError(t, flow.Signup(ctx, adaForm))
	assert.Equal(t, AuthOTPPending, flow.State())
	ch := flow.Challenge()
	require.NotNil(t, ch)
	assert.Equal(t, "919876543210", ch.PhoneNumber)
	assert.True(t, ch.InProgress)
	assert.Equal(t, testNow, ch.SentAt)

	sess, err := flow.Verify(ctx, testOTP)
	require.NoError(t, err)
	assert.Equal(t, AuthComplete, flow.State())
	assert.True(t, sess.Authenticated())
	assert.Equal(t, "Ada Lovelace", sess.Identity.Name)
	assert.Equal(t, "919876543210", sess.Identity.Phone)
	assert.Nil(t, flow.Challenge())
}

func TestVerifyRejectsMalformedAndWrongCodes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	flow := newTestFlow(env, env.backend)
	require.NoError(t, flow.Signup(ctx, adaForm))

	for _, code := range []string{"", "12", "12345", "abcd"} {
		_, err := flow.Verify(ctx, code)
		var otpErr *OTPInvalidError
		require.True(t, errors.As(err, &otpErr), code)
		assert.Equal(t, "Please enter a valid 4-digit OTP", otpErr.Message)
		assert.Equal(t, AuthOTPPending, flow.State())
	}

	_, err := flow.Verify(ctx, "9999")
	var otpErr *OTPInvalidError
	require.True(t, errors.As(err, &otpErr))
	assert.Equal(t, "Invalid OTP", otpErr.Message)
	assert.Equal(t, AuthOTPPending, flow.State())

	_, err = flow.Verify(ctx, testOTP)
	assert.NoError(t, err)
}

func TestResendIsThrottled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	flow := newTestFlow(env, env.backend)
	require.NoError(t, flow.Signup(ctx, adaForm))

	assert.ErrorIs(t, flow.Resend(ctx), ErrResendThrottled)

	env.clock.Advance(31 * time.Second)
	require.NoError(t, flow.Resend(ctx))
	assert.Equal(t, 1, flow.Challenge().Resends)
	assert.ErrorIs(t, flow.Resend(ctx), ErrResendThrottled)
}

func TestSignupFailureReturnsToIdle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "ada@example.com", "pw", "Ada", "919876543210")
	flow := newTestFlow(env, env.backend)

	err := flow.Signup(ctx, adaForm)
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "Email already registered", authErr.Message)
	assert.Equal(t, AuthIdle, flow.State())
	require.NotNil(t, flow.LastFailure())
	assert.Equal(t, AuthSigningUp, flow.LastFailure().From)
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t)
	flow := newTestFlow(env, &stubBackend{})

	cases := map[string]SignupForm{
		"form":  {Email: "a@b.co", Password: "x", Phone: "9876543210"},
		"email": {Name: "A", Email: "not-an-email", Password: "x", Phone: "9876543210"},
		"phone": {Name: "A", Email: "a@b.co", Password: "x", Phone: "12345"},
	}
	for field, form := range cases {
		err := flow.Signup(context.Background(), form)
		var valErr *ValidationError
		require.True(t, errors.As(err, &valErr), field)
		assert.Equal(t, field, valErr.Field)
		assert.Equal(t, AuthIdle, flow.State())
	}
}

func TestOTPSendFailureKeepsChallengeOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	backend := &flakyOTPBackend{Backend: env.backend, failSends: 1}
	flow := newTestFlow(env, backend)

	err := flow.Signup(ctx, adaForm)
	require.Error(t, err)
	assert.Equal(t, AuthOTPPending, flow.State())

	env.clock.Advance(31 * time.Second)
	require.NoError(t, flow.Resend(ctx))
	_, err = flow.Verify(ctx, testOTP)
	assert.NoError(t, err)
}

func TestInvalidTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	flow := newTestFlow(env, env.backend)

	_, err := flow.Verify(ctx, testOTP)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, flow.Resend(ctx), ErrInvalidTransition)

	require.NoError(t, flow.Signup(ctx, adaForm))
	assert.ErrorIs(t, flow.Signup(ctx, adaForm), ErrInvalidTransition)

	flow.Cancel()
	assert.Equal(t, AuthIdle, flow.State())
	assert.Nil(t, flow.Challenge())
}

type flakyOTPBackend struct {
	Backend
	failSends int
}

func (b *flakyOTPBackend) SendOTP(ctx context.Context, number string) error {
	if b.failSends > 0 {
		b.failSends--
		return &NetworkError{Op: "otp-send", Err: errors.New("connection reset")}
	}
	return b.Backend.SendOTP(ctx, number)
}

type failingLoginBackend struct {
	Backend
	failures int
}

func (b *failingLoginBackend) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	if b.failures > 0 {
		b.failures--
		return nil, &APIError{Op: "login", Status: 503, Detail: "Service unavailable"}
	}
	return b.Backend.Login(ctx, email, password)
}

func TestLoginFailureAfterVerifyKeepsAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	backend := &failingLoginBackend{Backend: env.backend, failures: 1}
	flow := newTestFlow(env, backend)

	require.NoError(t, flow.Signup(ctx, adaForm))
	_, err := flow.Verify(ctx, testOTP)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account verified but login failed, please log in manually")
	assert.Contains(t, err.Error(), "Service unavailable")
	var authErr *AuthError
	assert.True(t, errors.As(err, &authErr))

	assert.Equal(t, AuthIdle, flow.State())
	assert.Nil(t, flow.Challenge())
	require.NotNil(t, flow.LastFailure())
	assert.Equal(t, AuthLoggingIn, flow.LastFailure().From)

	var user mockapi.User
	require.NoError(t, env.mockDB.Where("email = ?", "ada@example.com").First(&user).Error)
	assert.True(t, user.PhoneVerified)

	sess, err := NewSessionStore(backend, env.store, env.keys("dev-1")).Login(ctx, "ada@example.com", "pw-123456")
	require.NoError(t, err)
	assert.True(t, sess.Authenticated())
	assert.Equal(t, "919876543210", sess.Identity.Phone)
}

// services/auth_flow.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"regexp"
	"strings"
	"sync"
	"time"

	"spinwin/models"
	"spinwin/utils"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// AuthState is a state of the signup/OTP/login flow.
type AuthState string

const (
	AuthIdle       AuthState = "idle"
	AuthSigningUp  AuthState = "signing_up"
	AuthOTPPending AuthState = "otp_pending"
	AuthVerifying  AuthState = "verifying"
	AuthLoggingIn  AuthState = "logging_in"
	AuthComplete   AuthState = "complete"
	AuthFailed     AuthState = "failed"
)

var otpPattern = regexp.MustCompile(`^\d{4}$`)

// SignupForm is what the signup screen collects.
type SignupForm struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

// AuthFailure records the last transition into the failed state.
type AuthFailure struct {
	From AuthState
	Err  error
}

// AuthFlow drives signup → OTP → login for one device. Each step is a method
// call whose result decides the next state.
type AuthFlow struct {
	backend        Backend
	sessions       *SessionStore
	clock          clockwork.Clock
	resendInterval time.Duration

	// op serializes flow operations; stateMu guards the fields below so the
	// state can be read while a step waits on the backend.
	op        sync.Mutex
	stateMu   sync.RWMutex
	state     AuthState
	form      SignupForm
	challenge *models.OTPChallenge
	resend    *rate.Limiter
	failure   *AuthFailure
}

func NewAuthFlow(backend Backend, sessions *SessionStore, clock clockwork.Clock, resendInterval time.Duration) *AuthFlow {
	return &AuthFlow{
		backend:        backend,
		sessions:       sessions,
		clock:          clock,
		resendInterval: resendInterval,
		state:          AuthIdle,
	}
}

func (f *AuthFlow) State() AuthState {
	f.stateMu.RLock()
	defer f.stateMu.RUnlock()
	return f.state
}

// Challenge returns a copy of the open OTP challenge, or nil.
func (f *AuthFlow) Challenge() *models.OTPChallenge {
	f.stateMu.RLock()
	defer f.stateMu.RUnlock()
	if f.challenge == nil {
		return nil
	}
	c := *f.challenge
	return &c
}

// LastFailure is the most recent failure, kept after the flow returned to idle.
func (f *AuthFlow) LastFailure() *AuthFailure {
	f.stateMu.RLock()
	defer f.stateMu.RUnlock()
	return f.failure
}

// Signup registers the account and opens the OTP challenge. A failed OTP
// send still leaves the flow in otp_pending so Resend can recover.
func (f *AuthFlow) Signup(ctx context.Context, form SignupForm) error {
	f.op.Lock()
	defer f.op.Unlock()

	switch f.State() {
	case AuthIdle, AuthFailed, AuthComplete:
	default:
		return fmt.Errorf("%w: signup from %s", ErrInvalidTransition, f.State())
	}

	form, err := normalizeSignup(form)
	if err != nil {
		return err
	}

	f.transition(AuthSigningUp)
	log.Printf("[AUTH] 🔐 Starting signup for %s", form.Email)
	if _, err := f.backend.Signup(ctx, SignupRequest{
		Email:    form.Email,
		Password: form.Password,
		Name:     form.Name,
		Number:   form.Phone,
	}); err != nil {
		authErr := &AuthError{Message: userMessage(err, "Signup failed"), Err: err}
		f.fail(AuthSigningUp, authErr)
		return authErr
	}

	limit := rate.Inf
	if f.resendInterval > 0 {
		limit = rate.Every(f.resendInterval)
	}
	f.stateMu.Lock()
	f.form = form
	f.challenge = &models.OTPChallenge{PhoneNumber: form.Phone, InProgress: true}
	f.resend = rate.NewLimiter(limit, 1)
	f.stateMu.Unlock()
	f.transition(AuthOTPPending)

	f.resend.AllowN(f.clock.Now(), 1)
	if err := f.sendOTP(ctx); err != nil {
		return fmt.Errorf("account created but OTP could not be sent: %w", err)
	}
	return nil
}

// Resend sends the OTP again, at most once per resend interval.
func (f *AuthFlow) Resend(ctx context.Context) error {
	f.op.Lock()
	defer f.op.Unlock()

	if f.State() != AuthOTPPending {
		return fmt.Errorf("%w: resend from %s", ErrInvalidTransition, f.State())
	}
	if !f.resend.AllowN(f.clock.Now(), 1) {
		return ErrResendThrottled
	}
	if err := f.sendOTP(ctx); err != nil {
		return err
	}
	f.stateMu.Lock()
	f.challenge.Resends++
	f.stateMu.Unlock()
	return nil
}

// Verify checks code and, on success, logs in with the signup credentials.
// A malformed or rejected code keeps the flow in otp_pending.
func (f *AuthFlow) Verify(ctx context.Context, code string) (models.Session, error) {
	f.op.Lock()
	defer f.op.Unlock()

	if f.State() != AuthOTPPending {
		return models.Session{}, fmt.Errorf("%w: verify from %s", ErrInvalidTransition, f.State())
	}
	code = strings.TrimSpace(code)
	if !otpPattern.MatchString(code) {
		return models.Session{}, &OTPInvalidError{Message: "Please enter a valid 4-digit OTP"}
	}

	f.stateMu.RLock()
	form := f.form
	f.stateMu.RUnlock()

	f.transition(AuthVerifying)
	if err := f.backend.VerifyOTP(ctx, form.Phone, code); err != nil {
		f.transition(AuthOTPPending)
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return models.Session{}, &OTPInvalidError{Message: userMessage(err, "OTP verification failed"), Err: err}
		}
		return models.Session{}, err
	}
	log.Printf("[AUTH] ✅ OTP verified for %s", form.Phone)

	f.transition(AuthLoggingIn)
	sess, err := f.sessions.Login(ctx, form.Email, form.Password)
	if err == nil {
		sess.Identity.Phone = form.Phone
		sess.Identity.Name = form.Name
		err = f.sessions.Establish(ctx, sess)
	}
	if err != nil {
		f.clear()
		f.fail(AuthLoggingIn, err)
		return models.Session{}, fmt.Errorf("account verified but login failed, please log in manually: %w", err)
	}

	f.clear()
	f.transition(AuthComplete)
	return sess, nil
}

// Cancel closes the challenge and returns to idle.
func (f *AuthFlow) Cancel() {
	f.op.Lock()
	defer f.op.Unlock()
	f.clear()
	f.transition(AuthIdle)
}

func (f *AuthFlow) sendOTP(ctx context.Context) error {
	f.stateMu.RLock()
	phone := f.challenge.PhoneNumber
	f.stateMu.RUnlock()

	log.Printf("[AUTH] 📱 Sending OTP to %s", phone)
	if err := f.backend.SendOTP(ctx, phone); err != nil {
		log.Printf("[AUTH] ❌ OTP send failed for %s: %v", phone, err)
		return err
	}
	f.stateMu.Lock()
	f.challenge.SentAt = f.clock.Now()
	f.stateMu.Unlock()
	return nil
}

func (f *AuthFlow) transition(to AuthState) {
	f.stateMu.Lock()
	from := f.state
	f.state = to
	f.stateMu.Unlock()
	authTransitions.WithLabelValues(string(to)).Inc()
	log.Printf("[AUTH] %s → %s", from, to)
}

// fail passes through failed and lands in idle.
func (f *AuthFlow) fail(from AuthState, err error) {
	f.stateMu.Lock()
	f.failure = &AuthFailure{From: from, Err: err}
	f.stateMu.Unlock()
	f.transition(AuthFailed)
	f.transition(AuthIdle)
}

// clear drops the challenge and the remembered credentials.
func (f *AuthFlow) clear() {
	f.stateMu.Lock()
	f.challenge = nil
	f.form = SignupForm{}
	f.resend = nil
	f.stateMu.Unlock()
}

func normalizeSignup(form SignupForm) (SignupForm, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	if form.Name == "" || form.Email == "" || form.Password == "" || strings.TrimSpace(form.Phone) == "" {
		return form, &ValidationError{Field: "form", Message: "Please fill in all fields"}
	}
	if _, err := mail.ParseAddress(form.Email); err != nil {
		return form, &ValidationError{Field: "email", Message: "Please enter a valid email address"}
	}
	form.Phone = utils.NormalizePhone(form.Phone)
	if !utils.DigitsBetween(form.Phone, 10, 13) {
		return form, &ValidationError{Field: "phone", Message: "Please enter a valid WhatsApp number"}
	}
	return form, nil
}

// services/widget.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"spinwin/models"

	"github.com/jonboulle/clockwork"
)

var ErrDashboardNotLoaded = errors.New("dashboard not loaded yet")

// WidgetDeps are the shared collaborators every Widget is built from.
type WidgetDeps struct {
	Backend           Backend
	Store             KeyValueStore
	Catalog           *Catalog
	Clock             clockwork.Clock
	QuotaLocation     *time.Location
	OTPResendInterval time.Duration
}

// Widget is the application state of one device: the session, the selected
// restaurant, the current offer and a pending claim. Components only see the
// pieces they are handed.
type Widget struct {
	deviceID  string
	catalog   *Catalog
	clock     clockwork.Clock
	sessions  *SessionStore
	spins     *SpinEngine
	ledger    *RewardLedger
	auth      *AuthFlow
	dashboard *DashboardAggregator

	initOnce sync.Once
	// busy rejects a spin or claim while another one is running.
	busy atomic.Bool

	mu            sync.Mutex
	restaurant    models.Restaurant
	current       *models.OfferInstance
	pendingClaim  bool
	lastDashboard *GroupedRewards
	lastSeen      time.Time
}

// ClaimOutcome tells the UI what a claim did. NeedsAuth means the claim is
// parked until login or signup completes.
type ClaimOutcome struct {
	Reward         *models.ClaimedReward `json:"reward,omitempty"`
	NeedsAuth      bool                  `json:"needs_auth"`
	AlreadyClaimed bool                  `json:"already_claimed"`
}

// AuthOutcome is the session after login, plus the resumed claim if one was
// pending.
type AuthOutcome struct {
	Session models.Session `json:"-"`
	Claim   *ClaimOutcome  `json:"claim,omitempty"`
}

// WidgetStatus is a snapshot for the UI. Tokens are never included.
type WidgetStatus struct {
	DeviceID     string                `json:"device_id"`
	Identity     models.Identity       `json:"identity"`
	Restaurant   models.Restaurant     `json:"restaurant"`
	Quota        models.SpinQuota      `json:"quota"`
	Remaining    int                   `json:"remaining_spins"`
	CurrentOffer *models.OfferInstance `json:"current_offer,omitempty"`
	PendingClaim bool                  `json:"pending_claim"`
	AuthState    AuthState             `json:"auth_state"`
	OTP          *models.OTPChallenge  `json:"otp,omitempty"`
	Busy         bool                  `json:"busy"`
}

func NewWidget(deps WidgetDeps, deviceID string) *Widget {
	keys := Keys{DeviceID: deviceID}
	sessions := NewSessionStore(deps.Backend, deps.Store, keys)
	spins := NewSpinEngine(deps.Store, keys, deps.Catalog, deps.Clock, deps.QuotaLocation)
	ledger := NewRewardLedger(deps.Backend, deps.Store, keys, deps.Clock)

	return &Widget{
		deviceID:   deviceID,
		catalog:    deps.Catalog,
		clock:      deps.Clock,
		sessions:   sessions,
		spins:      spins,
		ledger:     ledger,
		auth:       NewAuthFlow(deps.Backend, sessions, deps.Clock, deps.OTPResendInterval),
		dashboard:  NewDashboardAggregator(deps.Backend, ledger, spins, deps.Catalog),
		restaurant: deps.Catalog.Default(),
		lastSeen:   deps.Clock.Now(),
	}
}

// Init restores the persisted session. Only the first call does any work.
func (w *Widget) Init(ctx context.Context) models.Session {
	w.initOnce.Do(func() {
		w.sessions.Restore(ctx)
	})
	return w.sessions.Current()
}

func (w *Widget) DeviceID() string { return w.deviceID }

func (w *Widget) Session() models.Session { return w.sessions.Current() }

func (w *Widget) AuthState() AuthState { return w.auth.State() }

// SelectRestaurant switches restaurant and drops the current offer.
func (w *Widget) SelectRestaurant(id string) (models.Restaurant, error) {
	r, ok := w.catalog.Get(id)
	if !ok {
		return models.Restaurant{}, fmt.Errorf("%w: %s", ErrUnknownRestaurant, id)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.restaurant.ID != r.ID {
		w.current = nil
		w.pendingClaim = false
	}
	w.restaurant = r
	return r, nil
}

// Spin spins the selected restaurant for the session's user. The result
// replaces the current offer.
func (w *Widget) Spin(ctx context.Context) (*SpinResult, error) {
	if !w.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer w.busy.Store(false)

	w.mu.Lock()
	restaurantID := w.restaurant.ID
	w.mu.Unlock()

	res, err := w.spins.Spin(ctx, restaurantID, w.sessions.Current().UserID())
	if err != nil {
		return nil, err
	}

	offer := res.Offer
	w.mu.Lock()
	w.current = &offer
	w.pendingClaim = false
	w.mu.Unlock()
	return res, nil
}

// Claim claims the current offer, or parks it until the user authenticates.
func (w *Widget) Claim(ctx context.Context) (*ClaimOutcome, error) {
	if !w.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer w.busy.Store(false)
	return w.claim(ctx)
}

func (w *Widget) claim(ctx context.Context) (*ClaimOutcome, error) {
	w.mu.Lock()
	if w.current == nil {
		w.mu.Unlock()
		return nil, ErrNoOffer
	}
	offer := *w.current
	restaurant := w.restaurant
	w.mu.Unlock()

	if offer.Claimed {
		return &ClaimOutcome{Reward: offer.Reward, AlreadyClaimed: true}, nil
	}

	sess := w.sessions.Current()
	if !sess.Authenticated() {
		w.mu.Lock()
		w.pendingClaim = true
		w.mu.Unlock()
		log.Printf("[WIDGET] %s must sign up or log in before claiming %q", w.deviceID, offer.Text)
		return &ClaimOutcome{NeedsAuth: true}, nil
	}

	reward, err := w.ledger.Claim(ctx, ClaimRequest{Session: sess, Restaurant: restaurant, Offer: &offer})
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	if w.current != nil && w.current.SpinID == offer.SpinID {
		w.current = &offer
	}
	w.pendingClaim = false
	w.mu.Unlock()
	return &ClaimOutcome{Reward: reward}, nil
}

// resumePendingClaim finishes a claim parked before authentication.
func (w *Widget) resumePendingClaim(ctx context.Context) *ClaimOutcome {
	w.mu.Lock()
	pending := w.pendingClaim && w.current != nil && !w.current.Claimed
	w.mu.Unlock()
	if !pending {
		return nil
	}
	if !w.busy.CompareAndSwap(false, true) {
		log.Printf("[WIDGET] ⚠️ Pending claim for %s left parked, widget busy", w.deviceID)
		return nil
	}
	defer w.busy.Store(false)

	outcome, err := w.claim(ctx)
	if err != nil {
		log.Printf("[WIDGET] ❌ Pending claim failed for %s: %v", w.deviceID, err)
		return nil
	}
	log.Printf("[WIDGET] ✅ Pending claim resumed for %s", w.deviceID)
	return outcome
}

func (w *Widget) Login(ctx context.Context, email, password string) (*AuthOutcome, error) {
	sess, err := w.sessions.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	w.auth.Cancel()
	return &AuthOutcome{Session: sess, Claim: w.resumePendingClaim(ctx)}, nil
}

func (w *Widget) Signup(ctx context.Context, form SignupForm) error {
	return w.auth.Signup(ctx, form)
}

// VerifyOTP completes signup and resumes a pending claim.
func (w *Widget) VerifyOTP(ctx context.Context, code string) (*AuthOutcome, error) {
	sess, err := w.auth.Verify(ctx, code)
	if err != nil {
		return nil, err
	}
	return &AuthOutcome{Session: sess, Claim: w.resumePendingClaim(ctx)}, nil
}

func (w *Widget) ResendOTP(ctx context.Context) error {
	return w.auth.Resend(ctx)
}

// CancelAuth closes the signup/OTP prompt. A parked claim stays parked.
func (w *Widget) CancelAuth() {
	w.auth.Cancel()
}

// Logout ends the session. Quota and reward records are kept.
func (w *Widget) Logout(ctx context.Context) error {
	if err := w.sessions.Logout(ctx); err != nil {
		return err
	}
	w.auth.Cancel()
	w.mu.Lock()
	w.pendingClaim = false
	w.lastDashboard = nil
	w.mu.Unlock()
	return nil
}

func (w *Widget) EnsureGuest(ctx context.Context) (models.Session, error) {
	return w.sessions.EnsureGuest(ctx)
}

func (w *Widget) UpdateProfile(ctx context.Context, name, phone string) (models.Session, error) {
	return w.sessions.UpdateProfile(ctx, name, phone)
}

// Dashboard loads grouped rewards and keeps them for tab selection.
func (w *Widget) Dashboard(ctx context.Context) (*GroupedRewards, error) {
	grouped, err := w.dashboard.Load(ctx, w.sessions.Current())
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.lastDashboard = grouped
	w.mu.Unlock()
	return grouped, nil
}

// DashboardTab selects a restaurant from the last loaded dashboard.
func (w *Widget) DashboardTab(restaurantID string) (*RewardGroup, models.RewardSource, error) {
	w.mu.Lock()
	grouped := w.lastDashboard
	w.mu.Unlock()
	if grouped == nil {
		return nil, "", ErrDashboardNotLoaded
	}
	group, ok := grouped.Select(restaurantID)
	if !ok {
		return nil, grouped.Source, fmt.Errorf("%w: %s", ErrUnknownRestaurant, restaurantID)
	}
	return group, grouped.Source, nil
}

func (w *Widget) Status(ctx context.Context) (*WidgetStatus, error) {
	sess := w.sessions.Current()

	w.mu.Lock()
	restaurant := w.restaurant
	var current *models.OfferInstance
	if w.current != nil {
		c := *w.current
		current = &c
	}
	pending := w.pendingClaim
	w.mu.Unlock()

	quota, err := w.spins.Quota(ctx, restaurant.ID, sess.UserID())
	if err != nil {
		return nil, err
	}
	return &WidgetStatus{
		DeviceID:     w.deviceID,
		Identity:     sess.Identity,
		Restaurant:   restaurant,
		Quota:        quota,
		Remaining:    quota.Remaining(),
		CurrentOffer: current,
		PendingClaim: pending,
		AuthState:    w.auth.State(),
		OTP:          w.auth.Challenge(),
		Busy:         w.busy.Load(),
	}, nil
}

func (w *Widget) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Widget) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

// services/spin_engine.go
package services

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"spinwin/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DayLayout formats quota days.
const DayLayout = "2006-01-02"

// SpinEngine picks offers and enforces the daily quota of one device.
type SpinEngine struct {
	store   KeyValueStore
	keys    Keys
	catalog *Catalog
	clock   clockwork.Clock
	loc     *time.Location
	pick    func(n int) int
}

// SpinResult is what a successful spin hands to the UI.
type SpinResult struct {
	Offer models.OfferInstance `json:"offer"`
	Quota models.SpinQuota     `json:"quota"`
}

func NewSpinEngine(store KeyValueStore, keys Keys, catalog *Catalog, clock clockwork.Clock, loc *time.Location) *SpinEngine {
	if loc == nil {
		loc = time.Local
	}
	return &SpinEngine{
		store:   store,
		keys:    keys,
		catalog: catalog,
		clock:   clock,
		loc:     loc,
		pick:    rand.Intn,
	}
}

// Today is the current quota day in the engine's time zone.
func (e *SpinEngine) Today() string {
	return e.clock.Now().In(e.loc).Format(DayLayout)
}

// Quota returns today's quota for (restaurant, user). Without a usable
// user record the device-wide copy counts when it is from today and the same
// restaurant, whoever spun it, so switching identity on a device does not
// reset the day's spins. Nothing is written.
func (e *SpinEngine) Quota(ctx context.Context, restaurantID, userID string) (models.SpinQuota, error) {
	day := e.Today()
	fresh := models.SpinQuota{RestaurantID: restaurantID, UserID: userID, Date: day}

	q := fresh
	found, err := e.store.Load(ctx, e.keys.Quota(userID, restaurantID, day), &q)
	switch {
	case err == nil && found:
		return q, nil
	case err != nil && !unreadableRecord(err):
		return models.SpinQuota{}, err
	case err != nil:
		log.Printf("[SPIN] ⚠️ Quota record unreadable for %s/%s: %v", userID, restaurantID, err)
	}

	var generic models.SpinQuota
	ok, gerr := e.store.Load(ctx, e.keys.GenericQuota(), &generic)
	if gerr != nil && !unreadableRecord(gerr) {
		return models.SpinQuota{}, gerr
	}
	if ok && gerr == nil && generic.Date == day && generic.RestaurantID == restaurantID {
		generic.UserID = userID
		return generic, nil
	}
	return fresh, nil
}

// Spin enforces the quota, picks an offer uniformly and awards points.
// A QuotaExceededError leaves all state untouched.
func (e *SpinEngine) Spin(ctx context.Context, restaurantID, userID string) (*SpinResult, error) {
	restaurant, ok := e.catalog.Get(restaurantID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRestaurant, restaurantID)
	}
	if len(restaurant.Offers) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoOffers, restaurantID)
	}

	quota, err := e.Quota(ctx, restaurantID, userID)
	if err != nil {
		return nil, err
	}
	if quota.Exhausted() {
		spinsTotal.WithLabelValues(restaurantID, "quota_exceeded").Inc()
		log.Printf("[SPIN] 🚫 %s reached %d/%d spins at %s", userID, quota.SpinsUsed, models.DailySpinLimit, restaurantID)
		return nil, &QuotaExceededError{Quota: quota}
	}

	now := e.clock.Now()
	index := e.pick(len(restaurant.Offers))
	quota.SpinsUsed++
	quota.PointsAccrued += models.PointsPerSpin
	quota.UpdatedAt = now

	if err := e.store.Save(ctx, e.keys.Quota(userID, restaurantID, quota.Date), quota); err != nil {
		return nil, fmt.Errorf("failed to persist spin quota: %w", err)
	}
	if err := e.store.Save(ctx, e.keys.GenericQuota(), quota); err != nil {
		log.Printf("[SPIN] ⚠️ Failed to write generic quota copy: %v", err)
	}

	offer := models.OfferInstance{
		SpinID:       uuid.NewString(),
		RestaurantID: restaurantID,
		Text:         restaurant.Offers[index],
		Index:        index,
		SpunAt:       now,
	}
	spinsTotal.WithLabelValues(restaurantID, "ok").Inc()
	log.Printf("[SPIN] 🎰 %s won %q at %s (%d/%d, %d pts)", userID, offer.Text, restaurantID, quota.SpinsUsed, models.DailySpinLimit, quota.PointsAccrued)

	return &SpinResult{Offer: offer, Quota: quota}, nil
}

// services/reward_ledger.go
package services

import (
	"context"
	"fmt"
	"log"

	"spinwin/models"
	"spinwin/utils"

	"github.com/jonboulle/clockwork"
)

// RewardLedger issues coupons for claimed offers. The local list is written
// first and is the record of last resort; the backend copy is best effort.
type RewardLedger struct {
	backend Backend
	store   KeyValueStore
	keys    Keys
	clock   clockwork.Clock
	newCode func() (string, error)
}

// ClaimRequest is everything a claim needs. Offer is the current offer
// instance and is marked claimed on success.
type ClaimRequest struct {
	Session    models.Session
	Restaurant models.Restaurant
	Offer      *models.OfferInstance
}

func NewRewardLedger(backend Backend, store KeyValueStore, keys Keys, clock clockwork.Clock) *RewardLedger {
	return &RewardLedger{
		backend: backend,
		store:   store,
		keys:    keys,
		clock:   clock,
		newCode: utils.GenerateCouponCode,
	}
}

// Claim issues a coupon for req.Offer. Claiming an already-claimed offer
// returns the reward issued the first time.
func (l *RewardLedger) Claim(ctx context.Context, req ClaimRequest) (*models.ClaimedReward, error) {
	if req.Offer == nil {
		return nil, ErrNoOffer
	}
	if req.Offer.Claimed && req.Offer.Reward != nil {
		log.Printf("[CLAIM] ↩️ Spin %s already claimed (%s)", req.Offer.SpinID, req.Offer.Reward.CouponCode)
		return req.Offer.Reward, nil
	}
	if req.Offer.RestaurantID != req.Restaurant.ID {
		return nil, fmt.Errorf("offer belongs to %s, not %s", req.Offer.RestaurantID, req.Restaurant.ID)
	}

	code, err := l.newCode()
	if err != nil {
		return nil, err
	}

	reward := models.ClaimedReward{
		RestaurantID:   req.Restaurant.ID,
		RestaurantName: req.Restaurant.Name,
		OfferText:      req.Offer.Text,
		CouponCode:     code,
		ClaimedAt:      l.clock.Now().UTC(),
		Source:         models.RewardSourceLocal,
	}

	// A claim that fails locally leaves nothing on the backend.
	if err := l.appendLocal(ctx, req.Session.RewardOwner(), reward); err != nil {
		return nil, err
	}

	l.writeRemote(ctx, req.Session, reward)

	req.Offer.Claimed = true
	req.Offer.Reward = &reward
	claimsTotal.WithLabelValues(reward.RestaurantID).Inc()
	log.Printf("[CLAIM] 🎁 %s claimed %q at %s, coupon %s", req.Session.RewardOwner(), reward.OfferText, reward.RestaurantID, reward.CouponCode)

	return &reward, nil
}

// writeRemote posts the claim when a bearer token is held. Failures are
// logged only.
func (l *RewardLedger) writeRemote(ctx context.Context, sess models.Session, reward models.ClaimedReward) {
	if sess.BearerToken == "" {
		log.Printf("[CLAIM] No bearer token, skipping backend write for %s", reward.CouponCode)
		return
	}

	payload := RewardClaimPayload{
		UID:            sess.Identity.UID,
		RestaurantID:   reward.RestaurantID,
		RewardName:     reward.OfferText,
		WhatsappNumber: sess.Identity.Phone,
		UserName:       sess.Identity.Name,
		ClaimedAt:      reward.ClaimedAt,
		Redeemed:       false,
		CouponCode:     reward.CouponCode,
	}
	if err := l.backend.ClaimReward(ctx, sess.BearerToken, payload); err != nil {
		remoteClaimFailures.Inc()
		log.Printf("[CLAIM] ❌ Backend write failed for %s, kept locally: %v", reward.CouponCode, err)
		return
	}
	log.Printf("[CLAIM] ✅ Backend stored %s", reward.CouponCode)
}

func (l *RewardLedger) appendLocal(ctx context.Context, owner string, reward models.ClaimedReward) error {
	rewards, err := l.LocalRewards(ctx, owner)
	if err != nil {
		return err
	}
	rewards = append(rewards, reward)
	if err := l.store.Save(ctx, l.keys.Rewards(owner), rewards); err != nil {
		return fmt.Errorf("failed to save local reward: %w", err)
	}
	return nil
}

// LocalRewards returns the owner's local reward list in claim order. An
// unreadable list reads as empty.
func (l *RewardLedger) LocalRewards(ctx context.Context, owner string) ([]models.ClaimedReward, error) {
	var rewards []models.ClaimedReward
	_, err := l.store.Load(ctx, l.keys.Rewards(owner), &rewards)
	if err != nil {
		if unreadableRecord(err) {
			log.Printf("[CLAIM] ⚠️ Local rewards for %s unreadable, starting fresh: %v", owner, err)
			return nil, nil
		}
		return nil, err
	}
	return rewards, nil
}

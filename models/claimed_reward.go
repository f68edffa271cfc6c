package models

import "time"

// RewardSource tells where a reward record was read from.
type RewardSource string

const (
	RewardSourceRemote RewardSource = "remote"
	RewardSourceLocal  RewardSource = "local"
)

// ClaimedReward is a coupon issued for a claimed offer.
// Redeemed only ever changes on the server; the client reflects it.
type ClaimedReward struct {
	RestaurantID   string       `json:"restaurant_id"`
	RestaurantName string       `json:"restaurant_name"`
	OfferText      string       `json:"offer"`
	CouponCode     string       `json:"coupon_code"`
	ClaimedAt      time.Time    `json:"claimed_at"`
	Redeemed       bool         `json:"redeemed"`
	RedeemedAt     *time.Time   `json:"redeemed_at"`
	Source         RewardSource `json:"source,omitempty"`
}

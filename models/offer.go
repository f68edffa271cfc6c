package models

import "time"

// OfferInstance is the outcome of one spin. It stays "current" until it is
// claimed or a new spin supersedes it.
type OfferInstance struct {
	SpinID       string         `json:"spin_id"`
	RestaurantID string         `json:"restaurant_id"`
	Text         string         `json:"offer"`
	Index        int            `json:"index"`
	SpunAt       time.Time      `json:"spun_at"`
	Claimed      bool           `json:"claimed"`
	Reward       *ClaimedReward `json:"reward,omitempty"`
}

package models

import "time"

// DailySpinLimit is the number of spins a user gets per restaurant per calendar day.
const DailySpinLimit = 3

// PointsPerSpin is awarded on every successful spin.
const PointsPerSpin = 10

// SpinQuota tracks spins for one (user, restaurant, date) triple.
// Date is the calendar day (YYYY-MM-DD) in the quota time zone.
type SpinQuota struct {
	RestaurantID  string    `json:"restaurant_id"`
	UserID        string    `json:"user_id"`
	Date          string    `json:"date"`
	SpinsUsed     int       `json:"spins_used"`
	PointsAccrued int       `json:"points_accrued"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Remaining returns how many spins are left for the day.
func (q SpinQuota) Remaining() int {
	if q.SpinsUsed >= DailySpinLimit {
		return 0
	}
	return DailySpinLimit - q.SpinsUsed
}

// Exhausted reports whether no spins are left.
func (q SpinQuota) Exhausted() bool {
	return q.SpinsUsed >= DailySpinLimit
}

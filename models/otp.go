package models

import "time"

// OTPChallenge lives only while a signup waits for phone verification.
type OTPChallenge struct {
	PhoneNumber string    `json:"phone_number"`
	InProgress  bool      `json:"in_progress"`
	SentAt      time.Time `json:"sent_at"`
	Resends     int       `json:"resends"`
}

// mockapi/models.go
package mockapi

import (
	"time"

	"gorm.io/gorm"
)

// User is a registered account. Login is refused until the phone is verified.
type User struct {
	ID            string    `gorm:"primaryKey;size:64" json:"uid"`
	Email         string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash  string    `gorm:"not null" json:"-"`
	Name          string    `json:"name"`
	Number        string    `gorm:"index;not null" json:"number"`
	PhoneVerified bool      `gorm:"default:false" json:"phone_verified"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// OTPCode is the outstanding code of one phone number.
type OTPCode struct {
	Number    string    `gorm:"primaryKey;size:32"`
	Code      string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Attempts  int       `gorm:"default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Reward is a claimed coupon. Redeemed is set only through the redeem endpoint.
type Reward struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UID            string     `gorm:"index;not null" json:"uid"`
	RestaurantID   string     `gorm:"index;not null" json:"restaurant_id"`
	RewardName     string     `gorm:"not null" json:"reward_name"`
	CouponCode     string     `gorm:"uniqueIndex;size:16;not null" json:"coupon_code"`
	WhatsappNumber string     `json:"whatsapp_number"`
	UserName       string     `json:"user_name"`
	ClaimedAt      time.Time  `json:"claimed_at"`
	Redeemed       bool       `gorm:"default:false" json:"redeemed"`
	RedeemedAt     *time.Time `json:"redeemed_at"`
	CreatedAt      time.Time  `json:"-" gorm:"autoCreateTime"`
}

// AutoMigrate creates the mock backend tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &OTPCode{}, &Reward{})
}

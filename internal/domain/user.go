package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	UserID       uuid.UUID      `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Fullname     string         `gorm:"column:fullname;not null" json:"fullname"`
	Email        string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash string         `gorm:"column:password_hash;not null" json:"-"`
	Role         string         `gorm:"column:role;not null;default:user" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate sets UUID if not set (for DBs without gen_random_uuid).
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}

// UserProfile carries the referral identity of a user (1:1 with User).
// ReferredByID points at the referrer's profile; TotalReferralEarnings is the
// running sum of REFERRAL_BONUS credits earned from referred users' deposits.
type UserProfile struct {
	ProfileID             uuid.UUID       `gorm:"column:profile_id;type:uuid;primaryKey" json:"profile_id"`
	UserID                uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"user_id"`
	ReferralCode          string          `gorm:"column:referral_code;size:20;not null;uniqueIndex" json:"referral_code"`
	ReferredByID          *uuid.UUID      `gorm:"column:referred_by_id;type:uuid" json:"referred_by_id"`
	TotalReferralEarnings decimal.Decimal `gorm:"column:total_referral_earnings;type:decimal(20,6);not null;default:0" json:"total_referral_earnings"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ProfileID == uuid.Nil {
		p.ProfileID = uuid.New()
	}
	return nil
}

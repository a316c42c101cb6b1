package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"vaultyield-backend/internal/domain"
	"vaultyield-backend/internal/pkg/validation"
	"vaultyield-backend/internal/wallet"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct {
	DB      *gorm.DB
	Wallets *wallet.Service
}

type RegisterInput struct {
	Fullname     string `json:"fullname"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	ReferralCode string `json:"referral_code"`
}

// Register creates the user, their referral profile and their custodial
// wallet in one transaction. An optional referral code binds the new profile
// to its referrer; commissions on this user's deposits flow there.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if !validation.IsValidFullname(in.Fullname) {
		return nil, ErrInvalidFullname
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !validation.IsValidEmail(email) {
		return nil, ErrInvalidEmailFormat
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var created *domain.User
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&domain.User{}).Where("email = ?", email).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrEmailTaken
		}

		var referredBy *uuid.UUID
		if code := strings.ToUpper(strings.TrimSpace(in.ReferralCode)); code != "" {
			var referrer domain.UserProfile
			if err := tx.Where("referral_code = ?", code).First(&referrer).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrReferralCodeNotFound
				}
				return err
			}
			referredBy = &referrer.ProfileID
		}

		u := &domain.User{
			Fullname:     strings.TrimSpace(in.Fullname),
			Email:        email,
			PasswordHash: string(hash),
			Role:         "user",
		}
		if err := tx.Create(u).Error; err != nil {
			return err
		}

		code, err := uniqueReferralCode(tx)
		if err != nil {
			return err
		}
		profile := &domain.UserProfile{
			UserID:       u.UserID,
			ReferralCode: code,
			ReferredByID: referredBy,
		}
		if err := tx.Create(profile).Error; err != nil {
			return err
		}

		if _, err := s.Wallets.CreateForUser(tx, u.UserID); err != nil {
			return err
		}
		created = u
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	log.Info().Str("user_id", created.UserID.String()).Msg("user registered")
	return created, nil
}

// uniqueReferralCode derives an 8-char uppercase code from a UUID, retrying
// on the off chance of a collision.
func uniqueReferralCode(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:8]
		var clash int64
		if err := tx.Model(&domain.UserProfile{}).Where("referral_code = ?", code).Count(&clash).Error; err != nil {
			return "", err
		}
		if clash == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique referral code")
}

// ProfileOf returns the user's referral profile.
func (s *Service) ProfileOf(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ReferredUser is one row of the referrals listing.
type ReferredUser struct {
	Fullname string    `json:"fullname"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
}

// ReferralInfo is the read model for the referrals endpoint.
type ReferralInfo struct {
	ReferralCode          string          `json:"referral_code"`
	TotalReferralEarnings decimal.Decimal `json:"total_referral_earnings"`
	ReferredUsers         []ReferredUser  `json:"referred_users"`
}

// Referrals returns the user's referral code, running commission total and
// the users they referred.
func (s *Service) Referrals(ctx context.Context, userID uuid.UUID) (*ReferralInfo, error) {
	profile, err := s.ProfileOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	var referred []ReferredUser
	if err := s.DB.WithContext(ctx).
		Model(&domain.UserProfile{}).
		Select("users.fullname, users.email, users.created_at as joined_at").
		Joins("JOIN users ON users.user_id = user_profiles.user_id").
		Where("user_profiles.referred_by_id = ?", profile.ProfileID).
		Order("users.created_at desc").
		Scan(&referred).Error; err != nil {
		return nil, err
	}

	return &ReferralInfo{
		ReferralCode:          profile.ReferralCode,
		TotalReferralEarnings: profile.TotalReferralEarnings,
		ReferredUsers:         referred,
	}, nil
}

package user

import "errors"

var (
	ErrInvalidFullname      = errors.New("Full name is required and must contain only letters, spaces, hyphens, and apostrophes")
	ErrInvalidEmailFormat   = errors.New("Invalid email format")
	ErrInvalidPassword      = errors.New("Password must be at least 8 characters with a letter, a number and a special character")
	ErrEmailTaken           = errors.New("Email is already registered")
	ErrReferralCodeNotFound = errors.New("Referral code not found")
	ErrProfileNotFound      = errors.New("Profile not found")
)

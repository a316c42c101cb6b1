package user

import (
	"context"
	"errors"

	"vaultyield-backend/internal/middleware"
	"vaultyield-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const userSessionsPrefix = "user_sessions:"

type Handlers struct {
	Service *Service
	Rdb     *redis.Client
	Config  middleware.SessionConfig
}

// Register POST /api/v1/auth/register creates the account and logs it in.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var body RegisterInput
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}

	u, err := h.Service.Register(c.Context(), body)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidFullname),
			errors.Is(err, ErrInvalidEmailFormat),
			errors.Is(err, ErrInvalidPassword),
			errors.Is(err, ErrReferralCodeNotFound):
			return response.Error(c, err.Error(), 400, nil)
		case errors.Is(err, ErrEmailTaken):
			return response.Error(c, err.Error(), 409, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}

	// Log the fresh account in: rotate session, store identity, set cookie.
	sid := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:   u.UserID.String(),
		Fullname: u.Fullname,
		Email:    u.Email,
		Role:     u.Role,
	})
	if h.Rdb != nil {
		_ = h.Rdb.SAdd(context.Background(), userSessionsPrefix+u.UserID.String(), sid).Err()
	}
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = sid
	c.Cookie(&cookie)

	return response.SuccessCreated(c, "Registration successful", fiber.Map{
		"user": fiber.Map{
			"user_id":  u.UserID.String(),
			"fullname": u.Fullname,
			"email":    u.Email,
			"role":     u.Role,
		},
	}, nil)
}

// GetReferrals GET /api/v1/profile/referrals
func (h *Handlers) GetReferrals(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	info, err := h.Service.Referrals(c.Context(), actor.UserID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return response.Error(c, err.Error(), 404, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Referrals retrieved", info, nil)
}

// GetReferralCode GET /api/v1/profile/referral-code
func (h *Handlers) GetReferralCode(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	profile, err := h.Service.ProfileOf(c.Context(), actor.UserID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return response.Error(c, err.Error(), 404, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Referral code retrieved", fiber.Map{
		"referral_code": profile.ReferralCode,
	}, nil)
}

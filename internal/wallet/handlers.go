package wallet

import (
	"errors"

	"vaultyield-backend/internal/middleware"
	"vaultyield-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *Service
}

// ViewWallet GET /api/v1/wallet returns balance and custodial deposit address.
func (h *Handlers) ViewWallet(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	w, err := h.Service.WalletOf(c.Context(), actor.UserID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return response.Error(c, "Wallet not found", 404, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Wallet retrieved", w, nil)
}

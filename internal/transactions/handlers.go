package transactions

import (
	"errors"

	"vaultyield-backend/internal/middleware"
	"vaultyield-backend/internal/pkg/response"
	"vaultyield-backend/internal/wallet"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *Service
}

// SubmitDeposit POST /api/v1/transactions/deposit
func (h *Handlers) SubmitDeposit(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	var body struct {
		TxHash string `json:"tx_hash"`
	}
	if err := c.BodyParser(&body); err != nil || body.TxHash == "" {
		return response.Error(c, "tx_hash is required", 400, nil)
	}

	entry, err := h.Service.Deposit(c.Context(), actor.UserID, body.TxHash)
	if err != nil {
		switch {
		case errors.Is(err, ErrVerificationFailed):
			return response.Error(c, err.Error(), 400, nil)
		case errors.Is(err, ErrDepositAlreadyProcessed):
			return response.Error(c, "Deposit already processed", 409, nil)
		case errors.Is(err, wallet.ErrWalletNotFound):
			return response.Error(c, "Wallet not found", 404, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.SuccessCreated(c, "Deposit credited", entry, nil)
}

// ListTransactions GET /api/v1/transactions
func (h *Handlers) ListTransactions(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	entries, err := h.Service.List(c.Context(), actor.UserID)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return response.Error(c, "Wallet not found", 404, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Transactions retrieved", entries, nil)
}

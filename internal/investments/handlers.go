package investments

import (
	"errors"

	"vaultyield-backend/internal/middleware"
	"vaultyield-backend/internal/pkg/response"
	"vaultyield-backend/internal/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *Service
}

func mapInvestmentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrPlanNotFound), errors.Is(err, ErrInvestmentNotFound):
		return response.Error(c, err.Error(), 404, nil)
	case errors.Is(err, ErrNoActiveInvestment):
		return response.Error(c, "No active investment", 404, nil)
	case errors.Is(err, ErrActiveInvestmentExists):
		return response.Error(c, "An active investment already exists", 409, nil)
	case errors.Is(err, ErrWithdrawalConflict):
		return response.Error(c, err.Error(), 409, nil)
	case errors.Is(err, ErrAmountOutOfRange),
		errors.Is(err, ErrInvalidUpgrade),
		errors.Is(err, ErrInvestmentNotActive),
		errors.Is(err, ErrWithdrawalNotAllowed),
		errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, wallet.ErrInsufficientBalance):
		return response.Error(c, err.Error(), 400, nil)
	case errors.Is(err, wallet.ErrWalletNotFound):
		return response.Error(c, "Wallet not found", 404, nil)
	case errors.Is(err, ErrUnknownTransferOutcome), errors.Is(err, ErrReconciliationRequired):
		return response.Error(c, "Withdrawal outcome pending manual review", 502, nil)
	}
	return response.Error(c, "Internal Server Error", 500, nil)
}

// CreateInvestment POST /api/v1/investments
func (h *Handlers) CreateInvestment(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	var body struct {
		PlanID string          `json:"plan_id"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	planID, err := uuid.Parse(body.PlanID)
	if err != nil {
		return response.Error(c, "Invalid plan_id", 400, nil)
	}
	if body.Amount.Sign() <= 0 {
		return response.Error(c, "Amount must be a positive number", 400, nil)
	}

	inv, err := h.Service.Create(c.Context(), actor.UserID, planID, body.Amount)
	if err != nil {
		return mapInvestmentError(c, err)
	}
	return response.SuccessCreated(c, "Investment created", inv, nil)
}

// ListInvestments GET /api/v1/investments
func (h *Handlers) ListInvestments(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	out, err := h.Service.List(c.Context(), actor.UserID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Investments retrieved", out, nil)
}

// GetInvestment GET /api/v1/investments/:id
func (h *Handlers) GetInvestment(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid investment id", 400, nil)
	}
	inv, err := h.Service.Get(c.Context(), actor.UserID, id)
	if err != nil {
		return mapInvestmentError(c, err)
	}
	return response.Success(c, "Investment retrieved", inv, nil)
}

// GetEarnings GET /api/v1/investments/:id/earnings
func (h *Handlers) GetEarnings(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid investment id", 400, nil)
	}
	earnings, err := h.Service.EarningsOf(c.Context(), actor.UserID, id)
	if err != nil {
		return mapInvestmentError(c, err)
	}
	return response.Success(c, "Earnings computed", earnings, nil)
}

// UpgradeInvestment POST /api/v1/investments/:id/upgrade
func (h *Handlers) UpgradeInvestment(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid investment id", 400, nil)
	}

	var body struct {
		NewPlanID        string          `json:"new_plan_id"`
		AdditionalAmount decimal.Decimal `json:"additional_amount"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	newPlanID, err := uuid.Parse(body.NewPlanID)
	if err != nil {
		return response.Error(c, "Invalid new_plan_id", 400, nil)
	}

	inv, err := h.Service.Upgrade(c.Context(), actor.UserID, id, newPlanID, body.AdditionalAmount)
	if err != nil {
		return mapInvestmentError(c, err)
	}
	return response.SuccessCreated(c, "Investment upgraded", inv, nil)
}

// CancelInvestment POST /api/v1/investments/:id/cancel
func (h *Handlers) CancelInvestment(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid investment id", 400, nil)
	}
	if err := h.Service.Cancel(c.Context(), actor.UserID, id); err != nil {
		return mapInvestmentError(c, err)
	}
	return response.Success(c, "Investment cancelled", nil, nil)
}

// Withdraw POST /api/v1/investments/withdraw
func (h *Handlers) Withdraw(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	var body struct {
		Amount             decimal.Decimal `json:"amount"`
		DestinationAddress string          `json:"destination_address"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	if body.DestinationAddress == "" {
		return response.Error(c, "destination_address is required", 400, nil)
	}

	entry, err := h.Service.Withdraw(c.Context(), actor.UserID, body.Amount, body.DestinationAddress)
	if err != nil {
		return mapInvestmentError(c, err)
	}
	return response.Success(c, "Withdrawal completed", entry, nil)
}

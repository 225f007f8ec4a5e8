package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Vraj260105/Block-Vote/internal/common"
	"github.com/Vraj260105/Block-Vote/internal/server/authz"
	"github.com/Vraj260105/Block-Vote/internal/server/ledger"
	"github.com/Vraj260105/Block-Vote/internal/server/wallet"
)

type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// errorResponse maps service errors onto HTTP statuses. Ledger reverts keep
// their named reason so clients can react to AlreadyVoted vs VotingClosed;
// everything enumeration-sensitive stays generic.
func errorResponse(ctx *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, common.ErrorValidation), errors.Is(err, wallet.ErrInvalidAddress):
		return ctx.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request"})
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return ctx.Status(fiber.StatusUnauthorized).JSON(errorBody{Error: "unauthorized"})
	case errors.Is(err, authz.ErrWalletMismatch):
		return ctx.Status(fiber.StatusForbidden).JSON(errorBody{Error: err.Error()})
	case errors.Is(err, authz.ErrWalletNotConnected),
		errors.Is(err, wallet.ErrAlreadyBoundElsewhere):
		return ctx.Status(fiber.StatusConflict).JSON(errorBody{Error: err.Error()})
	case errors.Is(err, common.ErrorNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(errorBody{Error: "not found"})
	case errors.Is(err, common.ErrorTransient):
		return ctx.Status(fiber.StatusBadGateway).JSON(errorBody{Error: "temporarily unavailable, retry"})
	}

	if reason := ledger.ReasonFor(err); reason != "" {
		return ctx.Status(fiber.StatusConflict).JSON(errorBody{Error: err.Error(), Reason: reason})
	}

	return ctx.Status(fiber.StatusInternalServerError).JSON(errorBody{Error: "internal error"})
}

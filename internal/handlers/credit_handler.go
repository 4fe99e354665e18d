package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/pinkflag/backend/internal/dto"
	"github.com/pinkflag/backend/internal/middleware"
	"github.com/pinkflag/backend/internal/services"
)

type CreditHandler struct {
	credits services.CreditStore
}

func NewCreditHandler(credits services.CreditStore) *CreditHandler {
	return &CreditHandler{credits: credits}
}

// GetBalance returns the caller's current credit balance.
func (h *CreditHandler) GetBalance(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	balance, err := h.credits.GetBalance(c.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "User profile not found",
			})
		}
		slog.Error("failed to fetch credit balance", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch credits",
		})
	}

	return c.JSON(dto.CreditBalanceResponse{Credits: balance})
}

// StartSearch atomically deducts the search cost and records the search
// history entry. Insufficient balance is a 402, not a server error.
func (h *CreditHandler) StartSearch(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.StartSearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	cost, ok := services.SearchCost(req.SearchType)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Unknown search type",
		})
	}
	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Query is required",
		})
	}

	result, err := h.credits.DeductForSearch(c.Context(), userID, req.SearchType, req.Query, cost)
	if err != nil {
		slog.Error("credit deduction failed", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Credit validation error",
		})
	}

	if !result.Success {
		if result.Error == "insufficient_credits" {
			return c.Status(fiber.StatusPaymentRequired).JSON(dto.InsufficientCreditsResponse{
				Error:          "insufficient_credits",
				Message:        fmt.Sprintf("Not enough credits. You have %d credit(s).", result.Credits),
				CurrentCredits: result.Credits,
			})
		}
		slog.Error("credit deduction rejected", "user_id", userID.String(), "reason", result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Credit deduction failed",
		})
	}

	return c.JSON(dto.SearchStartedResponse{
		Success:  true,
		SearchID: result.SearchID,
		Credits:  result.Credits,
	})
}

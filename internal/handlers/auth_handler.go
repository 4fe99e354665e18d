package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/pinkflag/backend/internal/dto"
	"github.com/pinkflag/backend/internal/middleware"
	"github.com/pinkflag/backend/internal/services"
)

type AuthHandler struct {
	authService    *services.AuthService
	accountService *services.AccountService
}

func NewAuthHandler(authService *services.AuthService, accountService *services.AccountService) *AuthHandler {
	return &AuthHandler{authService: authService, accountService: accountService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.JSON(resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	resp, err := h.authService.Refresh(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	if err := h.authService.Logout(&req); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to logout",
		})
	}

	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// DeleteAccount removes all of the caller's data in dependency order.
// A mid-sequence failure returns 500 naming the failed step; steps that
// already completed stay deleted.
func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.DeleteAccountError{
			Error: "Invalid or expired token",
		})
	}

	slog.Info("starting account deletion", "user_id", userID.String())

	if err := h.accountService.DeleteAccount(c.Context(), userID); err != nil {
		var delErr *services.DeletionError
		if errors.As(err, &delErr) {
			slog.Error("account deletion failed",
				"user_id", userID.String(),
				"step", delErr.Step,
				"error", delErr.Err,
			)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.DeleteAccountError{
				Error:   "Failed to delete " + delErr.Step,
				Details: delErr.Err.Error(),
			})
		}
		slog.Error("account deletion failed", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.DeleteAccountError{
			Error: "Internal server error",
		})
	}

	return c.JSON(dto.DeleteAccountResponse{
		Success: true,
		Message: "Account successfully deleted",
		UserID:  userID.String(),
	})
}

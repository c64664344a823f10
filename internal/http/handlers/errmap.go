package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Tejas56934/LibraryManagementSystem/internal/services"
)

// fail maps service errors onto discriminated JSON results so callers can
// tell a business-rule rejection from an infrastructure failure.
func fail(c *fiber.Ctx, err error) error {
	code, status := "internal", fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		code, status = "not_found", fiber.StatusNotFound
	case errors.Is(err, services.ErrAlreadyReturned):
		code, status = "already_returned", fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidState):
		code, status = "invalid_state", fiber.StatusConflict
	case errors.Is(err, services.ErrOutOfStock):
		code, status = "out_of_stock", fiber.StatusConflict
	case errors.Is(err, services.ErrAlreadyAvailable):
		code, status = "already_available", fiber.StatusConflict
	case errors.Is(err, services.ErrDuplicateReservation):
		code, status = "duplicate_reservation", fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{"error": code, "detail": err.Error()})
}

func badRequest(c *fiber.Ctx, detail string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "detail": detail})
}

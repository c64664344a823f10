package handlers

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Tejas56934/LibraryManagementSystem/internal/domain"
	applog "github.com/Tejas56934/LibraryManagementSystem/internal/log"
	"github.com/Tejas56934/LibraryManagementSystem/internal/repos"
	"github.com/Tejas56934/LibraryManagementSystem/internal/validate"
)

// PatronHandler manages the patron directory. There are no credentials
// here; patrons are addresses for notifications, not accounts.
type PatronHandler struct {
	Patrons *repos.PatronRepo
}

func (h *PatronHandler) List(c *fiber.Ctx) error {
	patrons, err := h.Patrons.List()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(patrons)
}

func (h *PatronHandler) Get(c *fiber.Ctx) error {
	patronID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid patron id")
	}
	patron, err := h.Patrons.Get(patronID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return fail(c, err)
	}
	return c.JSON(patron)
}

type createPatronRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (h *PatronHandler) Create(c *fiber.Ctx) error {
	var req createPatronRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	patronID, ok := validate.ID(req.ID)
	if !ok {
		return badRequest(c, "invalid id")
	}
	if req.Name == "" {
		return badRequest(c, "name is required")
	}
	email := ""
	if req.Email != "" {
		email, ok = validate.Email(req.Email)
		if !ok {
			return badRequest(c, "invalid email")
		}
	}

	// Existence check first so a storage failure doesn't masquerade as a
	// duplicate id.
	if _, err := h.Patrons.Get(patronID); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "duplicate_id"})
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fail(c, err)
	}

	patron := domain.Patron{ID: patronID, Name: req.Name, Email: email, Phone: req.Phone}
	if err := h.Patrons.Create(patron); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "patron.create", map[string]any{"patron_id": patron.ID})
	return c.Status(fiber.StatusCreated).JSON(patron)
}

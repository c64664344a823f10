package handlers

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "github.com/Tejas56934/LibraryManagementSystem/internal/log"
	"github.com/Tejas56934/LibraryManagementSystem/internal/repos"
	"github.com/Tejas56934/LibraryManagementSystem/internal/validate"
)

// CatalogHandler covers the administrative surface: browsing copy counts
// and restocking. Restock is the only path that moves total_copies.
type CatalogHandler struct {
	Catalog *repos.CatalogRepo
}

func (h *CatalogHandler) List(c *fiber.Ctx) error {
	titles, err := h.Catalog.List()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(titles)
}

func (h *CatalogHandler) Get(c *fiber.Ctx) error {
	titleID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid title id")
	}
	title, err := h.Catalog.Get(titleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return fail(c, err)
	}
	return c.JSON(title)
}

type restockRequest struct {
	Delta int `json:"delta"`
}

func (h *CatalogHandler) Restock(c *fiber.Ctx) error {
	titleID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid title id")
	}
	var req restockRequest
	if err := c.BodyParser(&req); err != nil || req.Delta == 0 {
		return badRequest(c, "delta must be a non-zero integer")
	}

	if err := h.Catalog.Restock(titleID, req.Delta); err != nil {
		switch {
		case errors.Is(err, repos.ErrStockBounds):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "stock_bounds", "detail": err.Error()})
		case errors.Is(err, sql.ErrNoRows):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		default:
			return fail(c, err)
		}
	}
	applog.Audit(c, "catalog.restock", map[string]any{"title_id": titleID, "delta": req.Delta})

	title, err := h.Catalog.Get(titleID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(title)
}

package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	applog "github.com/Tejas56934/LibraryManagementSystem/internal/log"
	"github.com/Tejas56934/LibraryManagementSystem/internal/repos"
	"github.com/Tejas56934/LibraryManagementSystem/internal/validate"
)

type AlertHandler struct {
	Alerts *repos.AlertRepo
}

func (h *AlertHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	alerts, err := h.Alerts.ListRecent(limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(alerts)
}

// MarkRead acknowledges an alert so it drops off the librarian's worklist.
func (h *AlertHandler) MarkRead(c *fiber.Ctx) error {
	alertID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid alert id")
	}
	if err := h.Alerts.MarkRead(alertID); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "alert.read", map[string]any{"alert_id": alertID})
	return c.JSON(fiber.Map{"ok": true})
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "github.com/Tejas56934/LibraryManagementSystem/internal/log"
	"github.com/Tejas56934/LibraryManagementSystem/internal/services"
	"github.com/Tejas56934/LibraryManagementSystem/internal/validate"
)

type ReservationHandler struct {
	Waitlist *services.WaitlistService
}

type placeReservationRequest struct {
	TitleID  string `json:"title_id"`
	PatronID string `json:"patron_id"`
}

func (h *ReservationHandler) Place(c *fiber.Ctx) error {
	var req placeReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	titleID, ok := validate.ID(req.TitleID)
	if !ok {
		return badRequest(c, "invalid title_id")
	}
	patronID, ok := validate.ID(req.PatronID)
	if !ok {
		return badRequest(c, "invalid patron_id")
	}

	res, err := h.Waitlist.PlaceReservation(c.Context(), titleID, patronID)
	if err != nil {
		applog.Info(c, "reservation.place.reject", map[string]any{"title_id": titleID, "error": err.Error()})
		return fail(c, err)
	}
	applog.Audit(c, "reservation.place", map[string]any{"reservation_id": res.ID, "title_id": titleID})
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	resID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.Waitlist.CancelReservation(c.Context(), resID)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "reservation.cancel", map[string]any{"reservation_id": res.ID, "title_id": res.TitleID})
	return c.JSON(res)
}

func (h *ReservationHandler) PatronReservations(c *fiber.Ctx) error {
	patronID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid patron id")
	}
	views, err := h.Waitlist.ListPatronReservations(c.Context(), patronID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(views)
}

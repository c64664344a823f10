package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	applog "github.com/Tejas56934/LibraryManagementSystem/internal/log"
	"github.com/Tejas56934/LibraryManagementSystem/internal/services"
	"github.com/Tejas56934/LibraryManagementSystem/internal/validate"
)

type CirculationHandler struct {
	Circ *services.CirculationService

	// DefaultLoanPeriod fills due_at when the desk doesn't pick a date.
	DefaultLoanPeriod time.Duration
}

type issueRequest struct {
	TitleID  string `json:"title_id"`
	PatronID string `json:"patron_id"`
	DueAt    string `json:"due_at,omitempty"`
}

func (h *CirculationHandler) Issue(c *fiber.Ctx) error {
	var req issueRequest
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

	now := time.Now()
	dueAt := now.Add(h.DefaultLoanPeriod)
	if req.DueAt != "" {
		parsed, ok := validate.DueDate(req.DueAt, now)
		if !ok {
			return badRequest(c, "due_at must be RFC 3339 and in the future")
		}
		dueAt = parsed
	}

	loan, err := h.Circ.IssueCopy(c.Context(), titleID, patronID, dueAt)
	if err != nil {
		applog.Info(c, "loan.issue.reject", map[string]any{"title_id": titleID, "error": err.Error()})
		return fail(c, err)
	}
	applog.Audit(c, "loan.issue", map[string]any{"loan_id": loan.ID, "title_id": titleID, "patron_id": patronID})
	return c.Status(fiber.StatusCreated).JSON(loan)
}

func (h *CirculationHandler) Return(c *fiber.Ctx) error {
	loanID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid loan id")
	}
	loan, err := h.Circ.ReturnCopy(c.Context(), loanID)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "loan.return", map[string]any{"loan_id": loan.ID, "title_id": loan.TitleID})
	return c.JSON(loan)
}

type readInRequest struct {
	TitleID  string `json:"title_id"`
	PatronID string `json:"patron_id"`
}

func (h *CirculationHandler) ReadIn(c *fiber.Ctx) error {
	var req readInRequest
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

	loan, err := h.Circ.LogReadInOffice(c.Context(), titleID, patronID)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "loan.read_in", map[string]any{"loan_id": loan.ID, "title_id": titleID})
	return c.Status(fiber.StatusCreated).JSON(loan)
}

func (h *CirculationHandler) ReadOut(c *fiber.Ctx) error {
	loanID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid loan id")
	}
	loan, err := h.Circ.LogReadOut(c.Context(), loanID)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "loan.read_out", map[string]any{"loan_id": loan.ID, "title_id": loan.TitleID})
	return c.JSON(loan)
}

func (h *CirculationHandler) ListActive(c *fiber.Ctx) error {
	loans, err := h.Circ.ListActiveLoans(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(loans)
}

func (h *CirculationHandler) PatronLoans(c *fiber.Ctx) error {
	patronID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid patron id")
	}
	loans, err := h.Circ.ListPatronLoans(c.Context(), patronID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(loans)
}

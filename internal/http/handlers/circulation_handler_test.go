package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/Tejas56934/LibraryManagementSystem/internal/config"
	"github.com/Tejas56934/LibraryManagementSystem/internal/domain"
	"github.com/Tejas56934/LibraryManagementSystem/internal/http/handlers"
	"github.com/Tejas56934/LibraryManagementSystem/internal/notify"
	"github.com/Tejas56934/LibraryManagementSystem/internal/repos"
)

// newApp stands up the routes against an in-memory database with the demo
// seed (BK-1001..1003, P-0001..0003).
func newApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)

	cfg := config.Config{
		LoanPeriodDays: 14,
		ReminderWindow: 24 * time.Hour,
		PickupGrace:    48 * time.Hour,
	}
	deps := handlers.NewDeps(db, cfg, &notify.Recorder{})

	app := fiber.New()
	app.Post("/loans", deps.Circulation.Issue)
	app.Post("/loans/:id/return", deps.Circulation.Return)
	app.Get("/loans", deps.Circulation.ListActive)
	app.Post("/reservations", deps.Reservation.Place)
	app.Post("/reservations/:id/cancel", deps.Reservation.Cancel)
	app.Get("/patrons/:id/reservations", deps.Reservation.PatronReservations)
	app.Get("/titles/:id", deps.Catalog.Get)
	app.Post("/titles/:id/restock", deps.Catalog.Restock)
	app.Post("/patrons", deps.Patron.Create)
	app.Get("/patrons/:id", deps.Patron.Get)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func errCode(t *testing.T, raw []byte) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body.Error
}

func TestIssueReturnFlow(t *testing.T) {
	app := newApp(t)

	// BK-1003 has a single copy.
	resp, raw := doJSON(t, app, "POST", "/loans", fiber.Map{"title_id": "BK-1003", "patron_id": "P-0001"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var loan domain.Loan
	require.NoError(t, json.Unmarshal(raw, &loan))
	require.Equal(t, domain.LoanIssued, loan.Status)
	require.Equal(t, "BK-1003", loan.TitleID)

	resp, raw = doJSON(t, app, "GET", "/titles/BK-1003", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var title domain.Title
	require.NoError(t, json.Unmarshal(raw, &title))
	require.Zero(t, title.AvailableCopies)

	// A second patron can't take the copy that's out.
	resp, raw = doJSON(t, app, "POST", "/loans", fiber.Map{"title_id": "BK-1003", "patron_id": "P-0002"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "out_of_stock", errCode(t, raw))

	resp, raw = doJSON(t, app, "POST", fmt.Sprintf("/loans/%s/return", loan.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var returned domain.Loan
	require.NoError(t, json.Unmarshal(raw, &returned))
	require.Equal(t, domain.LoanReturned, returned.Status)
	require.NotNil(t, returned.ReturnedAt)

	// Returning twice is a conflict, not a 500.
	resp, raw = doJSON(t, app, "POST", fmt.Sprintf("/loans/%s/return", loan.ID), nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "already_returned", errCode(t, raw))
}

func TestIssueValidation(t *testing.T) {
	app := newApp(t)

	resp, raw := doJSON(t, app, "POST", "/loans", fiber.Map{"title_id": "no such title", "patron_id": "P-0001"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "bad_request", errCode(t, raw))

	resp, raw = doJSON(t, app, "POST", "/loans", fiber.Map{"title_id": "BK-9999", "patron_id": "P-0001"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "not_found", errCode(t, raw))

	resp, raw = doJSON(t, app, "POST", "/loans",
		fiber.Map{"title_id": "BK-1001", "patron_id": "P-0001", "due_at": "2001-01-01T00:00:00Z"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "bad_request", errCode(t, raw))
}

func TestReservationFlow(t *testing.T) {
	app := newApp(t)

	// Reservations only apply while the title is out of copies.
	resp, raw := doJSON(t, app, "POST", "/reservations", fiber.Map{"title_id": "BK-1003", "patron_id": "P-0002"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "already_available", errCode(t, raw))

	_, raw = doJSON(t, app, "POST", "/loans", fiber.Map{"title_id": "BK-1003", "patron_id": "P-0001"})
	var loan domain.Loan
	require.NoError(t, json.Unmarshal(raw, &loan))

	resp, raw = doJSON(t, app, "POST", "/reservations", fiber.Map{"title_id": "BK-1003", "patron_id": "P-0002"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var res domain.Reservation
	require.NoError(t, json.Unmarshal(raw, &res))
	require.Equal(t, domain.ReservationWaiting, res.Status)

	resp, raw = doJSON(t, app, "POST", "/reservations", fiber.Map{"title_id": "BK-1003", "patron_id": "P-0002"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "duplicate_reservation", errCode(t, raw))

	// The return hands the copy straight to the queue head.
	resp, _ = doJSON(t, app, "POST", fmt.Sprintf("/loans/%s/return", loan.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = doJSON(t, app, "GET", "/patrons/P-0002/reservations", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var views []domain.ReservationView
	require.NoError(t, json.Unmarshal(raw, &views))
	require.Len(t, views, 1)
	require.Equal(t, domain.ReservationReady, views[0].Status)
	require.Equal(t, 1, views[0].QueuePosition)

	resp, raw = doJSON(t, app, "GET", "/titles/BK-1003", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var title domain.Title
	require.NoError(t, json.Unmarshal(raw, &title))
	require.Zero(t, title.AvailableCopies) // the held copy is not browsable stock

	resp, raw = doJSON(t, app, "POST", fmt.Sprintf("/reservations/%s/cancel", res.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cancelled domain.Reservation
	require.NoError(t, json.Unmarshal(raw, &cancelled))
	require.Equal(t, domain.ReservationCancelled, cancelled.Status)
}

func TestRestock(t *testing.T) {
	app := newApp(t)

	resp, raw := doJSON(t, app, "POST", "/titles/BK-1003/restock", fiber.Map{"delta": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var title domain.Title
	require.NoError(t, json.Unmarshal(raw, &title))
	require.Equal(t, 3, title.TotalCopies)
	require.Equal(t, 3, title.AvailableCopies)

	resp, raw = doJSON(t, app, "POST", "/titles/BK-1003/restock", fiber.Map{"delta": -5})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "stock_bounds", errCode(t, raw))

	resp, raw = doJSON(t, app, "POST", "/titles/BK-1003/restock", fiber.Map{"delta": 0})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "bad_request", errCode(t, raw))

	resp, raw = doJSON(t, app, "POST", "/titles/BK-9999/restock", fiber.Map{"delta": 1})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "not_found", errCode(t, raw))
}

func TestGetUnknownIDsAreNotFound(t *testing.T) {
	app := newApp(t)

	resp, raw := doJSON(t, app, "GET", "/titles/BK-9999", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "not_found", errCode(t, raw))

	resp, raw = doJSON(t, app, "GET", "/patrons/P-9999", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "not_found", errCode(t, raw))
}

func TestPatronDirectory(t *testing.T) {
	app := newApp(t)

	resp, raw := doJSON(t, app, "POST", "/patrons",
		fiber.Map{"id": "P-1000", "name": "Dana Wu", "email": "dana@campus.test"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var patron domain.Patron
	require.NoError(t, json.Unmarshal(raw, &patron))
	require.Equal(t, "P-1000", patron.ID)

	resp, _ = doJSON(t, app, "GET", "/patrons/P-1000", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = doJSON(t, app, "POST", "/patrons",
		fiber.Map{"id": "P-1001", "name": "Eve", "email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "bad_request", errCode(t, raw))

	resp, raw = doJSON(t, app, "POST", "/patrons",
		fiber.Map{"id": "P-1000", "name": "Dana Again"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "duplicate_id", errCode(t, raw))
}

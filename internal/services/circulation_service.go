package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Tejas56934/LibraryManagementSystem/internal/domain"
	applog "github.com/Tejas56934/LibraryManagementSystem/internal/log"
	"github.com/Tejas56934/LibraryManagementSystem/internal/repos"
)

// CirculationService is the borrow/return engine. Every stock mutation,
// loan transition and queue hand-off for one title happens under that
// title's lock, which is what keeps
//
//	available_copies + issued_or_held == total_copies
//
// true at every quiescent point.
type CirculationService struct {
	Catalog  *repos.CatalogRepo
	Loans    *repos.LoanRepo
	Patrons  *repos.PatronRepo
	Waitlist *WaitlistService
	Locks    *TitleLocks

	// Now is swappable for tests; nil means time.Now.
	Now func() time.Time
}

func NewCirculationService(catalog *repos.CatalogRepo, loans *repos.LoanRepo,
	patrons *repos.PatronRepo, waitlist *WaitlistService, locks *TitleLocks) *CirculationService {
	return &CirculationService{
		Catalog:  catalog,
		Loans:    loans,
		Patrons:  patrons,
		Waitlist: waitlist,
		Locks:    locks,
	}
}

func (s *CirculationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// IssueCopy checks one copy out to a patron. Normally it takes a copy off
// the shelf; if the patron holds a READY_FOR_PICKUP reservation for the
// title, the held copy is used instead and the reservation is fulfilled,
// so available_copies is not touched.
func (s *CirculationService) IssueCopy(ctx context.Context, titleID, patronID string, dueAt time.Time) (domain.Loan, error) {
	unlock := s.Locks.Lock(titleID)
	defer unlock()

	if _, err := s.Catalog.Get(titleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Loan{}, ErrNotFound
		}
		return domain.Loan{}, err
	}
	if _, err := s.Patrons.Get(patronID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Loan{}, ErrNotFound
		}
		return domain.Loan{}, err
	}
	if !dueAt.After(s.now()) {
		return domain.Loan{}, ErrInvalidState
	}

	fulfilledReservation := ""
	ready, err := s.Waitlist.Reservations.FindByPatronTitleStatus(patronID, titleID, domain.ReservationReady)
	switch {
	case err == nil:
		ok, err := s.Waitlist.Reservations.TransitionStatus(ready.ID, domain.ReservationReady, domain.ReservationFulfilled)
		if err != nil {
			return domain.Loan{}, err
		}
		if !ok {
			return domain.Loan{}, ErrInvalidState
		}
		fulfilledReservation = ready.ID
	case errors.Is(err, sql.ErrNoRows):
		if err := s.Catalog.AdjustAvailable(titleID, -1); err != nil {
			if errors.Is(err, repos.ErrStockBounds) {
				return domain.Loan{}, ErrOutOfStock
			}
			return domain.Loan{}, err
		}
	default:
		return domain.Loan{}, err
	}

	loan := domain.Loan{
		ID:       uuid.NewString(),
		TitleID:  titleID,
		PatronID: patronID,
		Status:   domain.LoanIssued,
		IssuedAt: s.now(),
		DueAt:    dueAt,
	}
	if err := s.Loans.Insert(loan); err != nil {
		// Undo the stock/reservation step so the failure is all-or-nothing.
		s.compensateIssue(titleID, fulfilledReservation)
		return domain.Loan{}, err
	}
	return loan, nil
}

// ReturnCopy closes an active loan and routes the freed copy: the oldest
// waiting reservation gets it held, otherwise it goes back on the shelf.
func (s *CirculationService) ReturnCopy(ctx context.Context, loanID string) (domain.Loan, error) {
	loan, err := s.Loans.FindByID(loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Loan{}, ErrNotFound
		}
		return domain.Loan{}, err
	}

	unlock := s.Locks.Lock(loan.TitleID)
	defer unlock()

	returnedAt := s.now()
	ok, err := s.Loans.MarkReturned(loanID, returnedAt, domain.ActiveLoanStatuses...)
	if err != nil {
		return domain.Loan{}, err
	}
	if !ok {
		return domain.Loan{}, ErrAlreadyReturned
	}

	if err := s.Waitlist.handOffHeldCopy(ctx, loan.TitleID); err != nil {
		return domain.Loan{}, err
	}
	return s.Loans.FindByID(loanID)
}

// LogReadInOffice records same-day, on-premises use of a copy. It follows
// the same stock discipline as a regular issue; the implicit due time is
// the end of the current day.
func (s *CirculationService) LogReadInOffice(ctx context.Context, titleID, patronID string) (domain.Loan, error) {
	unlock := s.Locks.Lock(titleID)
	defer unlock()

	if _, err := s.Catalog.Get(titleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Loan{}, ErrNotFound
		}
		return domain.Loan{}, err
	}
	if _, err := s.Patrons.Get(patronID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Loan{}, ErrNotFound
		}
		return domain.Loan{}, err
	}

	if err := s.Catalog.AdjustAvailable(titleID, -1); err != nil {
		if errors.Is(err, repos.ErrStockBounds) {
			return domain.Loan{}, ErrOutOfStock
		}
		return domain.Loan{}, err
	}

	now := s.now()
	y, m, d := now.Date()
	loan := domain.Loan{
		ID:       uuid.NewString(),
		TitleID:  titleID,
		PatronID: patronID,
		Status:   domain.LoanInOffice,
		IssuedAt: now,
		DueAt:    time.Date(y, m, d, 23, 59, 0, 0, now.Location()),
	}
	if err := s.Loans.Insert(loan); err != nil {
		s.compensateIssue(titleID, "")
		return domain.Loan{}, err
	}
	return loan, nil
}

// LogReadOut closes an in-office reading log and releases the copy through
// the same waitlist hook as a regular return. The end-of-day sweep may
// already have flagged the session OVERDUE; that must not strand it, so
// the close accepts both states.
func (s *CirculationService) LogReadOut(ctx context.Context, loanID string) (domain.Loan, error) {
	loan, err := s.Loans.FindByID(loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Loan{}, ErrNotFound
		}
		return domain.Loan{}, err
	}

	unlock := s.Locks.Lock(loan.TitleID)
	defer unlock()

	ok, err := s.Loans.MarkReturned(loanID, s.now(), domain.LoanInOffice, domain.LoanOverdue)
	if err != nil {
		return domain.Loan{}, err
	}
	if !ok {
		// Re-read to report the right rejection.
		cur, err := s.Loans.FindByID(loanID)
		if err != nil {
			return domain.Loan{}, err
		}
		if cur.Status == domain.LoanReturned {
			return domain.Loan{}, ErrAlreadyReturned
		}
		return domain.Loan{}, ErrInvalidState
	}

	if err := s.Waitlist.handOffHeldCopy(ctx, loan.TitleID); err != nil {
		return domain.Loan{}, err
	}
	return s.Loans.FindByID(loanID)
}

func (s *CirculationService) ListActiveLoans(ctx context.Context) ([]domain.Loan, error) {
	return s.Loans.FindByStatusIn(domain.ActiveLoanStatuses...)
}

func (s *CirculationService) ListPatronLoans(ctx context.Context, patronID string) ([]domain.Loan, error) {
	return s.Loans.FindByPatron(patronID)
}

// compensateIssue undoes the pre-insert half of an issue under the held
// title lock: the fulfilled reservation goes back to READY_FOR_PICKUP, or
// the decremented copy goes back on the shelf.
func (s *CirculationService) compensateIssue(titleID, reservationID string) {
	if reservationID != "" {
		if _, err := s.Waitlist.Reservations.TransitionStatus(reservationID, domain.ReservationFulfilled, domain.ReservationReady); err != nil {
			applog.BgError("circulation.issue.compensate", err, map[string]any{"reservation_id": reservationID})
		}
		return
	}
	if err := s.Catalog.AdjustAvailable(titleID, +1); err != nil {
		applog.BgError("circulation.issue.compensate", err, map[string]any{"title_id": titleID})
	}
}

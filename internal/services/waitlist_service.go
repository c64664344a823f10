package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Tejas56934/LibraryManagementSystem/internal/domain"
	applog "github.com/Tejas56934/LibraryManagementSystem/internal/log"
	"github.com/Tejas56934/LibraryManagementSystem/internal/notify"
	"github.com/Tejas56934/LibraryManagementSystem/internal/repos"
)

// WaitlistService runs the FIFO reservation queue for each title: placing
// and cancelling reservations, promoting the oldest waiting patron when a
// copy frees up, and expiring holds that were never picked up.
type WaitlistService struct {
	Catalog      *repos.CatalogRepo
	Reservations *repos.ReservationRepo
	Patrons      *repos.PatronRepo
	Alerts       *repos.AlertRepo
	Notifier     notify.Notifier
	Locks        *TitleLocks

	PickupGrace time.Duration

	// Now is swappable for tests; nil means time.Now.
	Now func() time.Time
}

func NewWaitlistService(catalog *repos.CatalogRepo, reservations *repos.ReservationRepo,
	patrons *repos.PatronRepo, alerts *repos.AlertRepo, notifier notify.Notifier,
	locks *TitleLocks, pickupGrace time.Duration) *WaitlistService {
	return &WaitlistService{
		Catalog:      catalog,
		Reservations: reservations,
		Patrons:      patrons,
		Alerts:       alerts,
		Notifier:     notifier,
		Locks:        locks,
		PickupGrace:  pickupGrace,
	}
}

func (s *WaitlistService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// PlaceReservation queues a patron for a fully checked-out title. Reserving
// a title that still has available copies is rejected: the patron should
// borrow it directly.
func (s *WaitlistService) PlaceReservation(ctx context.Context, titleID, patronID string) (domain.Reservation, error) {
	unlock := s.Locks.Lock(titleID)
	defer unlock()

	title, err := s.Catalog.Get(titleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reservation{}, ErrNotFound
		}
		return domain.Reservation{}, err
	}
	if _, err := s.Patrons.Get(patronID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reservation{}, ErrNotFound
		}
		return domain.Reservation{}, err
	}
	if title.AvailableCopies > 0 {
		return domain.Reservation{}, ErrAlreadyAvailable
	}

	_, err = s.Reservations.FindByPatronTitleStatus(patronID, titleID, domain.ReservationWaiting)
	if err == nil {
		return domain.Reservation{}, ErrDuplicateReservation
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Reservation{}, err
	}

	res := domain.Reservation{
		ID:          uuid.NewString(),
		TitleID:     titleID,
		PatronID:    patronID,
		Status:      domain.ReservationWaiting,
		RequestedAt: s.now(),
	}
	if err := s.Reservations.Insert(res); err != nil {
		return domain.Reservation{}, err
	}
	return res, nil
}

// CancelReservation cancels a WAITING or READY_FOR_PICKUP reservation.
// Cancelling a promoted one re-triggers promotion so the held copy is not
// stranded: the next waiting patron gets it, or it goes back on the shelf.
func (s *WaitlistService) CancelReservation(ctx context.Context, reservationID string) (domain.Reservation, error) {
	res, err := s.Reservations.FindByID(reservationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reservation{}, ErrNotFound
		}
		return domain.Reservation{}, err
	}

	unlock := s.Locks.Lock(res.TitleID)
	defer unlock()

	// Re-read under the lock; the sweep may have expired it meanwhile.
	res, err = s.Reservations.FindByID(reservationID)
	if err != nil {
		return domain.Reservation{}, err
	}

	switch res.Status {
	case domain.ReservationWaiting:
		if _, err := s.Reservations.TransitionStatus(res.ID, domain.ReservationWaiting, domain.ReservationCancelled); err != nil {
			return domain.Reservation{}, err
		}
	case domain.ReservationReady:
		if _, err := s.Reservations.TransitionStatus(res.ID, domain.ReservationReady, domain.ReservationCancelled); err != nil {
			return domain.Reservation{}, err
		}
		if err := s.handOffHeldCopy(ctx, res.TitleID); err != nil {
			return domain.Reservation{}, err
		}
	default:
		return domain.Reservation{}, ErrInvalidState
	}

	res.Status = domain.ReservationCancelled
	return res, nil
}

// QueuePosition is the 1-based rank among the title's WAITING reservations,
// or 1 for a READY_FOR_PICKUP hold. Always computed from an ordered query.
func (s *WaitlistService) QueuePosition(ctx context.Context, reservationID string) (int, error) {
	res, err := s.Reservations.FindByID(reservationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	switch res.Status {
	case domain.ReservationReady:
		return 1, nil
	case domain.ReservationWaiting:
		queue, err := s.Reservations.WaitingQueue(res.TitleID)
		if err != nil {
			return 0, err
		}
		for i, q := range queue {
			if q.ID == res.ID {
				return i + 1, nil
			}
		}
		return 0, ErrInvalidState
	default:
		return 0, ErrInvalidState
	}
}

// ListPatronReservations returns the patron's reservations with computed
// queue positions (0 for settled ones).
func (s *WaitlistService) ListPatronReservations(ctx context.Context, patronID string) ([]domain.ReservationView, error) {
	list, err := s.Reservations.FindByPatron(patronID)
	if err != nil {
		return nil, err
	}

	queues := map[string][]domain.Reservation{}
	out := make([]domain.ReservationView, 0, len(list))
	for _, res := range list {
		view := domain.ReservationView{Reservation: res}
		switch res.Status {
		case domain.ReservationReady:
			view.QueuePosition = 1
		case domain.ReservationWaiting:
			queue, ok := queues[res.TitleID]
			if !ok {
				queue, err = s.Reservations.WaitingQueue(res.TitleID)
				if err != nil {
					return nil, err
				}
				queues[res.TitleID] = queue
			}
			for i, q := range queue {
				if q.ID == res.ID {
					view.QueuePosition = i + 1
					break
				}
			}
		}
		out = append(out, view)
	}
	return out, nil
}

// ExpireReady sweeps promoted reservations whose pickup deadline passed at
// or before asOf, expiring each and cascading the held copy to the next
// patron in line (or back to availability). Returns how many expired.
func (s *WaitlistService) ExpireReady(ctx context.Context, asOf time.Time) (int, error) {
	lapsed, err := s.Reservations.FindReadyExpired(asOf)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, res := range lapsed {
		if err := s.expireOne(ctx, res); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

func (s *WaitlistService) expireOne(ctx context.Context, res domain.Reservation) error {
	unlock := s.Locks.Lock(res.TitleID)
	defer unlock()

	// The patron may have fulfilled or cancelled between the scan and now;
	// the guarded transition makes that a no-op.
	ok, err := s.Reservations.TransitionStatus(res.ID, domain.ReservationReady, domain.ReservationExpired)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	s.recordAlert(domain.AlertHoldExpired, res.TitleID,
		fmt.Sprintf("Hold expired: title %s was not picked up by patron %s.", res.TitleID, res.PatronID))

	return s.handOffHeldCopy(ctx, res.TitleID)
}

// handOffHeldCopy reroutes a copy that was held for a promoted reservation:
// the next waiting patron gets it, otherwise it returns to availability.
// Caller must hold the title lock.
func (s *WaitlistService) handOffHeldCopy(ctx context.Context, titleID string) error {
	promoted, err := s.promoteNext(ctx, titleID)
	if err != nil {
		return err
	}
	if promoted {
		return nil
	}
	if err := s.Catalog.AdjustAvailable(titleID, +1); err != nil {
		if errors.Is(err, repos.ErrStockBounds) {
			return ErrInvariantViolation
		}
		return err
	}
	return nil
}

// promoteNext advances the oldest WAITING reservation for the title to
// READY_FOR_PICKUP and reports whether anyone was waiting. The promoted
// copy stays off the shelf: available_copies is not touched. Caller must
// hold the title lock.
func (s *WaitlistService) promoteNext(ctx context.Context, titleID string) (bool, error) {
	next, err := s.Reservations.FindOldestWaiting(titleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	expiresAt := s.now().Add(s.PickupGrace)
	ok, err := s.Reservations.Promote(next.ID, expiresAt)
	if err != nil {
		return false, err
	}
	if !ok {
		// Queue changed under us despite the lock; treat as empty.
		return false, nil
	}

	s.recordAlert(domain.AlertReservationReady, next.TitleID,
		fmt.Sprintf("Reservation ready: title %s is held for patron %s until %s.",
			next.TitleID, next.PatronID, expiresAt.UTC().Format(time.RFC3339)))

	s.notifyReady(ctx, next, expiresAt)
	return true, nil
}

func (s *WaitlistService) notifyReady(ctx context.Context, res domain.Reservation, expiresAt time.Time) {
	patron, err := s.Patrons.Get(res.PatronID)
	if err != nil {
		applog.BgError("waitlist.notify.lookup", err, map[string]any{"patron_id": res.PatronID})
		return
	}
	msg := fmt.Sprintf(
		"Dear %s, the book you reserved (title %s) is ready for pickup. Please collect it before %s or your reservation passes to the next patron.",
		patron.Name, res.TitleID, expiresAt.UTC().Format(time.RFC3339))
	if err := s.Notifier.Notify(ctx, patron.ID, notify.ChannelEmail, msg); err != nil {
		applog.BgError("waitlist.notify.deliver", err, map[string]any{"patron_id": patron.ID})
	}
	if patron.Phone != "" {
		sms := fmt.Sprintf("READY: reserved title %s is ready for pickup.", res.TitleID)
		if err := s.Notifier.Notify(ctx, patron.ID, notify.ChannelSMS, sms); err != nil {
			applog.BgError("waitlist.notify.deliver", err, map[string]any{"patron_id": patron.ID})
		}
	}
}

// recordAlert writes the internal audit record; it must succeed logically
// even when external delivery does not, so failures here are only logged.
func (s *WaitlistService) recordAlert(t domain.AlertType, relatedID, message string) {
	alert := domain.Alert{
		ID:        uuid.NewString(),
		Type:      t,
		Message:   message,
		RelatedID: relatedID,
		CreatedAt: s.now(),
	}
	if err := s.Alerts.Insert(alert); err != nil {
		applog.BgError("waitlist.alert.write", err, map[string]any{"type": string(t), "related_id": relatedID})
	}
}

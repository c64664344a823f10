package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tejas56934/LibraryManagementSystem/internal/domain"
	"github.com/Tejas56934/LibraryManagementSystem/internal/services"
)

func TestPlaceReservation_RejectsAvailableTitle(t *testing.T) {
	f := newFixture(t)

	_, err := f.waitlist.PlaceReservation(context.Background(), "T-MULTI", "P-A")
	require.ErrorIs(t, err, services.ErrAlreadyAvailable)
}

func TestPlaceReservation_RejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.circ.IssueCopy(ctx, "T-SINGLE", "P-A", f.due())
	require.NoError(t, err)

	_, err = f.waitlist.PlaceReservation(ctx, "T-SINGLE", "P-B")
	require.NoError(t, err)

	_, err = f.waitlist.PlaceReservation(ctx, "T-SINGLE", "P-B")
	require.ErrorIs(t, err, services.ErrDuplicateReservation)
}

func TestPlaceReservation_UnknownIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.waitlist.PlaceReservation(ctx, "T-NOPE", "P-A")
	require.ErrorIs(t, err, services.ErrNotFound)

	_, err = f.circ.IssueCopy(ctx, "T-SINGLE", "P-A", f.due())
	require.NoError(t, err)
	_, err = f.waitlist.PlaceReservation(ctx, "T-SINGLE", "P-NOPE")
	require.ErrorIs(t, err, services.ErrNotFound)
}

func TestQueuePosition_RecomputedAfterCancellation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.circ.IssueCopy(ctx, "T-SINGLE", "P-A", f.due())
	require.NoError(t, err)

	var ids []string
	for _, patron := range []string{"P-A", "P-B", "P-C"} {
		f.clock.advance(time.Minute)
		res, err := f.waitlist.PlaceReservation(ctx, "T-SINGLE", patron)
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}

	pos, err := f.waitlist.QueuePosition(ctx, ids[2])
	require.NoError(t, err)
	require.Equal(t, 3, pos)

	// Cancelling the head of the queue shifts everyone up on the next read.
	_, err = f.waitlist.CancelReservation(ctx, ids[0])
	require.NoError(t, err)

	pos, err = f.waitlist.QueuePosition(ctx, ids[1])
	require.NoError(t, err)
	require.Equal(t, 1, pos)
	pos, err = f.waitlist.QueuePosition(ctx, ids[2])
	require.NoError(t, err)
	require.Equal(t, 2, pos)
}

func TestQueuePosition_ReadyIsOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	loan, err := f.circ.IssueCopy(ctx, "T-SINGLE", "P-A", f.due())
	require.NoError(t, err)
	res, err := f.waitlist.PlaceReservation(ctx, "T-SINGLE", "P-B")
	require.NoError(t, err)
	_, err = f.circ.ReturnCopy(ctx, loan.ID)
	require.NoError(t, err)

	pos, err := f.waitlist.QueuePosition(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, 1, pos)
}

func TestCancelReservation_StatesAndNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.waitlist.CancelReservation(ctx, "no-such-reservation")
	require.ErrorIs(t, err, services.ErrNotFound)

	loan, err := f.circ.IssueCopy(ctx, "T-SINGLE", "P-A", f.due())
	require.NoError(t, err)
	res, err := f.waitlist.PlaceReservation(ctx, "T-SINGLE", "P-B")
	require.NoError(t, err)
	_, err = f.circ.ReturnCopy(ctx, loan.ID)
	require.NoError(t, err)
	_, err = f.circ.IssueCopy(ctx, "T-SINGLE", "P-B", f.due())
	require.NoError(t, err)

	// FULFILLED is settled; cancelling it is an invalid-state rejection.
	_, err = f.waitlist.CancelReservation(ctx, res.ID)
	require.ErrorIs(t, err, services.ErrInvalidState)
}

func TestCancelReady_ReleasesCopyWhenQueueEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	loan, err := f.circ.IssueCopy(ctx, "T-SINGLE", "P-A", f.due())
	require.NoError(t, err)
	res, err := f.waitlist.PlaceReservation(ctx, "T-SINGLE", "P-B")
	require.NoError(t, err)
	_, err = f.circ.ReturnCopy(ctx, loan.ID)
	require.NoError(t, err)

	_, err = f.waitlist.CancelReservation(ctx, res.ID)
	require.NoError(t, err)

	title, err := f.catalog.Get("T-SINGLE")
	require.NoError(t, err)
	require.Equal(t, 1, title.AvailableCopies)
	f.stockInvariantHolds(t, "T-SINGLE")
}

func TestExpireReady_CascadesToNextPatron(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	loan, err := f.circ.IssueCopy(ctx, "T-SINGLE", "P-A", f.due())
	require.NoError(t, err)

	resB, err := f.waitlist.PlaceReservation(ctx, "T-SINGLE", "P-B")
	require.NoError(t, err)
	f.clock.advance(time.Minute)
	resC, err := f.waitlist.PlaceReservation(ctx, "T-SINGLE", "P-C")
	require.NoError(t, err)

	_, err = f.circ.ReturnCopy(ctx, loan.ID)
	require.NoError(t, err)

	// B never picks up; past the grace window the sweep hands the copy to C.
	f.clock.advance(48*time.Hour + time.Minute)
	expired, err := f.waitlist.ExpireReady(ctx, f.clock.t)
	require.NoError(t, err)
	require.Equal(t, 1, expired)

	gotB, err := f.resRepo.FindByID(resB.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReservationExpired, gotB.Status)

	gotC, err := f.resRepo.FindByID(resC.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReservationReady, gotC.Status)

	title, err := f.catalog.Get("T-SINGLE")
	require.NoError(t, err)
	require.Equal(t, 0, title.AvailableCopies)
	f.stockInvariantHolds(t, "T-SINGLE")

	n, err := f.alerts.CountByTypeAndRelated(domain.AlertHoldExpired, "T-SINGLE")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestExpireReady_ReleasesCopyWhenQueueEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	loan, err := f.circ.IssueCopy(ctx, "T-SINGLE", "P-A", f.due())
	require.NoError(t, err)
	res, err := f.waitlist.PlaceReservation(ctx, "T-SINGLE", "P-B")
	require.NoError(t, err)
	_, err = f.circ.ReturnCopy(ctx, loan.ID)
	require.NoError(t, err)

	f.clock.advance(49 * time.Hour)
	expired, err := f.waitlist.ExpireReady(ctx, f.clock.t)
	require.NoError(t, err)
	require.Equal(t, 1, expired)

	got, err := f.resRepo.FindByID(res.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReservationExpired, got.Status)

	title, err := f.catalog.Get("T-SINGLE")
	require.NoError(t, err)
	require.Equal(t, 1, title.AvailableCopies)
	f.stockInvariantHolds(t, "T-SINGLE")
}

func TestExpireReady_NoLapsedHoldsIsNoOp(t *testing.T) {
	f := newFixture(t)

	expired, err := f.waitlist.ExpireReady(context.Background(), f.clock.t)
	require.NoError(t, err)
	require.Zero(t, expired)
}

func TestListPatronReservations_ComputesPositions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.circ.IssueCopy(ctx, "T-SINGLE", "P-A", f.due())
	require.NoError(t, err)

	_, err = f.waitlist.PlaceReservation(ctx, "T-SINGLE", "P-B")
	require.NoError(t, err)
	f.clock.advance(time.Minute)
	_, err = f.waitlist.PlaceReservation(ctx, "T-SINGLE", "P-C")
	require.NoError(t, err)

	views, err := f.waitlist.ListPatronReservations(ctx, "P-C")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, domain.ReservationWaiting, views[0].Status)
	require.Equal(t, 2, views[0].QueuePosition)
}

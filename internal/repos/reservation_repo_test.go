package repos_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tejas56934/LibraryManagementSystem/internal/domain"
	"github.com/Tejas56934/LibraryManagementSystem/internal/repos"
)

func seedWaitlistFixtures(t *testing.T, catalog *repos.CatalogRepo, patrons *repos.PatronRepo) {
	t.Helper()
	require.NoError(t, catalog.Create(domain.Title{ID: "T-Q", Name: "Queued", TotalCopies: 1, AvailableCopies: 0}))
	for _, p := range []domain.Patron{
		{ID: "P-1", Name: "One"}, {ID: "P-2", Name: "Two"}, {ID: "P-3", Name: "Three"},
	} {
		require.NoError(t, patrons.Create(p))
	}
}

func TestReservationRepo_FIFOOrderWithTieBreak(t *testing.T) {
	db := memdb(t)
	resRepo := repos.NewReservationRepo(db)
	seedWaitlistFixtures(t, repos.NewCatalogRepo(db), repos.NewPatronRepo(db))

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	// P-2 asked first; P-1 and P-3 asked at the same instant, so their ids
	// (insertion order) break the tie.
	require.NoError(t, resRepo.Insert(domain.Reservation{
		ID: "R-a", TitleID: "T-Q", PatronID: "P-1", Status: domain.ReservationWaiting, RequestedAt: base.Add(time.Minute)}))
	require.NoError(t, resRepo.Insert(domain.Reservation{
		ID: "R-b", TitleID: "T-Q", PatronID: "P-2", Status: domain.ReservationWaiting, RequestedAt: base}))
	require.NoError(t, resRepo.Insert(domain.Reservation{
		ID: "R-c", TitleID: "T-Q", PatronID: "P-3", Status: domain.ReservationWaiting, RequestedAt: base.Add(time.Minute)}))

	oldest, err := resRepo.FindOldestWaiting("T-Q")
	require.NoError(t, err)
	require.Equal(t, "R-b", oldest.ID)

	queue, err := resRepo.WaitingQueue("T-Q")
	require.NoError(t, err)
	require.Len(t, queue, 3)
	require.Equal(t, []string{"R-b", "R-a", "R-c"}, []string{queue[0].ID, queue[1].ID, queue[2].ID})
}

func TestReservationRepo_OneWaitingPerPatronAndTitle(t *testing.T) {
	db := memdb(t)
	resRepo := repos.NewReservationRepo(db)
	seedWaitlistFixtures(t, repos.NewCatalogRepo(db), repos.NewPatronRepo(db))

	now := time.Now()
	require.NoError(t, resRepo.Insert(domain.Reservation{
		ID: "R-1", TitleID: "T-Q", PatronID: "P-1", Status: domain.ReservationWaiting, RequestedAt: now}))

	// The partial unique index backs the duplicate-reservation invariant.
	err := resRepo.Insert(domain.Reservation{
		ID: "R-2", TitleID: "T-Q", PatronID: "P-1", Status: domain.ReservationWaiting, RequestedAt: now})
	require.Error(t, err)

	// A settled reservation does not block a new one.
	ok, err := resRepo.TransitionStatus("R-1", domain.ReservationWaiting, domain.ReservationCancelled)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, resRepo.Insert(domain.Reservation{
		ID: "R-3", TitleID: "T-Q", PatronID: "P-1", Status: domain.ReservationWaiting, RequestedAt: now}))
}

func TestReservationRepo_PromoteAndExpiryScan(t *testing.T) {
	db := memdb(t)
	resRepo := repos.NewReservationRepo(db)
	seedWaitlistFixtures(t, repos.NewCatalogRepo(db), repos.NewPatronRepo(db))

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, resRepo.Insert(domain.Reservation{
		ID: "R-1", TitleID: "T-Q", PatronID: "P-1", Status: domain.ReservationWaiting, RequestedAt: base}))

	ok, err := resRepo.Promote("R-1", base.Add(48*time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	// Promote is guarded: a second promotion attempt is a no-op.
	ok, err = resRepo.Promote("R-1", base.Add(96*time.Hour))
	require.NoError(t, err)
	require.False(t, ok)

	got, err := resRepo.FindByID("R-1")
	require.NoError(t, err)
	require.Equal(t, domain.ReservationReady, got.Status)
	require.NotNil(t, got.ExpiresAt)
	require.Equal(t, base.Add(48*time.Hour), got.ExpiresAt.UTC())

	// Not yet lapsed.
	lapsed, err := resRepo.FindReadyExpired(base.Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, lapsed)

	lapsed, err = resRepo.FindReadyExpired(base.Add(49 * time.Hour))
	require.NoError(t, err)
	require.Len(t, lapsed, 1)
	require.Equal(t, "R-1", lapsed[0].ID)

	_, err = resRepo.FindOldestWaiting("T-Q")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

package repos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Tejas56934/LibraryManagementSystem/internal/domain"
)

type ReservationRepo struct{ db *sqlx.DB }

func NewReservationRepo(db *sqlx.DB) *ReservationRepo { return &ReservationRepo{db: db} }

type reservationRow struct {
	ID          string  `db:"id"`
	TitleID     string  `db:"title_id"`
	PatronID    string  `db:"patron_id"`
	Status      string  `db:"status"`
	RequestedAt string  `db:"requested_at"`
	ExpiresAt   *string `db:"expires_at"`
}

func (r reservationRow) toDomain() domain.Reservation {
	return domain.Reservation{
		ID:          r.ID,
		TitleID:     r.TitleID,
		PatronID:    r.PatronID,
		Status:      domain.ReservationStatus(r.Status),
		RequestedAt: parseTime(r.RequestedAt),
		ExpiresAt:   parseTimePtr(r.ExpiresAt),
	}
}

const reservationCols = `id, title_id, patron_id, status, requested_at, expires_at`

func (r *ReservationRepo) Insert(res domain.Reservation) error {
	_, err := r.db.Exec(`
		INSERT INTO reservations(id, title_id, patron_id, status, requested_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, res.ID, res.TitleID, res.PatronID, string(res.Status), fmtTime(res.RequestedAt),
		fmtTimePtr(res.ExpiresAt))
	return err
}

func (r *ReservationRepo) FindByID(id string) (domain.Reservation, error) {
	var row reservationRow
	if err := r.db.Get(&row, `SELECT `+reservationCols+` FROM reservations WHERE id = ?`, id); err != nil {
		return domain.Reservation{}, err
	}
	return row.toDomain(), nil
}

// FindOldestWaiting returns the head of a title's FIFO queue. Ties on
// requested_at break by id, i.e. insertion order.
func (r *ReservationRepo) FindOldestWaiting(titleID string) (domain.Reservation, error) {
	var row reservationRow
	err := r.db.Get(&row, `
		SELECT `+reservationCols+` FROM reservations
		WHERE title_id = ? AND status = 'WAITING'
		ORDER BY requested_at, id
		LIMIT 1
	`, titleID)
	if err != nil {
		return domain.Reservation{}, err
	}
	return row.toDomain(), nil
}

// WaitingQueue returns all WAITING reservations for a title in promotion
// order; queue positions are derived from the slice index.
func (r *ReservationRepo) WaitingQueue(titleID string) ([]domain.Reservation, error) {
	var rows []reservationRow
	err := r.db.Select(&rows, `
		SELECT `+reservationCols+` FROM reservations
		WHERE title_id = ? AND status = 'WAITING'
		ORDER BY requested_at, id
	`, titleID)
	if err != nil {
		return nil, err
	}
	return reservationsToDomain(rows), nil
}

func (r *ReservationRepo) FindByPatron(patronID string) ([]domain.Reservation, error) {
	var rows []reservationRow
	err := r.db.Select(&rows, `
		SELECT `+reservationCols+` FROM reservations
		WHERE patron_id = ? ORDER BY requested_at DESC, id
	`, patronID)
	if err != nil {
		return nil, err
	}
	return reservationsToDomain(rows), nil
}

// FindByPatronTitleStatus returns the patron's reservation for a title in
// the given status, or sql.ErrNoRows.
func (r *ReservationRepo) FindByPatronTitleStatus(patronID, titleID string, status domain.ReservationStatus) (domain.Reservation, error) {
	var row reservationRow
	err := r.db.Get(&row, `
		SELECT `+reservationCols+` FROM reservations
		WHERE patron_id = ? AND title_id = ? AND status = ?
		ORDER BY requested_at, id
		LIMIT 1
	`, patronID, titleID, string(status))
	if err != nil {
		return domain.Reservation{}, err
	}
	return row.toDomain(), nil
}

// FindReadyExpired lists READY_FOR_PICKUP reservations whose hold lapsed
// at or before asOf.
func (r *ReservationRepo) FindReadyExpired(asOf time.Time) ([]domain.Reservation, error) {
	var rows []reservationRow
	err := r.db.Select(&rows, `
		SELECT `+reservationCols+` FROM reservations
		WHERE status = 'READY_FOR_PICKUP' AND expires_at IS NOT NULL AND expires_at <= ?
		ORDER BY expires_at, id
	`, fmtTime(asOf))
	if err != nil {
		return nil, err
	}
	return reservationsToDomain(rows), nil
}

// Promote moves a WAITING reservation to READY_FOR_PICKUP and stamps its
// pickup deadline. Returns whether this call performed the transition.
func (r *ReservationRepo) Promote(id string, expiresAt time.Time) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE reservations SET status = 'READY_FOR_PICKUP', expires_at = ?
		WHERE id = ? AND status = 'WAITING'
	`, fmtTime(expiresAt), id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// TransitionStatus flips a reservation's status only from the expected one,
// leaving expires_at untouched. Returns whether the transition happened.
func (r *ReservationRepo) TransitionStatus(id string, from, to domain.ReservationStatus) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE reservations SET status = ?
		WHERE id = ? AND status = ?
	`, string(to), id, string(from))
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// CountReadyByTitle counts copies currently held for promoted reservations.
func (r *ReservationRepo) CountReadyByTitle(titleID string) (int, error) {
	var n int
	err := r.db.Get(&n, `
		SELECT COUNT(*) FROM reservations WHERE title_id = ? AND status = 'READY_FOR_PICKUP'
	`, titleID)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	return n, nil
}

func reservationsToDomain(rows []reservationRow) []domain.Reservation {
	out := make([]domain.Reservation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}

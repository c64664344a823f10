package repos

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Tejas56934/LibraryManagementSystem/internal/domain"
)

type LoanRepo struct{ db *sqlx.DB }

func NewLoanRepo(db *sqlx.DB) *LoanRepo { return &LoanRepo{db: db} }

type loanRow struct {
	ID           string  `db:"id"`
	TitleID      string  `db:"title_id"`
	PatronID     string  `db:"patron_id"`
	Status       string  `db:"status"`
	IssuedAt     string  `db:"issued_at"`
	DueAt        string  `db:"due_at"`
	ReturnedAt   *string `db:"returned_at"`
	ReminderSent bool    `db:"reminder_sent"`
}

func (r loanRow) toDomain() domain.Loan {
	return domain.Loan{
		ID:           r.ID,
		TitleID:      r.TitleID,
		PatronID:     r.PatronID,
		Status:       domain.LoanStatus(r.Status),
		IssuedAt:     parseTime(r.IssuedAt),
		DueAt:        parseTime(r.DueAt),
		ReturnedAt:   parseTimePtr(r.ReturnedAt),
		ReminderSent: r.ReminderSent,
	}
}

const loanCols = `id, title_id, patron_id, status, issued_at, due_at, returned_at, reminder_sent`

func (r *LoanRepo) Insert(l domain.Loan) error {
	_, err := r.db.Exec(`
		INSERT INTO loans(id, title_id, patron_id, status, issued_at, due_at, returned_at, reminder_sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.TitleID, l.PatronID, string(l.Status), fmtTime(l.IssuedAt), fmtTime(l.DueAt),
		fmtTimePtr(l.ReturnedAt), l.ReminderSent)
	return err
}

func (r *LoanRepo) FindByID(id string) (domain.Loan, error) {
	var row loanRow
	if err := r.db.Get(&row, `SELECT `+loanCols+` FROM loans WHERE id = ?`, id); err != nil {
		return domain.Loan{}, err
	}
	return row.toDomain(), nil
}

func (r *LoanRepo) FindByStatusIn(statuses ...domain.LoanStatus) ([]domain.Loan, error) {
	query, args, err := sqlx.In(`
		SELECT `+loanCols+` FROM loans WHERE status IN (?) ORDER BY due_at, id
	`, statuses)
	if err != nil {
		return nil, err
	}
	var rows []loanRow
	if err := r.db.Select(&rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return loansToDomain(rows), nil
}

func (r *LoanRepo) FindByTitle(titleID string) ([]domain.Loan, error) {
	var rows []loanRow
	err := r.db.Select(&rows, `
		SELECT `+loanCols+` FROM loans WHERE title_id = ? ORDER BY issued_at, id
	`, titleID)
	if err != nil {
		return nil, err
	}
	return loansToDomain(rows), nil
}

func (r *LoanRepo) FindByPatron(patronID string) ([]domain.Loan, error) {
	var rows []loanRow
	err := r.db.Select(&rows, `
		SELECT `+loanCols+` FROM loans WHERE patron_id = ? ORDER BY issued_at DESC, id
	`, patronID)
	if err != nil {
		return nil, err
	}
	return loansToDomain(rows), nil
}

// MarkReturned closes a loan if it is still in one of the given statuses.
// The guard makes a concurrent sweep or double return a visible no-op.
func (r *LoanRepo) MarkReturned(id string, returnedAt time.Time, from ...domain.LoanStatus) (bool, error) {
	query, args, err := sqlx.In(`
		UPDATE loans SET status = 'RETURNED', returned_at = ?
		WHERE id = ? AND status IN (?)
	`, fmtTime(returnedAt), id, from)
	if err != nil {
		return false, err
	}
	res, err := r.db.Exec(r.db.Rebind(query), args...)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// TransitionStatus flips a loan's status only if it is currently in one of
// the expected statuses. Returns whether this call performed the transition,
// which is the at-most-once guard for overdue alerts.
func (r *LoanRepo) TransitionStatus(id string, to domain.LoanStatus, from ...domain.LoanStatus) (bool, error) {
	query, args, err := sqlx.In(`
		UPDATE loans SET status = ? WHERE id = ? AND status IN (?)
	`, string(to), id, from)
	if err != nil {
		return false, err
	}
	res, err := r.db.Exec(r.db.Rebind(query), args...)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// MarkReminderSent persists the reminder flag. The reminder_sent = 0 guard
// keeps delivery at-most-once even if two sweeps ever observed the same loan.
func (r *LoanRepo) MarkReminderSent(id string) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE loans SET reminder_sent = 1
		WHERE id = ? AND reminder_sent = 0 AND status IN ('ISSUED','IN_OFFICE')
	`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func loansToDomain(rows []loanRow) []domain.Loan {
	out := make([]domain.Loan, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}

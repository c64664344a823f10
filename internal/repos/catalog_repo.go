package repos

import (
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/Tejas56934/LibraryManagementSystem/internal/domain"
)

// ErrStockBounds reports that an adjustment would push available_copies
// outside [0, total_copies]. The guarded UPDATE simply matches no row, so
// the caller can distinguish "would violate" from "title missing".
var ErrStockBounds = errors.New("stock adjustment out of bounds")

type CatalogRepo struct{ db *sqlx.DB }

func NewCatalogRepo(db *sqlx.DB) *CatalogRepo { return &CatalogRepo{db: db} }

type titleRow struct {
	ID              string `db:"id"`
	Name            string `db:"name"`
	Author          string `db:"author"`
	ISBN            string `db:"isbn"`
	TotalCopies     int    `db:"total_copies"`
	AvailableCopies int    `db:"available_copies"`
}

func (r titleRow) toDomain() domain.Title {
	return domain.Title{
		ID:              r.ID,
		Name:            r.Name,
		Author:          r.Author,
		ISBN:            r.ISBN,
		TotalCopies:     r.TotalCopies,
		AvailableCopies: r.AvailableCopies,
	}
}

func (r *CatalogRepo) Get(id string) (domain.Title, error) {
	var row titleRow
	err := r.db.Get(&row, `
		SELECT id, name, COALESCE(author,'') AS author, COALESCE(isbn,'') AS isbn,
		       total_copies, available_copies
		FROM titles WHERE id = ?
	`, id)
	if err != nil {
		return domain.Title{}, err
	}
	return row.toDomain(), nil
}

func (r *CatalogRepo) List() ([]domain.Title, error) {
	var rows []titleRow
	err := r.db.Select(&rows, `
		SELECT id, name, COALESCE(author,'') AS author, COALESCE(isbn,'') AS isbn,
		       total_copies, available_copies
		FROM titles ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Title, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *CatalogRepo) Create(t domain.Title) error {
	_, err := r.db.Exec(`
		INSERT INTO titles(id, name, author, isbn, total_copies, available_copies)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.Name, t.Author, t.ISBN, t.TotalCopies, t.AvailableCopies)
	return err
}

// AdjustAvailable moves available_copies by delta if the result stays within
// [0, total_copies]. Returns ErrStockBounds when the guard matches no row
// but the title exists, sql.ErrNoRows when the title is unknown.
func (r *CatalogRepo) AdjustAvailable(id string, delta int) error {
	res, err := r.db.Exec(`
		UPDATE titles
		SET available_copies = available_copies + ?
		WHERE id = ?
		  AND available_copies + ? >= 0
		  AND available_copies + ? <= total_copies
	`, delta, id, delta, delta)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 1 {
		return nil
	}
	if _, err := r.Get(id); err != nil {
		return err
	}
	return ErrStockBounds
}

// Restock is the administrative path for total_copies: it grows (or shrinks)
// the owned pool and moves the same number of copies in or out of
// availability, atomically and bounds-checked.
func (r *CatalogRepo) Restock(id string, delta int) error {
	res, err := r.db.Exec(`
		UPDATE titles
		SET total_copies = total_copies + ?,
		    available_copies = available_copies + ?
		WHERE id = ?
		  AND total_copies + ? >= 0
		  AND available_copies + ? >= 0
		  AND available_copies + ? <= total_copies + ?
	`, delta, delta, id, delta, delta, delta, delta)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 1 {
		return nil
	}
	if _, err := r.Get(id); err != nil {
		return err
	}
	return ErrStockBounds
}

package repos

import (
	"github.com/jmoiron/sqlx"

	"github.com/Tejas56934/LibraryManagementSystem/internal/domain"
)

type PatronRepo struct{ db *sqlx.DB }

func NewPatronRepo(db *sqlx.DB) *PatronRepo { return &PatronRepo{db: db} }

type patronRow struct {
	ID    string `db:"id"`
	Name  string `db:"name"`
	Email string `db:"email"`
	Phone string `db:"phone"`
}

func (r *PatronRepo) Get(id string) (domain.Patron, error) {
	var row patronRow
	err := r.db.Get(&row, `
		SELECT id, name, COALESCE(email,'') AS email, COALESCE(phone,'') AS phone
		FROM patrons WHERE id = ?
	`, id)
	if err != nil {
		return domain.Patron{}, err
	}
	return domain.Patron(row), nil
}

func (r *PatronRepo) List() ([]domain.Patron, error) {
	var rows []patronRow
	err := r.db.Select(&rows, `
		SELECT id, name, COALESCE(email,'') AS email, COALESCE(phone,'') AS phone
		FROM patrons ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Patron, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Patron(row))
	}
	return out, nil
}

func (r *PatronRepo) Create(p domain.Patron) error {
	_, err := r.db.Exec(`
		INSERT INTO patrons(id, name, email, phone) VALUES (?, ?, ?, ?)
	`, p.ID, p.Name, p.Email, p.Phone)
	return err
}

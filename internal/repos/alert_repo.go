package repos

import (
	"github.com/jmoiron/sqlx"

	"github.com/Tejas56934/LibraryManagementSystem/internal/domain"
)

type AlertRepo struct{ db *sqlx.DB }

func NewAlertRepo(db *sqlx.DB) *AlertRepo { return &AlertRepo{db: db} }

type alertRow struct {
	ID        string `db:"id"`
	Type      string `db:"type"`
	Message   string `db:"message"`
	RelatedID string `db:"related_id"`
	Read      bool   `db:"read"`
	CreatedAt string `db:"created_at"`
}

func (r alertRow) toDomain() domain.Alert {
	return domain.Alert{
		ID:        r.ID,
		Type:      domain.AlertType(r.Type),
		Message:   r.Message,
		RelatedID: r.RelatedID,
		Read:      r.Read,
		CreatedAt: parseTime(r.CreatedAt),
	}
}

func (r *AlertRepo) Insert(a domain.Alert) error {
	_, err := r.db.Exec(`
		INSERT INTO alerts(id, type, message, related_id, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, string(a.Type), a.Message, a.RelatedID, a.Read, fmtTime(a.CreatedAt))
	return err
}

func (r *AlertRepo) ListRecent(limit int) ([]domain.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []alertRow
	err := r.db.Select(&rows, `
		SELECT id, type, message, COALESCE(related_id,'') AS related_id, read, created_at
		FROM alerts ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Alert, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *AlertRepo) CountByTypeAndRelated(t domain.AlertType, relatedID string) (int, error) {
	var n int
	err := r.db.Get(&n, `
		SELECT COUNT(*) FROM alerts WHERE type = ? AND related_id = ?
	`, string(t), relatedID)
	return n, err
}

func (r *AlertRepo) MarkRead(id string) error {
	_, err := r.db.Exec(`UPDATE alerts SET read = 1 WHERE id = ?`, id)
	return err
}

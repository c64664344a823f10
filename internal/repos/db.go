package repos

import (
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// timeLayout is a fixed-width UTC layout so that lexicographic ordering of
// stored timestamps matches chronological ordering. The waitlist FIFO
// relies on ORDER BY requested_at working at the SQL level.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func fmtTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func fmtTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := fmtTime(*t)
	return &s
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t := parseTime(*s)
	return &t
}

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed a small catalog if the DB is empty (idempotent; safe on every start)
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Titles: one row per catalogued book entry, copy counters inline
CREATE TABLE IF NOT EXISTS titles(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  author TEXT,
  isbn TEXT,
  total_copies INTEGER NOT NULL CHECK (total_copies >= 0),
  available_copies INTEGER NOT NULL CHECK (available_copies >= 0 AND available_copies <= total_copies),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_titles_isbn ON titles(isbn);

-- Patrons: directory only, no credentials
CREATE TABLE IF NOT EXISTS patrons(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT,
  phone TEXT,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

-- Loans: one row per physical checkout event
CREATE TABLE IF NOT EXISTS loans(
  id TEXT PRIMARY KEY,
  title_id TEXT NOT NULL REFERENCES titles(id),
  patron_id TEXT NOT NULL REFERENCES patrons(id),
  status TEXT NOT NULL CHECK (status IN ('ISSUED','OVERDUE','IN_OFFICE','RETURNED')),
  issued_at TEXT NOT NULL,
  due_at TEXT NOT NULL,
  returned_at TEXT,
  reminder_sent INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status);
CREATE INDEX IF NOT EXISTS idx_loans_title  ON loans(title_id);
CREATE INDEX IF NOT EXISTS idx_loans_patron ON loans(patron_id);

-- Reservations: waitlist entries, FIFO by requested_at then id
CREATE TABLE IF NOT EXISTS reservations(
  id TEXT PRIMARY KEY,
  title_id TEXT NOT NULL REFERENCES titles(id),
  patron_id TEXT NOT NULL REFERENCES patrons(id),
  status TEXT NOT NULL CHECK (status IN ('WAITING','READY_FOR_PICKUP','FULFILLED','EXPIRED','CANCELLED')),
  requested_at TEXT NOT NULL,
  expires_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_res_title_status ON reservations(title_id, status, requested_at);
CREATE INDEX IF NOT EXISTS idx_res_patron ON reservations(patron_id);
-- at most one WAITING reservation per (title, patron)
CREATE UNIQUE INDEX IF NOT EXISTS idx_res_one_waiting ON reservations(title_id, patron_id) WHERE status = 'WAITING';

-- Librarian alerts: authoritative audit trail for notifications
CREATE TABLE IF NOT EXISTS alerts(
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  message TEXT NOT NULL,
  related_id TEXT,
  read INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM titles`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo titles/patrons")

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO titles(id,name,author,isbn,total_copies,available_copies) VALUES
	  ('BK-1001','The Go Programming Language','Donovan & Kernighan','978-0134190440',3,3),
	  ('BK-1002','Designing Data-Intensive Applications','Martin Kleppmann','978-1449373320',2,2),
	  ('BK-1003','Structure and Interpretation of Computer Programs','Abelson & Sussman','978-0262510875',1,1)`)

	tx.MustExec(`INSERT INTO patrons(id,name,email,phone) VALUES
	  ('P-0001','Asha Rao','asha@campus.test','+1-555-0101'),
	  ('P-0002','Ben Ito','ben@campus.test','+1-555-0102'),
	  ('P-0003','Carla Mendes','carla@campus.test','+1-555-0103')`)

	return tx.Commit()
}

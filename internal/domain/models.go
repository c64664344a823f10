package domain

import "time"

type LoanStatus string

const (
	LoanIssued   LoanStatus = "ISSUED"
	LoanOverdue  LoanStatus = "OVERDUE"
	LoanInOffice LoanStatus = "IN_OFFICE"
	LoanReturned LoanStatus = "RETURNED"
)

// ActiveLoanStatuses are the statuses under which a loan still holds a
// physical copy. The due-date sweep scans only ISSUED and IN_OFFICE; an
// OVERDUE loan has already been flagged and keeps its copy out.
var ActiveLoanStatuses = []LoanStatus{LoanIssued, LoanOverdue, LoanInOffice}

type ReservationStatus string

const (
	ReservationWaiting   ReservationStatus = "WAITING"
	ReservationReady     ReservationStatus = "READY_FOR_PICKUP"
	ReservationFulfilled ReservationStatus = "FULFILLED"
	ReservationExpired   ReservationStatus = "EXPIRED"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

// Title is one catalogued book entry, distinct from any physical copy.
// AvailableCopies never leaves [0, TotalCopies]; only the circulation
// engine moves it, always under the per-title lock.
type Title struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Author          string `json:"author,omitempty"`
	ISBN            string `json:"isbn,omitempty"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
}

// Patron is the minimal directory entry needed to address notifications.
type Patron struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Loan is one checkout event of one physical copy. Immutable once RETURNED.
type Loan struct {
	ID           string     `json:"id"`
	TitleID      string     `json:"title_id"`
	PatronID     string     `json:"patron_id"`
	Status       LoanStatus `json:"status"`
	IssuedAt     time.Time  `json:"issued_at"`
	DueAt        time.Time  `json:"due_at"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`
	ReminderSent bool       `json:"reminder_sent"`
}

// Reservation is a patron's place in a title's waitlist. ExpiresAt is set
// only once the reservation is promoted to READY_FOR_PICKUP.
type Reservation struct {
	ID          string            `json:"id"`
	TitleID     string            `json:"title_id"`
	PatronID    string            `json:"patron_id"`
	Status      ReservationStatus `json:"status"`
	RequestedAt time.Time         `json:"requested_at"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
}

// ReservationView is a reservation plus its computed queue position:
// 1-based rank for WAITING entries, 1 for READY_FOR_PICKUP, 0 otherwise.
// Recomputed on every read, never stored.
type ReservationView struct {
	Reservation
	QueuePosition int `json:"queue_position"`
}

type AlertType string

const (
	AlertOverdue          AlertType = "OVERDUE"
	AlertReminder         AlertType = "REMINDER"
	AlertReservationReady AlertType = "RESERVATION_READY"
	AlertHoldExpired      AlertType = "HOLD_EXPIRED"
)

// Alert is the librarian-facing audit record for every notification the
// engine produces. It is written even when external delivery fails.
type Alert struct {
	ID        string    `json:"id"`
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	RelatedID string    `json:"related_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

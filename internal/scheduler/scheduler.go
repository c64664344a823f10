// Package scheduler runs the recurring due-date sweep: flagging overdue
// loans, sending each loan at most one due-soon reminder, and expiring
// pickup holds so the waitlist keeps moving.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Tejas56934/LibraryManagementSystem/internal/domain"
	applog "github.com/Tejas56934/LibraryManagementSystem/internal/log"
	"github.com/Tejas56934/LibraryManagementSystem/internal/notify"
	"github.com/Tejas56934/LibraryManagementSystem/internal/repos"
	"github.com/Tejas56934/LibraryManagementSystem/internal/services"
)

type Scheduler struct {
	Loans    *repos.LoanRepo
	Patrons  *repos.PatronRepo
	Alerts   *repos.AlertRepo
	Waitlist *services.WaitlistService
	Notifier notify.Notifier

	Interval       time.Duration
	ReminderWindow time.Duration

	// Now is swappable for tests; nil means time.Now.
	Now func() time.Time
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Run executes Sweep on a fixed interval until ctx is cancelled. All sweeps
// happen on this one goroutine, so runs can never overlap.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	applog.BgInfo("scheduler.start", map[string]any{
		"interval":        s.Interval.String(),
		"reminder_window": s.ReminderWindow.String(),
	})
	for {
		select {
		case <-ctx.Done():
			applog.BgInfo("scheduler.stop", nil)
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep is one scheduler run. Exported so tests can drive it directly.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := s.now()

	// Scan only loans still holding a copy and not yet flagged. A loan
	// returned between the scan and the guarded update simply stops
	// matching, so return always wins the race.
	loans, err := s.Loans.FindByStatusIn(domain.LoanIssued, domain.LoanInOffice)
	if err != nil {
		applog.BgError("scheduler.scan", err, nil)
		return
	}

	for _, loan := range loans {
		untilDue := loan.DueAt.Sub(now)
		switch {
		case untilDue < 0:
			s.markOverdue(ctx, loan)
		case untilDue <= s.ReminderWindow && !loan.ReminderSent:
			s.sendReminder(ctx, loan, untilDue)
		}
	}

	expired, err := s.Waitlist.ExpireReady(ctx, now)
	if err != nil {
		applog.BgError("scheduler.expire", err, nil)
	}
	if expired > 0 {
		applog.BgInfo("scheduler.expired_holds", map[string]any{"count": expired})
	}
}

// markOverdue flips the loan to OVERDUE. The status-transition guard, not a
// time check, is what makes the alert fire exactly once: repeated sweeps
// over the same overdue loan no longer match the transition.
func (s *Scheduler) markOverdue(ctx context.Context, loan domain.Loan) {
	ok, err := s.Loans.TransitionStatus(loan.ID, domain.LoanOverdue, domain.LoanIssued, domain.LoanInOffice)
	if err != nil {
		applog.BgError("scheduler.overdue.transition", err, map[string]any{"loan_id": loan.ID})
		return
	}
	if !ok {
		return
	}

	due := loan.DueAt.UTC().Format(time.RFC3339)
	s.recordAlert(domain.AlertOverdue, loan.ID,
		fmt.Sprintf("URGENT: title %s (loan %s) is past due (%s).", loan.TitleID, loan.ID, due))

	s.deliver(ctx, loan.PatronID,
		fmt.Sprintf("your library book (title %s) was due on %s. Please return it immediately.", loan.TitleID, due),
		fmt.Sprintf("ALERT: title %s is OVERDUE.", loan.TitleID))
}

// sendReminder delivers the single due-soon reminder. The persisted
// reminder_sent flag is flipped first; delivery failure never unflips it,
// so the reminder stays at-most-once.
func (s *Scheduler) sendReminder(ctx context.Context, loan domain.Loan, untilDue time.Duration) {
	ok, err := s.Loans.MarkReminderSent(loan.ID)
	if err != nil {
		applog.BgError("scheduler.reminder.flag", err, map[string]any{"loan_id": loan.ID})
		return
	}
	if !ok {
		return
	}

	hours := int(untilDue.Hours())
	s.recordAlert(domain.AlertReminder, loan.ID,
		fmt.Sprintf("Reminder: title %s (loan %s) is due in about %d hours.", loan.TitleID, loan.ID, hours))

	s.deliver(ctx, loan.PatronID,
		fmt.Sprintf("this is a reminder that your library book (title %s) is due in about %d hours.", loan.TitleID, hours),
		fmt.Sprintf("Reminder: title %s due soon.", loan.TitleID))
}

// deliver sends the external email/SMS pair, best-effort. The alert record
// written by the caller is the authoritative trail; failures here are only
// logged.
func (s *Scheduler) deliver(ctx context.Context, patronID, emailBody, smsBody string) {
	patron, err := s.Patrons.Get(patronID)
	if err != nil {
		applog.BgError("scheduler.notify.lookup", err, map[string]any{"patron_id": patronID})
		return
	}
	msg := fmt.Sprintf("Dear %s, %s", patron.Name, emailBody)
	if err := s.Notifier.Notify(ctx, patron.ID, notify.ChannelEmail, msg); err != nil {
		applog.BgError("scheduler.notify.deliver", err, map[string]any{"patron_id": patron.ID})
	}
	if patron.Phone != "" {
		if err := s.Notifier.Notify(ctx, patron.ID, notify.ChannelSMS, smsBody); err != nil {
			applog.BgError("scheduler.notify.deliver", err, map[string]any{"patron_id": patron.ID})
		}
	}
}

func (s *Scheduler) recordAlert(t domain.AlertType, relatedID, message string) {
	alert := domain.Alert{
		ID:        uuid.NewString(),
		Type:      t,
		Message:   message,
		RelatedID: relatedID,
		CreatedAt: s.now(),
	}
	if err := s.Alerts.Insert(alert); err != nil {
		applog.BgError("scheduler.alert.write", err, map[string]any{"type": string(t), "related_id": relatedID})
	}
}

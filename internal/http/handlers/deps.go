package handlers

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Tejas56934/LibraryManagementSystem/internal/config"
	"github.com/Tejas56934/LibraryManagementSystem/internal/notify"
	"github.com/Tejas56934/LibraryManagementSystem/internal/repos"
	"github.com/Tejas56934/LibraryManagementSystem/internal/services"
)

type Deps struct {
	Circulation *CirculationHandler
	Reservation *ReservationHandler
	Catalog     *CatalogHandler
	Patron      *PatronHandler
	Alert       *AlertHandler

	// Shared with the scheduler wiring in cmd.
	CirculationSvc *services.CirculationService
	WaitlistSvc    *services.WaitlistService
	LoanRepo       *repos.LoanRepo
	PatronRepo     *repos.PatronRepo
	AlertRepo      *repos.AlertRepo
}

func NewDeps(db *sqlx.DB, cfg config.Config, notifier notify.Notifier) *Deps {
	catalogRepo := repos.NewCatalogRepo(db)
	loanRepo := repos.NewLoanRepo(db)
	reservationRepo := repos.NewReservationRepo(db)
	patronRepo := repos.NewPatronRepo(db)
	alertRepo := repos.NewAlertRepo(db)

	locks := services.NewTitleLocks()
	waitlistSvc := services.NewWaitlistService(catalogRepo, reservationRepo, patronRepo,
		alertRepo, notifier, locks, cfg.PickupGrace)
	circSvc := services.NewCirculationService(catalogRepo, loanRepo, patronRepo, waitlistSvc, locks)

	return &Deps{
		Circulation: &CirculationHandler{
			Circ:              circSvc,
			DefaultLoanPeriod: time.Duration(cfg.LoanPeriodDays) * 24 * time.Hour,
		},
		Reservation: &ReservationHandler{Waitlist: waitlistSvc},
		Catalog:     &CatalogHandler{Catalog: catalogRepo},
		Patron:      &PatronHandler{Patrons: patronRepo},
		Alert:       &AlertHandler{Alerts: alertRepo},

		CirculationSvc: circSvc,
		WaitlistSvc:    waitlistSvc,
		LoanRepo:       loanRepo,
		PatronRepo:     patronRepo,
		AlertRepo:      alertRepo,
	}
}

package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spf13/cobra"

	"github.com/Tejas56934/LibraryManagementSystem/internal/config"
	"github.com/Tejas56934/LibraryManagementSystem/internal/http/handlers"
	applog "github.com/Tejas56934/LibraryManagementSystem/internal/log"
	"github.com/Tejas56934/LibraryManagementSystem/internal/notify"
	"github.com/Tejas56934/LibraryManagementSystem/internal/repos"
	"github.com/Tejas56934/LibraryManagementSystem/internal/scheduler"
)

var rootCmd = &cobra.Command{
	Use:   "circd",
	Short: "Library circulation and reservation daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		return err
	}

	notifier := notify.EmailLog{}
	deps := handlers.NewDeps(db, cfg, notifier)

	sched := &scheduler.Scheduler{
		Loans:          deps.LoanRepo,
		Patrons:        deps.PatronRepo,
		Alerts:         deps.AlertRepo,
		Waitlist:       deps.WaitlistSvc,
		Notifier:       notifier,
		Interval:       cfg.SweepInterval,
		ReminderWindow: cfg.ReminderWindow,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sched.Run(ctx)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}))

	// Circulation
	app.Post("/loans", deps.Circulation.Issue)
	app.Post("/loans/:id/return", deps.Circulation.Return)
	app.Get("/loans", deps.Circulation.ListActive)
	app.Post("/reading-room", deps.Circulation.ReadIn)
	app.Post("/reading-room/:id/finish", deps.Circulation.ReadOut)

	// Reservations
	app.Post("/reservations", deps.Reservation.Place)
	app.Post("/reservations/:id/cancel", deps.Reservation.Cancel)

	// Patron directory & views
	app.Post("/patrons", deps.Patron.Create)
	app.Get("/patrons", deps.Patron.List)
	app.Get("/patrons/:id", deps.Patron.Get)
	app.Get("/patrons/:id/loans", deps.Circulation.PatronLoans)
	app.Get("/patrons/:id/reservations", deps.Reservation.PatronReservations)

	// Catalog & alerts
	app.Get("/titles", deps.Catalog.List)
	app.Get("/titles/:id", deps.Catalog.Get)
	app.Post("/titles/:id/restock", deps.Catalog.Restock)
	app.Get("/alerts", deps.Alert.List)
	app.Post("/alerts/:id/read", deps.Alert.MarkRead)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	errCh := make(chan error, 1)
	go func() { errCh <- app.Listen(":" + cfg.Port) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Println("[serve] shutting down")
		return app.Shutdown()
	}
}

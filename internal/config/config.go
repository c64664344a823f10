package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	DBDSN   string
	LogFile string

	// Circulation policy knobs. Hours/days granularity matches how the
	// desk staff think about these windows.
	LoanPeriodDays int
	ReminderWindow time.Duration
	PickupGrace    time.Duration
	SweepInterval  time.Duration
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] no .env file, using environment")
	}

	cfg := Config{
		Port:           getenv("PORT", "8080"),
		DBDSN:          getenv("DB_DSN", "circulation.db"),
		LogFile:        getenv("LOG_FILE", "./circd.log"),
		LoanPeriodDays: getint("LOAN_PERIOD_DAYS", 14),
		ReminderWindow: time.Duration(getint("REMINDER_WINDOW_HOURS", 24)) * time.Hour,
		PickupGrace:    time.Duration(getint("PICKUP_GRACE_HOURS", 48)) * time.Hour,
		SweepInterval:  time.Duration(getint("SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
	}

	log.Printf("[config] PORT=%s DB_DSN=%s reminder_window=%s pickup_grace=%s sweep=%s",
		cfg.Port, cfg.DBDSN, cfg.ReminderWindow, cfg.PickupGrace, cfg.SweepInterval)
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("[config] invalid %s=%q: %v", key, v, err)
	}
	return n
}

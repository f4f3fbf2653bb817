// cmd/watcher/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dealdesk/jobsync/internal/api"
	"github.com/dealdesk/jobsync/internal/bus"
	"github.com/dealdesk/jobsync/internal/track"
	"github.com/dealdesk/jobsync/pkg/schema"
)

type config struct {
	APIBaseURL   string
	NATSURL      string
	PushDisabled bool
	PollInterval time.Duration
	PushGrace    time.Duration
	StallAfter   time.Duration
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	dealFlag := flag.String("deal", "", "deal id to analyze (defaults to DEAL_ID)")
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fatal(logger, "load config", err)
	}

	dealID := *dealFlag
	if dealID == "" {
		dealID = os.Getenv("DEAL_ID")
	}
	if dealID == "" {
		fatal(logger, "resolve deal id", fmt.Errorf("set -deal or DEAL_ID"))
	}

	logger.Info("watcher starting",
		"api_url", cfg.APIBaseURL,
		"nats_url", cfg.NATSURL,
		"push_disabled", cfg.PushDisabled,
		"deal_id", dealID,
		"poll_interval", cfg.PollInterval,
		"push_grace", cfg.PushGrace,
		"stall_after", cfg.StallAfter,
	)

	var sub track.Subscriber
	if !cfg.PushDisabled {
		nc, err := bus.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn("push channel unavailable, tracking will poll", "nats_url", cfg.NATSURL, "err", err)
		} else {
			defer nc.Close()
			sub = &track.BusSubscriber{Bus: nc}
			logger.Info("connected to NATS", "nats_url", cfg.NATSURL)
		}
	}

	notifier := track.NotifierFunc(func(jobID string, status schema.JobStatus, message string) {
		// the CLI's toast
		if message != "" {
			fmt.Printf("analysis %s: %s (%s)\n", status, message, jobID)
			return
		}
		fmt.Printf("analysis %s (%s)\n", status, jobID)
	})

	tracker := track.New(api.NewClient(cfg.APIBaseURL), sub, notifier, logger, track.Config{
		PollInterval: cfg.PollInterval,
		PushGrace:    cfg.PushGrace,
		StallAfter:   cfg.StallAfter,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobID, err := tracker.Start(ctx, dealID)
	if err != nil {
		fatal(logger, "start analysis", err)
	}
	logger.Info("analysis started", "job_id", jobID)

	<-tracker.Done()

	if snap, ok := tracker.Snapshot(); ok {
		logger.Info("tracking finished",
			"job_id", snap.JobID,
			"status", snap.Status,
			"stalled", snap.Stalled,
			"phase", tracker.Phase().String(),
		)
		if !snap.Status.Terminal() && !snap.Stalled {
			if err := tracker.Err(); err != nil {
				fatal(logger, "tracking aborted", err)
			}
		}
	}
}

func loadConfig() (config, error) {
	cfg := config{
		APIBaseURL:   getenv("API_URL", "http://127.0.0.1:8080"),
		NATSURL:      getenv("NATS_URL", "nats://127.0.0.1:4222"),
		PushDisabled: getenv("PUSH_DISABLED", "") == "true",
	}

	poll, err := parseMillis(getenv("POLL_INTERVAL_MS", "2000"), "POLL_INTERVAL_MS")
	if err != nil {
		return config{}, err
	}
	cfg.PollInterval = poll

	grace, err := parseMillis(getenv("PUSH_GRACE_MS", "1500"), "PUSH_GRACE_MS")
	if err != nil {
		return config{}, err
	}
	cfg.PushGrace = grace

	if v := getenv("STALL_AFTER_MS", ""); v != "" {
		stall, err := parseMillis(v, "STALL_AFTER_MS")
		if err != nil {
			return config{}, err
		}
		cfg.StallAfter = stall
	}

	return cfg, nil
}

func parseMillis(value, name string) (time.Duration, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero (got %d)", name, v)
	}
	return time.Duration(v) * time.Millisecond, nil
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

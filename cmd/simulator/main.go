// cmd/simulator/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dealdesk/jobsync/internal/bus"
	"github.com/dealdesk/jobsync/internal/sim"
)

type config struct {
	HTTPAddr   string
	NATSURL    string
	ScriptPath string
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()
	logger.Info("simulator starting", "http_addr", cfg.HTTPAddr, "nats_url", cfg.NATSURL, "script", cfg.ScriptPath)

	script, err := sim.LoadScript(cfg.ScriptPath)
	if err != nil {
		fatal(logger, "load scenario script", err, "script", cfg.ScriptPath)
	}
	logger.Info("loaded scenario script", "jobs", len(script.Jobs))

	var pub sim.Publisher
	nc, err := bus.Connect(cfg.NATSURL)
	if err != nil {
		logger.Warn("NATS unavailable, push events disabled", "nats_url", cfg.NATSURL, "err", err)
	} else {
		defer nc.Close()
		pub = nc
		logger.Info("connected to NATS", "nats_url", cfg.NATSURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := sim.NewServer(ctx, script, sim.NewStore(), pub, logger)
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: server.Router()}

	go func() {
		<-ctx.Done()
		_ = httpServer.Shutdown(context.Background())
	}()

	logger.Info("serving job API", "addr", cfg.HTTPAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fatal(logger, "serve job API", err)
	}
}

func loadConfig() config {
	return config{
		HTTPAddr:   getenv("SIM_HTTP_ADDR", ":8080"),
		NATSURL:    getenv("NATS_URL", "nats://127.0.0.1:4222"),
		ScriptPath: getenv("SIM_SCRIPT", "./scenarios/default.yaml"),
	}
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

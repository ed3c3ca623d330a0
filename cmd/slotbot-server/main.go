package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"slotbot/internal/config"
	"slotbot/internal/jobs"
	"slotbot/internal/notify"
	"slotbot/internal/service/scheduling"
	"slotbot/internal/store/postgres"
	httpTransport "slotbot/internal/transport/http"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "slotbot-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "slotbot-server"),
	)
	slog.SetDefault(log)

	loc, err := cfg.Location()
	if err != nil {
		log.Error("timezone load failed", slog.String("timezone", cfg.Timezone), slog.Any("err", err))
		os.Exit(1)
	}

	addr := net.JoinHostPort(cfg.HTTPHost, strconv.Itoa(cfg.HTTPPort))
	log.Info("starting", slog.String("http_addr", addr), slog.String("log_level", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	notifier, err := notify.NewRedisNotifier(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.NotifyChannel)
	if err != nil {
		log.Error("redis connection failed", slog.String("redis_addr", cfg.RedisAddr), slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			log.Warn("redis close failed", slog.Any("err", err))
		}
	}()

	dispatcher := notify.NewDispatcher(notifier, log, cfg.NotifyBuffer)
	defer dispatcher.Close()

	engine := scheduling.NewEngine(
		postgres.NewScheduleRepo(db),
		postgres.NewLedgerRepo(db),
		postgres.NewDirectoryRepo(db),
		dispatcher,
		log,
		scheduling.Options{
			MaxActiveBookings:  cfg.MaxActiveBookings,
			CancelCutoff:       cfg.CancelCutoff,
			BookingHorizonDays: cfg.BookingHorizonDays,
			ReminderLead:       cfg.ReminderLead,
			ReminderBefore:     cfg.ReminderBefore,
			ReminderAfter:      cfg.ReminderAfter,
			Location:           loc,
		},
	)

	runner, err := jobs.NewRunner(jobs.Config{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		ReportHour:    cfg.ReportHour,
		SweepCadence:  cfg.ReminderCadence,
		Location:      loc,
	}, jobs.NewHandlers(engine, dispatcher, cfg.AdminIDs, loc, log), log)
	if err != nil {
		log.Error("jobs setup failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := runner.Start(); err != nil {
		log.Error("jobs start failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer runner.Stop()

	router := httpTransport.NewRouter(engine, httpTransport.RouterConfig{
		AdminIDs:       cfg.AdminIDs,
		RequestTimeout: cfg.HTTPRequestTimeout,
		Location:       loc,
	}, log)

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("http server started", slog.String("http_addr", addr))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, srv, cfg.ShutdownTimeout)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped with error", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func shutdown(log *slog.Logger, srv *http.Server, timeout time.Duration) {
	log.Info("shutting down http server", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown timed out; forcing close", slog.Any("err", err))
		_ = srv.Close()
		return
	}
	log.Info("http server stopped")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}

package jobs

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ReportHour is the local hour both nightly reports fire at.
	ReportHour int
	// SweepCadence is how often the reminder sweep runs. It must match
	// the slack of the reminder window so no booking is swept twice or
	// missed.
	SweepCadence time.Duration

	Location *time.Location
}

// Runner owns the asynq scheduler and worker pair. The scheduler
// enqueues the periodic tasks, the worker executes them.
type Runner struct {
	scheduler *asynq.Scheduler
	server    *asynq.Server
	handlers  *Handlers
	log       *slog.Logger
}

func NewRunner(cfg Config, handlers *Handlers, log *slog.Logger) (*Runner, error) {
	if log == nil {
		log = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: loc,
	})

	nightly := fmt.Sprintf("0 %d * * *", cfg.ReportHour)
	if _, err := scheduler.Register(nightly, asynq.NewTask(TypeDailyReport, nil)); err != nil {
		return nil, fmt.Errorf("register %s: %w", TypeDailyReport, err)
	}
	if _, err := scheduler.Register(nightly, asynq.NewTask(TypeTomorrowReport, nil)); err != nil {
		return nil, fmt.Errorf("register %s: %w", TypeTomorrowReport, err)
	}
	sweep := fmt.Sprintf("@every %s", cfg.SweepCadence)
	if _, err := scheduler.Register(sweep, asynq.NewTask(TypeReminderSweep, nil)); err != nil {
		return nil, fmt.Errorf("register %s: %w", TypeReminderSweep, err)
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{"default": 1},
	})

	return &Runner{
		scheduler: scheduler,
		server:    server,
		handlers:  handlers,
		log:       log.With(slog.String("component", "jobs.runner")),
	}, nil
}

// Start brings up the worker and the scheduler. Both keep running until
// Stop is called.
func (r *Runner) Start() error {
	if err := r.server.Start(r.handlers.Mux()); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	if err := r.scheduler.Start(); err != nil {
		r.server.Shutdown()
		return fmt.Errorf("start scheduler: %w", err)
	}
	r.log.Info("periodic jobs started")
	return nil
}

func (r *Runner) Stop() {
	r.scheduler.Shutdown()
	r.server.Shutdown()
	r.log.Info("periodic jobs stopped")
}

package jobs

// Task type names registered with the scheduler and the worker mux.
const (
	TypeDailyReport    = "report:daily"
	TypeTomorrowReport = "report:tomorrow"
	TypeReminderSweep  = "reminder:sweep"
)

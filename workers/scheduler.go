// workers/scheduler.go
package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"spinwin/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// QuotaPruner is the part of the local store the prune job needs.
type QuotaPruner interface {
	PruneQuotasBefore(ctx context.Context, day string) (int64, error)
}

// Maintenance runs the housekeeping jobs: dropping stale quota records and
// evicting idle widgets.
type Maintenance struct {
	Store         QuotaPruner
	Registry      *services.WidgetRegistry
	Clock         clockwork.Clock
	Location      *time.Location
	RetentionDays int
	IdleTTL       time.Duration

	sched gocron.Scheduler
}

// Start schedules the jobs. Stop with Shutdown.
func (m *Maintenance) Start() error {
	opts := []gocron.SchedulerOption{}
	if m.Clock != nil {
		opts = append(opts, gocron.WithClock(m.Clock))
	}
	if m.Location != nil {
		opts = append(opts, gocron.WithLocation(m.Location))
	}
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	// Shortly after midnight: prune quotas past retention.
	if _, err := sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 5, 0))),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if _, err := m.PruneQuotas(ctx); err != nil {
				log.Printf("[Scheduler] Quota prune failed: %v", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return fmt.Errorf("failed to schedule quota prune: %w", err)
	}

	if m.IdleTTL > 0 {
		interval := m.IdleTTL / 2
		if interval < time.Minute {
			interval = time.Minute
		}
		if _, err := sched.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() { m.Registry.Sweep(m.IdleTTL) }),
		); err != nil {
			return fmt.Errorf("failed to schedule widget sweep: %w", err)
		}
	}

	sched.Start()
	m.sched = sched
	log.Printf("✅ [Scheduler] Maintenance jobs running (retention %d days, idle TTL %s)", m.RetentionDays, m.IdleTTL)
	return nil
}

// PruneQuotas deletes per-day quota records older than the retention window.
func (m *Maintenance) PruneQuotas(ctx context.Context) (int64, error) {
	loc := m.Location
	if loc == nil {
		loc = time.Local
	}
	days := m.RetentionDays
	if days < 1 {
		days = 1
	}
	cutoff := m.Clock.Now().In(loc).AddDate(0, 0, -days).Format(services.DayLayout)

	n, err := m.Store.PruneQuotasBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("✅ [Scheduler] Pruned %d quota record(s) before %s", n, cutoff)
	}
	return n, nil
}

func (m *Maintenance) Shutdown() error {
	if m.sched == nil {
		return nil
	}
	return m.sched.Shutdown()
}

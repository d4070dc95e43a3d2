package report

import (
	"context"
	"log/slog"
	"time"
)

// Расписание еженедельного отчёта: пятница вечером, конец учебной недели.
const (
	reportWeekday = time.Friday
	reportHour    = 17
)

// Scheduler раз в неделю формирует отчёт и отправляет его по почте.
type Scheduler struct {
	service *Service
}

// NewScheduler создаёт планировщик поверх сервиса отчётов.
func NewScheduler(service *Service) *Scheduler {
	return &Scheduler{service: service}
}

// Run блокируется до отмены ctx, срабатывая в ближайший запланированный
// момент каждой недели.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next := nextRun(time.Now())
		slog.Info("weekly report scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.runOnce(ctx)
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	until := time.Now()
	since := until.AddDate(0, 0, -7)

	fileName, data, err := s.service.Generate(ctx, since, until)
	if err != nil {
		slog.Error("weekly report generation failed", "err", err)
		return
	}

	if err := s.service.Email(fileName, data); err != nil {
		slog.Error("weekly report delivery failed", "err", err)
		return
	}

	slog.Info("weekly report sent", "file", fileName, "size", len(data))
}

// nextRun возвращает ближайший запланированный момент после now.
func nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), reportHour, 0, 0, 0, now.Location())

	days := (int(reportWeekday) - int(now.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, days)

	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}

	return next
}

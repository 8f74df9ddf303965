// Package worker runs probes on their cron schedules: one job loop per probe,
// all supervised together and stopped by a single shared signal.
package worker

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrScheduleNeverFires is returned for cron expressions with no future fire time.
var ErrScheduleNeverFires = errors.New("schedule never fires")

// Schedule yields the next fire time strictly after t.
// A zero time means the schedule never fires again.
type Schedule interface {
	Next(t time.Time) time.Time
}

// ParseSchedule parses a standard five-field cron expression or a descriptor
// such as @daily, @hourly or @every 5m. An expression that parses but can
// never fire, like the 30th of February, is rejected.
func ParseSchedule(expr string) (Schedule, error) {
	s, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	if s.Next(time.Now()).IsZero() {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, ErrScheduleNeverFires)
	}
	return s, nil
}

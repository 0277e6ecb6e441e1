package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleOneshot registers cmd to run at every tick of spec (standard
// five-field cron syntax), computed via cron.Parser. This supplements
// §4.7 with a periodic trigger (e.g. log-archive pruning beyond the
// size-based rotation LogWriter already does); it is additive and
// disabled unless a caller registers a schedule. The returned cancel
// func stops the schedule.
func (t *SupervisionTree) ScheduleOneshot(ctx context.Context, spec string, cmd OneshotSpec) (cancel func(), err error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("supervisor: parse schedule %q: %w", spec, err)
	}

	stop := make(chan struct{})
	go func() {
		next := schedule.Next(time.Now())
		for {
			timer := time.NewTimer(time.Until(next))
			select {
			case <-timer.C:
				if _, runErr := t.RunOneshot(ctx, cmd); runErr != nil && t.logger != nil {
					t.logger.Error(ctx, "scheduled oneshot failed", runErr, map[string]any{"name": cmd.Name})
				}
				next = schedule.Next(time.Now())
			case <-stop:
				timer.Stop()
				return
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}()

	return func() { close(stop) }, nil
}

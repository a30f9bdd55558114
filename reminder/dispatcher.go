package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/annazecevic/subscription-tracker/logger"
)

// Dispatcher runs reminder triggers in the background so that subscription creation
// never waits on, or fails because of, the workflow engine.
type Dispatcher struct {
	trigger Trigger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(trigger Trigger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{trigger: trigger, timeout: timeout}
}

func (d *Dispatcher) Dispatch(subscriptionID string) {
	if d == nil || d.trigger == nil {
		logger.Info(logger.EventReminder, "Reminder backend disabled, skipping trigger", logger.Fields(
			"subscription_id", subscriptionID,
		))
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		runID, err := d.trigger.Trigger(ctx, subscriptionID)
		if err != nil {
			logger.Error(logger.EventReminderFailure, "Failed to trigger renewal reminder", logger.Fields(
				"subscription_id", subscriptionID,
				"error", err.Error(),
			))
			return
		}

		logger.Info(logger.EventReminder, "Renewal reminder scheduled", logger.Fields(
			"subscription_id", subscriptionID,
			"workflow_run_id", runID,
		))
	}()
}

// Wait blocks until every in-flight dispatch has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

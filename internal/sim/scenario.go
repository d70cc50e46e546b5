package sim

import (
	"context"
	"time"

	"github.com/d5h-foss/hwtest/internal/controller"
)

// Scenario timing. The valve settles well inside a second at the
// simulated ramp rates, so the poll/timeout pair has plenty of slack.
const (
	settlePoll    = 50 * time.Millisecond
	settleTimeout = 3 * time.Second
	soakDelay     = 500 * time.Millisecond
)

// Scenario exercises a valve through an open/soak/close cycle: verify
// it starts closed, open it and wait for flow to settle, hold and
// re-check, then shut it and verify flow dies away.
func Scenario(valve *Valve) controller.Program {
	return controller.NewScript(func(ctx context.Context, yield controller.Yield) error {
		// Baseline: valve closed, no flow expected.
		yield(controller.Next())

		if err := valve.Open(ctx); err != nil {
			return err
		}
		yield(controller.Do(controller.CheckAfterTrue{
			Predicate:    valve.Settled,
			PollInterval: settlePoll,
			Timeout:      settleTimeout,
		}))

		// Soak at full flow, checking before and after the hold.
		yield(controller.Do(controller.CheckAndWait{Delay: soakDelay}))
		yield(controller.After(soakDelay))

		if err := valve.Shut(ctx); err != nil {
			return err
		}
		yield(controller.Do(controller.CheckAfterTrue{
			Predicate:    valve.Settled,
			PollInterval: settlePoll,
			Timeout:      settleTimeout,
		}))
		return nil
	})
}

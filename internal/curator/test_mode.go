package curator

import (
	"context"
	"fmt"
	"time"

	"fisbd/internal/errsink"
	"fisbd/internal/product"
)

// Trigger is one scheduled test-mode assertion (spec §4.5 "Virtual time...
// the Curator reads a sync file written by the Trickle driver"; §6 CLI
// surface "run --test <N> (test mode: consume Trickle sync file and
// scheduled trigger list)"). At is evaluated against virtual_now.
type Trigger struct {
	At     time.Time
	Name   string
	Assert func(c *Curator) error
}

// RunTest drains the spool exactly n times, running MaintenanceTick and
// firing any due Trigger between drains, for deterministic Trickle-driven
// replay (spec §6 "run --test <N>"). A trigger's failure is a test-assertion
// error (spec §7 taxonomy (8)): it is sunk, not fatal, and the run
// continues.
func (c *Curator) RunTest(ctx context.Context, n int, triggers []Trigger) error {
	fired := make(map[int]bool, len(triggers))
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.Run(ctx); err != nil {
			return fmt.Errorf("curator: test iteration %d: %w", i, err)
		}
		if err := c.MaintenanceTick(ctx); err != nil {
			return fmt.Errorf("curator: test iteration %d maintenance: %w", i, err)
		}
		c.fireDueTriggers(triggers, fired)
	}
	return nil
}

func (c *Curator) fireDueTriggers(triggers []Trigger, fired map[int]bool) {
	now := c.clk.Now()
	for i, tr := range triggers {
		if fired[i] || now.Before(tr.At) {
			continue
		}
		fired[i] = true
		if err := tr.Assert(c); err != nil {
			c.sink.Append(errsink.KindTestAssertion, "trigger assertion failed", map[string]any{
				"trigger": tr.Name, "err": err.Error(),
			})
		}
	}
}

// AssertStored is a convenience Trigger.Assert building block: fails unless
// a record with the given key currently exists and is unexpired.
func AssertStored(ctx context.Context, typ product.Type, uniqueName string) func(*Curator) error {
	return func(c *Curator) error {
		p, err := c.db.Get(ctx, typ, uniqueName)
		if err != nil {
			return fmt.Errorf("lookup %s/%s: %w", typ, uniqueName, err)
		}
		if p == nil {
			return fmt.Errorf("%s/%s not found", typ, uniqueName)
		}
		if !p.ExpirationTime.IsZero() && !c.clk.Now().Before(p.ExpirationTime) {
			return fmt.Errorf("%s/%s already expired at %s", typ, uniqueName, p.ExpirationTime)
		}
		return nil
	}
}

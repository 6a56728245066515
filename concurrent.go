package abysmal

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunConcurrently runs every machine's Run concurrently, one goroutine each,
// and waits for all of them to finish. It exists to exercise the guarantee
// that Machines bound to the same Program never interfere with each other:
// each Machine owns its own stack, arena, and variable banks, so nothing
// shared mutates across goroutines except the Program itself, which no
// Machine ever writes to.
//
// If ctx is canceled, or any Machine's Run returns an error, the first such
// error is returned once every goroutine has finished; other machines are
// not stopped early beyond the ctx cancellation each already observes on
// its own next tick.
func RunConcurrently(ctx context.Context, machines ...*Machine) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, m := range machines {
		m := m
		g.Go(func() error {
			_, err := m.Run(ctx)
			return err
		})
	}
	return g.Wait()
}

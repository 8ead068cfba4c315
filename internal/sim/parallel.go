package sim

import (
	"context"
	"sync"

	"github.com/diagsim/diagsim/internal/diagram"
)

// Batch runs one authored diagram under several option sets
// concurrently, e.g. to compare solvers or tolerances. Every run
// compiles its own deep copy of the diagram, so block state is never
// shared between goroutines.
type Batch struct {
	d    *diagram.Diagram
	opts []Options
}

func NewBatch(d *diagram.Diagram, opts ...Options) *Batch {
	return &Batch{d: d, opts: opts}
}

// Run executes all configured runs and returns their Results in option
// order. The first error wins; remaining runs still complete.
func (b *Batch) Run(ctx context.Context) ([]*Results, error) {
	results := make([]*Results, len(b.opts))
	errs := make([]error, len(b.opts))

	var wg sync.WaitGroup
	for i := range b.opts {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			plan, err := b.d.Copy().Compile()
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = Run(ctx, plan, b.opts[idx])
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

package droptable

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DrumSongOSRS/DropRoller/internal/dice"
)

// ErrInvalidTrialCount is returned when fewer than one trial is requested.
var ErrInvalidTrialCount = errors.New("trial count must be at least 1")

// Totals is the aggregated quantity won per item, split by tier.
type Totals struct {
	PreRoll map[string]int
	Main    map[string]int
}

// Tier returns the totals map for tier.
func (t Totals) Tier(tier Tier) map[string]int {
	switch tier {
	case TierPreRoll:
		return t.PreRoll
	case TierMain:
		return t.Main
	}
	return nil
}

// Accumulator runs trials and sums quantities without rounding. Totals are
// truncated only when read, so Run(a) followed by Run(b) is equivalent to
// Run(a+b) over the same draw sequence.
type Accumulator struct {
	resolver *Resolver
	trials   int
	preRoll  map[string]float64
	main     map[string]float64
}

// NewAccumulator creates an empty Accumulator over r.
//
// Precondition: r must be non-nil.
func NewAccumulator(r *Resolver) *Accumulator {
	return &Accumulator{
		resolver: r,
		preRoll:  make(map[string]float64),
		main:     make(map[string]float64),
	}
}

// Run performs n trials.
//
// Precondition: n >= 1; otherwise ErrInvalidTrialCount is returned and no
// draw is made.
func (a *Accumulator) Run(n int) error {
	if n < 1 {
		return fmt.Errorf("%d trials: %w", n, ErrInvalidTrialCount)
	}
	t := a.resolver.Table()
	for i := 0; i < n; i++ {
		out := a.resolver.Resolve()
		if !out.Hit() {
			continue
		}
		qty := 1.0
		if e, ok := t.Entry(out.Tier, out.Name); ok {
			qty = e.Quantity
		}
		switch out.Tier {
		case TierPreRoll:
			a.preRoll[out.Name] += qty
		case TierMain:
			a.main[out.Name] += qty
		}
	}
	a.trials += n
	return nil
}

// Trials returns the number of trials run so far.
func (a *Accumulator) Trials() int {
	return a.trials
}

// Totals returns the accumulated quantities truncated toward zero.
//
// Postcondition: every item that fired at least once is present, even if its
// truncated total is zero.
func (a *Accumulator) Totals() Totals {
	return Totals{
		PreRoll: truncate(a.preRoll),
		Main:    truncate(a.main),
	}
}

func truncate(in map[string]float64) map[string]int {
	out := make(map[string]int, len(in))
	for name, qty := range in {
		out[name] = int(qty)
	}
	return out
}

// Aggregate runs n independent trials of t with src and returns the totals.
//
// Precondition: n >= 1; otherwise ErrInvalidTrialCount is returned.
func Aggregate(t *Table, src dice.Source, n int) (Totals, error) {
	acc := NewAccumulator(NewResolver(t, src, zap.NewNop()))
	if err := acc.Run(n); err != nil {
		return Totals{}, err
	}
	return acc.Totals(), nil
}

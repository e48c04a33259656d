package droptable

import (
	"go.uber.org/zap"

	"github.com/DrumSongOSRS/DropRoller/internal/dice"
)

// Outcome is the result of a single trial.
type Outcome struct {
	Name string
	Tier Tier
}

// Hit reports whether any entry fired.
func (o Outcome) Hit() bool {
	return o.Tier != TierNone
}

// Resolve performs one trial against t.
//
// Pre-roll entries are checked in order, each against a fresh draw, and the
// first draw below its entry's rate wins. Otherwise a single draw is walked
// across the cumulative main table rates. A draw landing past the last main
// entry yields the zero Outcome.
//
// Precondition: t and src must be non-nil.
func Resolve(t *Table, src dice.Source) Outcome {
	for _, e := range t.PreRoll {
		if src.Float64() < e.Rate {
			return Outcome{Name: e.Name, Tier: TierPreRoll}
		}
	}

	if len(t.Main) == 0 {
		return Outcome{}
	}
	roll := src.Float64()
	var cumulative float64
	for _, e := range t.Main {
		cumulative += e.Rate
		if roll < cumulative {
			return Outcome{Name: e.Name, Tier: TierMain}
		}
	}
	return Outcome{}
}

// Resolver binds a table to a random source.
type Resolver struct {
	table     *Table
	src       dice.Source
	integrity error
}

// NewResolver creates a Resolver and checks the table's integrity once. An
// overflowing main table is logged as a warning; resolution still proceeds
// with the entries past the overflow unreachable.
//
// Precondition: t, src and logger must be non-nil.
func NewResolver(t *Table, src dice.Source, logger *zap.Logger) *Resolver {
	r := &Resolver{table: t, src: src, integrity: t.Integrity()}
	if r.integrity != nil {
		logger.Warn("drop table integrity check failed",
			zap.String("table", t.Name),
			zap.Float64("main_mass", t.MainMass()),
			zap.Error(r.integrity),
		)
	}
	return r
}

// Table returns the bound table.
func (r *Resolver) Table() *Table {
	return r.table
}

// Integrity returns the result of the construction-time integrity check.
func (r *Resolver) Integrity() error {
	return r.integrity
}

// Resolve performs one trial.
func (r *Resolver) Resolve() Outcome {
	return Resolve(r.table, r.src)
}

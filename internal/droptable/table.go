// Package droptable models a two-tier weighted drop table and simulates draws
// against it.
//
// A table has an ordered pre-roll tier, where every entry is an independent
// check made before the main draw, and an ordered main tier evaluated as a
// single cumulative distribution whose unassigned remainder means "nothing".
package droptable

import (
	"errors"
	"fmt"
	"math"
)

// Tier names a section of a drop table.
type Tier string

// Tier values. TierNone marks an outcome where nothing dropped.
const (
	TierPreRoll Tier = "pre-roll"
	TierMain    Tier = "main table"
	TierNone    Tier = ""
)

// massEpsilon absorbs float error when summing ratios such as 1/8.1 + 1/12.15.
const massEpsilon = 1e-9

// MaxQuantity bounds the per-hit quantity so that totals over a billion trials
// still fit in an int.
const MaxQuantity = 1e6

var (
	// ErrTableNotFound is returned when no file exists for a table name.
	ErrTableNotFound = errors.New("drop table not found")
	// ErrMissingDropTable is returned when a table file has no drop_table section.
	ErrMissingDropTable = errors.New("missing drop_table section")
	// ErrUnknownTier is returned for a section other than pre-roll or main table.
	ErrUnknownTier = errors.New("unknown tier")
	// ErrDuplicateEntry is returned when a name repeats within one tier.
	ErrDuplicateEntry = errors.New("duplicate entry")
	// ErrInvalidRate is returned for a rate that does not parse or is outside [0, 1].
	ErrInvalidRate = errors.New("invalid rate")
	// ErrInvalidQuantity is returned for a quantity that is negative, not finite
	// or above MaxQuantity.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrMainTableOverflow reports main table rates summing to more than 1.
	ErrMainTableOverflow = errors.New("main table rates exceed 1")
)

// Entry is one item in a tier.
type Entry struct {
	Name string
	// Rate is the probability of this entry in [0, 1].
	Rate float64
	// Quantity is the amount yielded per hit; fractional values accumulate
	// across trials and are truncated only when totals are read.
	Quantity float64
	// BarType is the Giant's Foundry bar category, empty when the item cannot
	// be smelted down.
	BarType string
	// Alchable marks items that count towards the high alchemy summary.
	Alchable bool
}

// Table is an immutable two-tier drop table.
//
// Invariant: entry order matches the source definition and no name repeats
// within a tier.
type Table struct {
	Name    string
	Title   string
	PreRoll []Entry
	Main    []Entry
}

// IntegrityError describes a table whose main tier cannot be drawn as written.
type IntegrityError struct {
	Table string
	Mass  float64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("drop table %q: main table rates sum to %.6f; entries past the overflow are unreachable", e.Table, e.Mass)
}

// Unwrap lets errors.Is match ErrMainTableOverflow.
func (e *IntegrityError) Unwrap() error {
	return ErrMainTableOverflow
}

// MainMass returns the sum of all main table rates.
func (t *Table) MainMass() float64 {
	var mass float64
	for _, e := range t.Main {
		mass += e.Rate
	}
	return mass
}

// Integrity reports whether the main tier is drawable as written.
//
// Postcondition: returns nil when MainMass() <= 1 (within float tolerance),
// otherwise an *IntegrityError matching ErrMainTableOverflow.
func (t *Table) Integrity() error {
	mass := t.MainMass()
	if mass > 1+massEpsilon {
		return &IntegrityError{Table: t.Name, Mass: mass}
	}
	return nil
}

// Entries returns the entries of the given tier in table order.
func (t *Table) Entries(tier Tier) []Entry {
	switch tier {
	case TierPreRoll:
		return t.PreRoll
	case TierMain:
		return t.Main
	}
	return nil
}

// Entry looks up name within tier.
func (t *Table) Entry(tier Tier, name string) (Entry, bool) {
	for _, e := range t.Entries(tier) {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Names returns every distinct item name, pre-roll first, in table order.
func (t *Table) Names() []string {
	seen := make(map[string]bool, len(t.PreRoll)+len(t.Main))
	names := make([]string, 0, len(t.PreRoll)+len(t.Main))
	for _, tier := range [][]Entry{t.PreRoll, t.Main} {
		for _, e := range tier {
			if seen[e.Name] {
				continue
			}
			seen[e.Name] = true
			names = append(names, e.Name)
		}
	}
	return names
}

// Validate checks the per-entry invariants.
//
// Postcondition: Returns nil iff every rate is in [0, 1], every quantity is
// in [0, MaxQuantity] and no name repeats within a tier. Main table overflow is not a
// validation failure; see Integrity.
func (t *Table) Validate() error {
	for _, tier := range []Tier{TierPreRoll, TierMain} {
		seen := make(map[string]bool)
		for i, e := range t.Entries(tier) {
			if e.Name == "" {
				return fmt.Errorf("drop table %q: %s[%d] must have a non-empty name", t.Name, tier, i)
			}
			if seen[e.Name] {
				return fmt.Errorf("drop table %q: %s %q: %w", t.Name, tier, e.Name, ErrDuplicateEntry)
			}
			seen[e.Name] = true
			if math.IsNaN(e.Rate) || e.Rate < 0 || e.Rate > 1 {
				return fmt.Errorf("drop table %q: %s %q: rate %v: %w", t.Name, tier, e.Name, e.Rate, ErrInvalidRate)
			}
			if math.IsNaN(e.Quantity) || e.Quantity < 0 || e.Quantity > MaxQuantity {
				return fmt.Errorf("drop table %q: %s %q: quantity %v: %w", t.Name, tier, e.Name, e.Quantity, ErrInvalidQuantity)
			}
		}
	}
	return nil
}

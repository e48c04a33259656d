// Package report renders aggregated drop totals and the value summaries
// derived from them.
package report

import (
	"context"
	"sort"

	"github.com/DrumSongOSRS/DropRoller/internal/droptable"
	"github.com/DrumSongOSRS/DropRoller/internal/itemvalue"
)

const (
	// MagicXPPerAlch is the Magic experience granted by one High Level Alchemy cast.
	MagicXPPerAlch = 65
	// BarsPerSet is the number of bars of each type consumed by one Giant's Foundry sword.
	BarsPerSet = 14
	// FoundryXPPerSet is the Smithing experience for one sword with every mould unlocked.
	FoundryXPPerSet = 16570
)

// Estimate notes explaining a zero foundry estimate.
const (
	NoteOneBarType   = "need two bar types"
	NoteManyBarTypes = "more than two bar types"
)

// AlchLine is one won item in an alchemy summary.
type AlchLine struct {
	Name     string
	Quantity int
	HighAlch int
	Value    int
}

// AlchSummary totals the high alchemy value of a set of won items.
type AlchSummary struct {
	Lines   []AlchLine
	Alchs   int
	MagicXP int
	Total   int
}

// Empty reports whether no item qualified.
func (s AlchSummary) Empty() bool {
	return len(s.Lines) == 0
}

func (s *AlchSummary) add(line AlchLine) {
	s.Lines = append(s.Lines, line)
	s.Alchs += line.Quantity
	s.MagicXP = s.Alchs * MagicXPPerAlch
	s.Total += line.Value
}

// FoundryLine is one won item that can be smelted at Giant's Foundry.
type FoundryLine struct {
	Name     string
	Quantity int
	BarsUsed int
	Yield    int
	BarType  string
}

// FoundrySummary totals the bars yielded by smeltable items.
type FoundrySummary struct {
	Lines        []FoundryLine
	BarsByType   map[string]int
	CompleteSets int
	EstimatedXP  int
	// Note explains a zero estimate; empty when the estimate was computed.
	Note string
}

// Empty reports whether no item qualified.
func (s FoundrySummary) Empty() bool {
	return len(s.Lines) == 0
}

// BarTypes returns the bar types present, sorted ascending.
func (s FoundrySummary) BarTypes() []string {
	types := make([]string, 0, len(s.BarsByType))
	for bt := range s.BarsByType {
		types = append(types, bt)
	}
	sort.Strings(types)
	return types
}

// Summary holds every value summary computed for one run.
type Summary struct {
	// All covers every alchable item.
	All AlchSummary
	// AlchOnly covers alchable items that have no bar type.
	AlchOnly AlchSummary
	Foundry  FoundrySummary
}

// Summarize combines the main table totals of t with item values.
// Items whose values cannot be resolved are left out of the summaries.
//
// Precondition: t and values must be non-nil.
// Postcondition: Lines appear in main table order; zero-quantity items never
// appear.
func Summarize(ctx context.Context, t *droptable.Table, totals droptable.Totals, values itemvalue.Provider) Summary {
	var names []string
	for _, e := range t.Main {
		if totals.Main[e.Name] > 0 && (e.Alchable || e.BarType != "") {
			names = append(names, e.Name)
		}
	}

	var s Summary
	s.Foundry.BarsByType = make(map[string]int)
	if len(names) == 0 {
		return s
	}
	resolved := values.GetBatch(ctx, names)

	for _, e := range t.Main {
		qty := totals.Main[e.Name]
		if qty <= 0 {
			continue
		}
		v := resolved[e.Name]

		if e.Alchable && v.HighAlch != nil {
			line := AlchLine{Name: e.Name, Quantity: qty, HighAlch: *v.HighAlch, Value: *v.HighAlch * qty}
			s.All.add(line)
			if e.BarType == "" {
				s.AlchOnly.add(line)
			}
		}

		if e.BarType != "" && v.BarsUsed != nil {
			line := FoundryLine{
				Name:     e.Name,
				Quantity: qty,
				BarsUsed: *v.BarsUsed,
				Yield:    *v.BarsUsed * qty,
				BarType:  e.BarType,
			}
			s.Foundry.Lines = append(s.Foundry.Lines, line)
			s.Foundry.BarsByType[line.BarType] += line.Yield
		}
	}

	estimateFoundry(&s.Foundry)
	return s
}

// estimateFoundry fills the set count and XP estimate. Swords need bars of
// exactly two types, so the scarcer type limits the number of sets.
func estimateFoundry(s *FoundrySummary) {
	switch len(s.BarsByType) {
	case 0:
	case 1:
		s.Note = NoteOneBarType
	case 2:
		sets := -1
		for _, total := range s.BarsByType {
			if n := total / BarsPerSet; sets < 0 || n < sets {
				sets = n
			}
		}
		s.CompleteSets = sets
		s.EstimatedXP = sets * FoundryXPPerSet
	default:
		s.Note = NoteManyBarTypes
	}
}

package report

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/DrumSongOSRS/DropRoller/internal/droptable"
	"github.com/DrumSongOSRS/DropRoller/internal/itemvalue"
)

// Report is the result of one simulation run.
type Report struct {
	Trials int
	Table  *droptable.Table
	Totals droptable.Totals
}

// Write renders r to w. Value summaries are included only when values is
// non-nil and at least one won item qualifies.
//
// Precondition: r.Table must be non-nil.
// Postcondition: Nothing is written if rendering fails before the final write.
func Write(ctx context.Context, w io.Writer, r Report, values itemvalue.Provider) error {
	g := grouper{message.NewPrinter(language.English)}
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "\nRolling the %s Drop Table %d times.\n\n", r.Table.Title, r.Trials)
	buf.WriteString("Rewards:\n")
	writeTier(&buf, r.Table.Entries(droptable.TierPreRoll), r.Totals.Tier(droptable.TierPreRoll))
	buf.WriteString("\nMain Drop Table:\n")
	writeTier(&buf, r.Table.Entries(droptable.TierMain), r.Totals.Tier(droptable.TierMain))

	if values != nil {
		s := Summarize(ctx, r.Table, r.Totals, values)
		if !s.All.Empty() {
			buf.WriteString("\nAlch All:\n")
			writeAlch(g, &buf, s.All)
		}
		if !s.AlchOnly.Empty() {
			buf.WriteString("\nAlch and Giant's Foundry:\n")
			writeAlch(g, &buf, s.AlchOnly)
		}
		if !s.Foundry.Empty() {
			buf.WriteString("\nGiant's Foundry Summary:\n")
			writeFoundry(g, &buf, s.Foundry)
		}
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// grouper renders gp and XP amounts with thousands separators. Counts, unit
// prices and bar numbers stay ungrouped to match the legacy report.
type grouper struct {
	p *message.Printer
}

func (g grouper) amount(n int) string {
	return g.p.Sprintf("%d", n)
}

func writeTier(buf *bytes.Buffer, entries []droptable.Entry, totals map[string]int) {
	for _, e := range entries {
		if qty := totals[e.Name]; qty > 0 {
			fmt.Fprintf(buf, "%s: %d\n", e.Name, qty)
		}
	}
}

func writeAlch(g grouper, buf *bytes.Buffer, s AlchSummary) {
	for _, l := range s.Lines {
		fmt.Fprintf(buf, "  %s × %d @ %dgp = %sgp\n", l.Name, l.Quantity, l.HighAlch, g.amount(l.Value))
	}
	fmt.Fprintf(buf, "Number of Alchs: %d\n", s.Alchs)
	fmt.Fprintf(buf, "Magic XP: %s\n", g.amount(s.MagicXP))
	fmt.Fprintf(buf, "Total Alch Value: %s\n", g.amount(s.Total))
}

func writeFoundry(g grouper, buf *bytes.Buffer, s FoundrySummary) {
	for _, l := range s.Lines {
		fmt.Fprintf(buf, "  %s × %d @ %d bars = %d bars\n", l.Name, l.Quantity, l.BarsUsed, l.Yield)
	}
	buf.WriteString("Total Bars Yielded:\n")
	for _, bt := range s.BarTypes() {
		fmt.Fprintf(buf, "  %s: %d\n", bt, s.BarsByType[bt])
	}
	if s.Note != "" {
		fmt.Fprintf(buf, "Estimated XP (all moulds unlocked): 0 (%s)\n", s.Note)
		return
	}
	fmt.Fprintf(buf, "Estimated XP (all moulds unlocked): %s\n", g.amount(s.EstimatedXP))
}

// Package simulation runs a drop table for a number of trials and renders
// the report.
package simulation

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DrumSongOSRS/DropRoller/internal/dice"
	"github.com/DrumSongOSRS/DropRoller/internal/droptable"
	"github.com/DrumSongOSRS/DropRoller/internal/itemvalue"
	"github.com/DrumSongOSRS/DropRoller/internal/report"
)

// Runner composes table loading, value prefetch, aggregation and rendering.
type Runner struct {
	// Tables is the directory holding table files.
	Tables string
	Source dice.Source
	// Values is optional; nil skips the value summaries.
	Values itemvalue.Provider
	Logger *zap.Logger
}

// Run simulates n trials of the named table and writes the report to w.
//
// Precondition: r.Source and r.Logger must be non-nil.
// Postcondition: When n < 1 or the table cannot be loaded, an error is
// returned before any draw is made and nothing is written.
func (r *Runner) Run(ctx context.Context, w io.Writer, tableName string, n int) error {
	if n < 1 {
		return fmt.Errorf("%d trials: %w", n, droptable.ErrInvalidTrialCount)
	}

	logger := r.Logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("table", tableName),
		zap.Int("trials", n),
	)

	table, err := droptable.LoadByName(r.Tables, tableName)
	if err != nil {
		return fmt.Errorf("loading drop table: %w", err)
	}
	logger.Debug("drop table loaded",
		zap.Int("pre_roll_entries", len(table.PreRoll)),
		zap.Int("main_entries", len(table.Main)),
	)

	if r.Values != nil {
		start := time.Now()
		r.Values.GetBatch(ctx, table.Names())
		logger.Debug("item values prefetched", zap.Duration("elapsed", time.Since(start)))
	}

	start := time.Now()
	acc := droptable.NewAccumulator(droptable.NewResolver(table, r.Source, logger))
	if err := acc.Run(n); err != nil {
		return err
	}
	logger.Info("simulation complete", zap.Duration("elapsed", time.Since(start)))

	return report.Write(ctx, w, report.Report{
		Trials: acc.Trials(),
		Table:  table,
		Totals: acc.Totals(),
	}, r.Values)
}

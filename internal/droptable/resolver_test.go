package droptable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/DrumSongOSRS/DropRoller/internal/dice"
	"github.com/DrumSongOSRS/DropRoller/internal/droptable"
)

func TestResolve_ZeroDrawSelectsFirstNonZeroEntry(t *testing.T) {
	tbl := mainOnly(
		entry("Nothing here", 0, 1),
		entry("First", 0.3, 1),
		entry("Second", 0.3, 1),
	)
	out := droptable.Resolve(tbl, dice.NewSequenceSource(0.0))
	assert.Equal(t, droptable.Outcome{Name: "First", Tier: droptable.TierMain}, out)
}

func TestResolve_CumulativeBoundaries(t *testing.T) {
	tbl := mainOnly(entry("A", 0.25, 1), entry("B", 0.25, 1), entry("C", 0.25, 1))
	cases := []struct {
		draw float64
		want string
	}{
		{0.0, "A"},
		{0.2499, "A"},
		{0.25, "B"},
		{0.4999, "B"},
		{0.5, "C"},
		{0.7499, "C"},
	}
	for _, tc := range cases {
		out := droptable.Resolve(tbl, dice.NewSequenceSource(tc.draw))
		assert.Equal(t, tc.want, out.Name, "draw %v", tc.draw)
		assert.Equal(t, droptable.TierMain, out.Tier)
	}
}

func TestResolve_RemainderIsNothing(t *testing.T) {
	tbl := mainOnly(entry("A", 0.25, 1), entry("B", 0.25, 1))
	out := droptable.Resolve(tbl, dice.NewSequenceSource(0.5))
	assert.False(t, out.Hit())
	assert.Equal(t, droptable.Outcome{}, out)
}

func TestResolve_EmptyTable(t *testing.T) {
	src := dice.NewSequenceSource(0.0)
	out := droptable.Resolve(&droptable.Table{Name: "empty"}, src)
	assert.False(t, out.Hit())
	assert.Equal(t, 0, src.Draws(), "no draw is made without entries")
}

func TestResolve_PreRollFirstMatchWins(t *testing.T) {
	tbl := &droptable.Table{
		Name: "test",
		PreRoll: []droptable.Entry{
			entry("Clue", 0.1, 1),
			entry("Sextant", 0.5, 1),
			entry("Paint", 0.9, 1),
		},
		Main: []droptable.Entry{entry("Sword", 1, 1)},
	}

	// Clue misses (0.2 >= 0.1), Sextant hits (0.3 < 0.5); Paint is never checked.
	src := dice.NewSequenceSource(0.2, 0.3, 0.0, 0.0)
	out := droptable.Resolve(tbl, src)
	assert.Equal(t, droptable.Outcome{Name: "Sextant", Tier: droptable.TierPreRoll}, out)
	assert.Equal(t, 2, src.Draws())
}

func TestResolve_PreRollMissFallsThroughToMain(t *testing.T) {
	tbl := &droptable.Table{
		Name:    "test",
		PreRoll: []droptable.Entry{entry("Clue", 0.1, 1), entry("Sextant", 0.1, 1)},
		Main:    []droptable.Entry{entry("Sword", 0.5, 1), entry("Shield", 0.5, 1)},
	}

	src := dice.NewSequenceSource(0.5, 0.5, 0.6)
	out := droptable.Resolve(tbl, src)
	assert.Equal(t, droptable.Outcome{Name: "Shield", Tier: droptable.TierMain}, out)
	assert.Equal(t, 3, src.Draws(), "one draw per pre-roll entry plus one main draw")
}

func TestResolve_PreRollIsStrictlyLessThan(t *testing.T) {
	tbl := &droptable.Table{
		Name:    "test",
		PreRoll: []droptable.Entry{entry("Clue", 0.5, 1)},
	}
	out := droptable.Resolve(tbl, dice.NewSequenceSource(0.5))
	assert.False(t, out.Hit())
}

func TestProperty_Resolve_OutcomeIsTableEntry(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(rt, "entries")
		remaining := 1.0
		var entries []droptable.Entry
		for i := 0; i < n; i++ {
			rate := rapid.Float64Range(0, remaining).Draw(rt, "rate")
			remaining -= rate
			entries = append(entries, entry(string(rune('A'+i)), rate, 1))
		}
		tbl := mainOnly(entries...)
		draw := rapid.Float64Range(0, 0.999999).Draw(rt, "draw")

		out := droptable.Resolve(tbl, dice.NewSequenceSource(draw))
		if !out.Hit() {
			assert.GreaterOrEqual(rt, draw, tbl.MainMass()-1e-12)
			return
		}
		e, ok := tbl.Entry(droptable.TierMain, out.Name)
		require.True(rt, ok)
		assert.Greater(rt, e.Rate, 0.0, "zero-rate entries never fire")
	})
}

func TestNewResolver_FlagsOverflow(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tbl := mainOnly(entry("A", 0.75, 1), entry("B", 0.5, 1))

	r := droptable.NewResolver(tbl, dice.NewSequenceSource(0.9), zap.New(core))
	assert.ErrorIs(t, r.Integrity(), droptable.ErrMainTableOverflow)

	var ie *droptable.IntegrityError
	require.ErrorAs(t, r.Integrity(), &ie)
	assert.InDelta(t, 1.25, ie.Mass, 1e-12)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "drop table integrity check failed", logs.All()[0].Message)

	// Resolution still works; draws past 1.0 are impossible so B keeps its
	// first 0.25 of mass only.
	assert.Equal(t, "B", r.Resolve().Name)
}

func TestNewResolver_AcceptsFloatRoundingAtOne(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tbl := mainOnly(
		entry("A", 1/8.1, 1), entry("B", 1/8.1, 1), entry("C", 1/8.1, 1),
		entry("D", 1-3/8.1, 1),
	)
	r := droptable.NewResolver(tbl, dice.NewSequenceSource(0.1), zap.New(core))
	assert.NoError(t, r.Integrity())
	assert.Equal(t, 0, logs.Len())
}

func TestProperty_Integrity_MatchesMass(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rates := rapid.SliceOfN(rapid.Float64Range(0, 1), 1, 6).Draw(rt, "rates")
		var entries []droptable.Entry
		var mass float64
		for i, r := range rates {
			entries = append(entries, entry(string(rune('A'+i)), r, 1))
			mass += r
		}
		err := mainOnly(entries...).Integrity()
		if mass > 1+1e-9 {
			assert.ErrorIs(rt, err, droptable.ErrMainTableOverflow)
		} else {
			assert.NoError(rt, err)
		}
	})
}

package droptable_test

import (
	"fmt"

	"github.com/DrumSongOSRS/DropRoller/internal/droptable"
)

func formatRatio(num, den int) string {
	return fmt.Sprintf("%d/%d", num, den)
}

func mainOnly(entries ...droptable.Entry) *droptable.Table {
	return &droptable.Table{Name: "test", Title: "Test", Main: entries}
}

func entry(name string, rate, qty float64) droptable.Entry {
	return droptable.Entry{Name: name, Rate: rate, Quantity: qty}
}

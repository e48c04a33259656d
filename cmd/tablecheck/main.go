// Package main provides a checker that loads every drop table in a directory
// and reports its shape and main table mass.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/DrumSongOSRS/DropRoller/internal/config"
	"github.com/DrumSongOSRS/DropRoller/internal/droptable"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	dir := flag.String("dir", "", "table directory; overrides tables.dir")
	flag.Parse()

	tablesDir := *dir
	if tablesDir == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		tablesDir = cfg.Tables.Dir
	}

	ok, err := check(os.Stdout, tablesDir)
	if err != nil {
		log.Fatalf("checking tables: %v", err)
	}
	if !ok {
		os.Exit(1)
	}
}

// check loads every table in dir and writes one line per table. It reports
// false when any table fails to load; integrity overflows are flagged but do
// not fail the check.
func check(w io.Writer, dir string) (bool, error) {
	names, err := droptable.ListNames(dir)
	if err != nil {
		return false, err
	}
	ok := true
	for _, name := range names {
		t, err := droptable.LoadByName(dir, name)
		if err != nil {
			fmt.Fprintf(w, "%s  ERROR %v\n", name, err)
			ok = false
			continue
		}
		line := fmt.Sprintf("%s  pre-roll=%d  main=%d  mass=%.6f", name, len(t.PreRoll), len(t.Main), t.MainMass())
		if err := t.Integrity(); errors.Is(err, droptable.ErrMainTableOverflow) {
			line += "  OVERFLOW"
		}
		fmt.Fprintln(w, line)
	}
	return ok, nil
}

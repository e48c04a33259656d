package droptable

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// tableExtensions lists the file extensions tried, in order, when resolving a
// table name. JSON is a subset of the YAML accepted by yaml.v3.
var tableExtensions = []string{".yaml", ".yml", ".json"}

// yamlEntry is the YAML/JSON representation of a single table item.
type yamlEntry struct {
	Rate      yaml.Node `yaml:"rate"`
	Quantity  *float64  `yaml:"quantity"`
	BarType   string    `yaml:"bar_type"`
	AlchValue bool      `yaml:"alch_value"`
}

// ParseRate parses a probability written as a ratio ("1/500", "1/8.1") or a
// decimal ("0.25").
//
// Postcondition: Returns a value in [0, 1] or an error wrapping ErrInvalidRate.
func ParseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty rate: %w", ErrInvalidRate)
	}

	var rate float64
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, fmt.Errorf("rate %q numerator: %w", s, ErrInvalidRate)
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err != nil {
			return 0, fmt.Errorf("rate %q denominator: %w", s, ErrInvalidRate)
		}
		if d == 0 {
			return 0, fmt.Errorf("rate %q has a zero denominator: %w", s, ErrInvalidRate)
		}
		rate = n / d
	} else {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("rate %q: %w", s, ErrInvalidRate)
		}
		rate = v
	}

	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return 0, fmt.Errorf("rate %q must be within [0, 1]: %w", s, ErrInvalidRate)
	}
	return rate, nil
}

// LoadFromBytes parses a table definition. Mapping order in the document is
// preserved as entry order.
//
// Precondition: data must be YAML or JSON with a top-level drop_table mapping.
// Postcondition: Returns a validated *Table or a non-nil error.
func LoadFromBytes(name string, data []byte) (*Table, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing drop table %q: %w", name, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("drop table %q: %w", name, ErrMissingDropTable)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("drop table %q: top level must be a mapping", name)
	}

	t := &Table{Name: name, Title: name}
	var sections *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "title":
			if val.Kind == yaml.ScalarNode && val.ShortTag() != "!!null" && val.Value != "" {
				t.Title = val.Value
			}
		case "drop_table":
			sections = val
		}
	}
	if sections == nil {
		return nil, fmt.Errorf("drop table %q: %w", name, ErrMissingDropTable)
	}
	if sections.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("drop table %q: drop_table must be a mapping", name)
	}

	for i := 0; i+1 < len(sections.Content); i += 2 {
		tierName, items := sections.Content[i].Value, sections.Content[i+1]
		entries, err := decodeTier(items)
		if err != nil {
			return nil, fmt.Errorf("drop table %q: %s: %w", name, tierName, err)
		}
		switch Tier(tierName) {
		case TierPreRoll:
			t.PreRoll = append(t.PreRoll, entries...)
		case TierMain:
			t.Main = append(t.Main, entries...)
		default:
			return nil, fmt.Errorf("drop table %q: %q: %w", name, tierName, ErrUnknownTier)
		}
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func decodeTier(items *yaml.Node) ([]Entry, error) {
	// An empty tier ("pre-roll:" with no items) decodes as null.
	if items.Kind == yaml.ScalarNode && items.ShortTag() == "!!null" {
		return nil, nil
	}
	if items.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("tier must be a mapping of item name to entry")
	}
	entries := make([]Entry, 0, len(items.Content)/2)
	for i := 0; i+1 < len(items.Content); i += 2 {
		itemName := items.Content[i].Value
		var raw yamlEntry
		if err := items.Content[i+1].Decode(&raw); err != nil {
			return nil, fmt.Errorf("item %q: %w", itemName, err)
		}
		if raw.Rate.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("item %q: missing rate: %w", itemName, ErrInvalidRate)
		}
		rate, err := ParseRate(raw.Rate.Value)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", itemName, err)
		}
		qty := 1.0
		if raw.Quantity != nil {
			qty = *raw.Quantity
		}
		entries = append(entries, Entry{
			Name:     itemName,
			Rate:     rate,
			Quantity: qty,
			BarType:  raw.BarType,
			Alchable: raw.AlchValue,
		})
	}
	return entries, nil
}

// LoadFile reads and validates a single table file. The table name is the
// file name without its extension.
//
// Postcondition: Returns a validated *Table or a non-nil error.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("could not find %s: %w", path, ErrTableNotFound)
		}
		return nil, fmt.Errorf("reading drop table %s: %w", path, err)
	}
	base := filepath.Base(path)
	return LoadFromBytes(strings.TrimSuffix(base, filepath.Ext(base)), data)
}

// LoadByName resolves name to <dir>/<name>.{yaml,yml,json} and loads it. A
// known extension already present on name is ignored.
//
// Postcondition: Returns a validated *Table, or an error wrapping
// ErrTableNotFound when no candidate file exists.
func LoadByName(dir, name string) (*Table, error) {
	name = trimTableExt(name)
	for _, ext := range tableExtensions {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, fmt.Errorf("could not find %s in %s: %w", name, dir, ErrTableNotFound)
}

// ListNames returns the names of all table files in dir, sorted.
//
// Precondition: dir must be a readable directory.
func ListNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading table dir %q: %w", dir, err)
	}
	seen := make(map[string]bool)
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !hasTableExt(entry.Name()) {
			continue
		}
		n := trimTableExt(entry.Name())
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

func hasTableExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range tableExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func trimTableExt(name string) string {
	if hasTableExt(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

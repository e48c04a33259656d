package wiki

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	highAlchPattern     = regexp.MustCompile(`(?i)\|\s*high\s*alch\s*=\s*([\d,]+)`)
	barsUsedPattern     = regexp.MustCompile(`(?i)\|\s*bars\s+(?:required|used)\s*=\s*([\d,]+)`)
	barsFallbackPattern = regexp.MustCompile(`(?i)\|\s*bars\s*=\s*([\d,]+)`)
)

// ExtractHighAlch finds an infobox "high alch" or "highalch" field.
func ExtractHighAlch(wikitext string) *int {
	return firstInt(highAlchPattern, wikitext)
}

// ExtractBarsUsed finds a "bars required" or "bars used" field, falling back
// to a bare "bars" field.
func ExtractBarsUsed(wikitext string) *int {
	if v := firstInt(barsUsedPattern, wikitext); v != nil {
		return v
	}
	return firstInt(barsFallbackPattern, wikitext)
}

func firstInt(re *regexp.Regexp, s string) *int {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return nil
	}
	return &n
}

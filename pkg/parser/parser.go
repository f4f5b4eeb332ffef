// Package parser extracts structured values from free chat text.
//
// Every function here is pure and deterministic.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Item is a parsed "<name> <quantity>[unit]" line.
type Item struct {
	Name     string
	Quantity float64
	// Unit is the optional unit token as typed (e.g. "g"), lower cased.
	Unit string
}

// itemLine anchors the numeric tail at the end of the line. The name group is lazy
// so the rightmost number wins; a leading '-' is kept with the number so that
// negative quantities are rejected instead of leaking into the name.
var itemLine = regexp.MustCompile(`^(.*?)\s*(-?\d+(?:[.,]\d*)?)\s*(\p{L}+)?\s*$`)

// ParseItemLine splits a line like "pollo cocido 180g" into name and quantity.
// It reports false when there is no numeric tail, the name has no letter or
// digit, or the quantity is not positive.
func ParseItemLine(text string) (Item, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Item{}, false
	}

	m := itemLine.FindStringSubmatch(text)
	if m == nil {
		return Item{}, false
	}

	name := CollapseSpaces(m[1])
	// "algo - 5g" is a negative quantity typed with a space after the sign.
	if strings.HasSuffix(name, "-") {
		return Item{}, false
	}
	name = strings.TrimSpace(strings.Trim(name, nameSeparators))
	if !hasAlnum(name) {
		return Item{}, false
	}

	qty, ok := ParseDecimal(m[2])
	if !ok || qty <= 0 {
		return Item{}, false
	}

	return Item{Name: name, Quantity: qty, Unit: strings.ToLower(m[3])}, true
}

// nameSeparators are dropped from both ends of a name ("yogur: 100" names "yogur").
const nameSeparators = "+:=,;"

func hasAlnum(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

// FormatItemLine renders an Item back into a line that ParseItemLine accepts.
func FormatItemLine(it Item) string {
	unit := it.Unit
	if unit == "" {
		unit = "g"
	}
	return it.Name + " " + FormatQuantity(it.Quantity) + unit
}

// FormatQuantity prints a quantity with the minimal number of decimals.
func FormatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

var decimal = regexp.MustCompile(`^-?\d+(?:[.,]\d*)?$`)

// ParseDecimal parses a plain decimal number accepting ',' as decimal point.
// Exponents, hex and NaN/Inf spellings are rejected.
func ParseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !decimal.MatchString(s) {
		return 0, false
	}
	s = strings.Replace(s, ",", ".", 1)
	s = strings.TrimSuffix(s, ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseInt parses a base-10 integer surrounded by optional whitespace.
func ParseInt(s string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return v, true
}

// CollapseSpaces trims s and replaces every whitespace run with a single space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Normalize canonicalizes a token for vocabulary lookups: whitespace is collapsed,
// '_' and '-' become spaces, case is folded and diacritics are removed.
func Normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return ' '
		}
		return r
	}, s)
	s = CollapseSpaces(strings.ToLower(s))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeCommand extracts a candidate command token without the '-'/'_' folding,
// so "/start@my_bot" keeps its shape. Slash commands may carry arguments
// ("/start payload"); bare words only count when they are the whole message.
func NormalizeCommand(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	switch {
	case len(fields) == 0:
		return ""
	case strings.HasPrefix(fields[0], "/"):
		return fields[0]
	case len(fields) == 1:
		return fields[0]
	}
	return ""
}

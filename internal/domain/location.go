package domain

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// Location identifies a physical position in the warehouse
type Location struct {
	Aisle    string `bson:"aisle" json:"aisle"`
	Bay      string `bson:"bay" json:"bay"`
	Level    string `bson:"level" json:"level"`
	Position string `bson:"position" json:"position"`
}

// NewLocation creates a Location from its components
func NewLocation(aisle, bay, level, position string) Location {
	return Location{Aisle: aisle, Bay: bay, Level: level, Position: position}
}

// LocationFromCode parses a dash-separated location code such as "A1-03-2-01".
// At least aisle, bay and level are required; the position segment is optional.
func LocationFromCode(code string) (Location, error) {
	parts := strings.Split(code, "-")
	if len(parts) < 3 {
		return Location{}, fmt.Errorf("invalid location code: %s", code)
	}

	loc := Location{
		Aisle: parts[0],
		Bay:   parts[1],
		Level: parts[2],
	}
	if len(parts) > 3 {
		loc.Position = parts[3]
	}
	return loc, nil
}

// Code returns the dash-separated location code
func (l Location) Code() string {
	if l.Position == "" {
		return fmt.Sprintf("%s-%s-%s", l.Aisle, l.Bay, l.Level)
	}
	return fmt.Sprintf("%s-%s-%s-%s", l.Aisle, l.Bay, l.Level, l.Position)
}

// IsZero reports whether the location is unset
func (l Location) IsZero() bool {
	return l.Aisle == "" && l.Bay == "" && l.Level == "" && l.Position == ""
}

// Distance estimates the travel cost between two locations. Aisle differences
// dominate, then bays, then levels. Returns an error when bay or level are not
// numeric; callers treat that as proximity unknown.
func (l Location) Distance(other Location) (float64, error) {
	aisleDiff := aisleDistance(l.Aisle, other.Aisle)

	bayA, err := parseNumeric(l.Bay)
	if err != nil {
		return 0, fmt.Errorf("invalid bay %q: %w", l.Bay, err)
	}
	bayB, err := parseNumeric(other.Bay)
	if err != nil {
		return 0, fmt.Errorf("invalid bay %q: %w", other.Bay, err)
	}

	levelA, err := parseNumeric(l.Level)
	if err != nil {
		return 0, fmt.Errorf("invalid level %q: %w", l.Level, err)
	}
	levelB, err := parseNumeric(other.Level)
	if err != nil {
		return 0, fmt.Errorf("invalid level %q: %w", other.Level, err)
	}

	return aisleDiff*100 + math.Abs(bayA-bayB)*10 + math.Abs(levelA-levelB), nil
}

// aisleDistance compares aisles numerically when both contain digits,
// falling back to lexicographic distance otherwise.
func aisleDistance(a, b string) float64 {
	numA, okA := extractDigits(a)
	numB, okB := extractDigits(b)
	if okA && okB {
		return math.Abs(numA - numB)
	}
	if a == b {
		return 0
	}
	return 1
}

func extractDigits(s string) (float64, bool) {
	var sb strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return 0, false
	}
	var n float64
	for _, r := range sb.String() {
		n = n*10 + float64(r-'0')
	}
	return n, true
}

func parseNumeric(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty segment")
	}
	var n float64
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return 0, fmt.Errorf("non-numeric segment")
		}
		n = n*10 + float64(r-'0')
	}
	return n, nil
}

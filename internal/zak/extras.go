package zak

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ryabov/medconv/internal/model"
)

// Pattern scans over the whole normalized text. These quantities appear in
// free-form phrasing outside the tabular and conclusion regions, so they
// are recovered by regular expressions rather than line parsers.
var (
	asymCoefRe = regexp.MustCompile(
		`(?i)коэффициент\s+асимметрии[^\d%]*?(\d+(?:[.,]\d+)?)\s*%(?:\s*\(([^)]*)\))?`)

	dominanceRe = regexp.MustCompile(
		`(?i)([^\n(]*асимметри[^\n(]*)\(\s*([SsDdСсДд])\s*>\s*([SsDdСсДд])\s*\)`)

	heartRateRe = regexp.MustCompile(
		`(?i)(?:ЧСС|частота\s+сердечных\s+сокращений)\D*?(\d+(?:[.,]\d+)?)` +
			`(?:[^\n(]*\(\s*(\d+(?:[.,]\d+)?)\s*-\s*(\d+(?:[.,]\d+)?)\s*\))?`)
)

// parseExtras scans the normalized report text for the asymmetry
// coefficient, the side-dominance phrase and the heart rate. Every field
// is independent; a miss leaves its pointers nil.
func parseExtras(text string) model.Extras {
	var e model.Extras

	if m := asymCoefRe.FindStringSubmatch(text); m != nil {
		if v, err := parseNumber(m[1]); err == nil {
			e.AsymmetryCoefficient = &v
		}
		if note := strings.TrimSpace(m[2]); note != "" {
			e.AsymmetryNote = &note
		}
	}

	if m := dominanceRe.FindStringSubmatch(text); m != nil {
		desc := strings.TrimSpace(m[1])
		if desc != "" {
			e.AsymmetryDescription = &desc
		}
		first := latinSideCode(m[2])
		second := latinSideCode(m[3])
		code := first + ">" + second
		e.DominanceCode = &code
		side := "Right"
		if first == "S" {
			side = "Left"
		}
		e.DominanceSide = &side
	}

	if m := heartRateRe.FindStringSubmatch(text); m != nil {
		if v, err := parseNumber(m[1]); err == nil {
			e.HeartRate = &v
		}
		if m[2] != "" && m[3] != "" {
			lo, errLo := parseNumber(m[2])
			hi, errHi := parseNumber(m[3])
			if errLo == nil && errHi == nil {
				e.HeartRateLow = &lo
				e.HeartRateHigh = &hi
			}
		}
	}

	return e
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

// latinSideCode maps the Cyrillic look-alike letters С and Д (and their
// lowercase forms) onto the Latin S/D side codes used by the reports.
func latinSideCode(s string) string {
	switch strings.ToUpper(s) {
	case "S", "С":
		return "S"
	default:
		return "D"
	}
}

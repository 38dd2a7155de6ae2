package zak

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/ryabov/medconv/internal/model"
)

// Section-name substrings the report heading carries: the transliterated
// rheography/rheovasography domain markers.
var sectionMarkers = []string{"РЕО", "РВГ"}

// Fixed Cyrillic patient header labels and block markers.
const (
	labelName   = "Фамилия"
	labelAge    = "Возраст"
	labelSex    = "Пол"
	labelHeight = "Рост"
	labelWeight = "Вес"
	labelDate   = "Дата"
	areaSuffix  = "область"
	conclMarker = "ЗАКЛЮЧЕНИЕ"
	resumeWord  = "РЕЗЮМЕ"
)

// columnSeparator is the broken bar the measurement table is drawn with.
const columnSeparator = "¦"

var (
	// Leading signed decimal with comma or period, optional unit suffix.
	valueUnitRe = regexp.MustCompile(`^([+-]?\d+(?:[.,]\d+)?)\s*(.*)$`)

	// day.month.year with 2- or 4-digit year, "." or "/" separators.
	dateRe = regexp.MustCompile(`(\d{1,2})[./](\d{1,2})[./](\d{2,4})`)
)

// Options carries the caller-tunable parameters of a ZAK decode.
type Options struct {
	// Decoder is the single-byte codepage decoder for the report bytes.
	// Defaults to Windows-1251, where byte 0xA6 is the broken bar the
	// table layout depends on.
	Decoder *encoding.Decoder
}

func (o Options) withDefaults() Options {
	if o.Decoder == nil {
		o.Decoder = charmap.Windows1251.NewDecoder()
	}
	return o
}

// Decode recovers a structured record from a raw ZAK report. Like the PNP
// decoder it never fails: any piece of the report that cannot be located
// is simply absent from the record.
func Decode(raw []byte, filename string, opts Options) *model.ZakRecord {
	opts = opts.withDefaults()
	text := Normalize(raw, opts.Decoder)
	lines := strings.Split(text, "\n")

	section, area := parseSection(lines)
	return &model.ZakRecord{
		File:         filename,
		Section:      section,
		Area:         area,
		Patient:      parsePatient(lines),
		Measurements: parseMeasurements(lines),
		Conclusion:   parseConclusion(lines),
		Extras:       parseExtras(text),
	}
}

// parseSection finds the report section heading and, on the line after it,
// the examined-area label.
func parseSection(lines []string) (string, *string) {
	for i, line := range lines {
		sq := squash(line)
		matched := false
		for _, marker := range sectionMarkers {
			if strings.Contains(sq, marker) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		section := strings.TrimSpace(CollapseAcronyms(line))
		if i+1 < len(lines) {
			if area, ok := areaLabel(lines[i+1]); ok {
				return section, &area
			}
		}
		return section, nil
	}
	return "", nil
}

// areaLabel reports whether a line looks like the examined-area label: a
// short parenthetical or "область"-suffixed line that is not a decorative
// ruler drawn with asterisks, dashes or bars.
func areaLabel(line string) (string, bool) {
	t := strings.TrimSpace(line)
	if t == "" || len([]rune(t)) >= 100 || isDecorative(t) {
		return "", false
	}
	lower := strings.ToLower(t)
	if strings.ContainsAny(t, "()") || strings.Contains(lower, areaSuffix) {
		return t, true
	}
	return "", false
}

// isDecorative reports whether a non-empty line is purely a typographic
// ruler.
func isDecorative(s string) bool {
	seen := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		if !strings.ContainsRune("*-=_|¦", r) {
			return false
		}
		seen = true
	}
	return seen
}

// parsePatient scans lines independently for the fixed header labels and
// extracts each colon-delimited value. Every field is optional.
func parsePatient(lines []string) model.PatientData {
	var p model.PatientData
	for _, line := range lines {
		colon := strings.Index(line, ":")
		if colon < 0 {
			continue
		}
		key := squash(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		if value == "" {
			continue
		}
		switch {
		case p.Name == nil && strings.Contains(key, labelName):
			v := value
			p.Name = &v
		case p.Age == nil && strings.Contains(key, labelAge):
			if n, err := strconv.Atoi(leadingDigits(value)); err == nil {
				p.Age = &n
			}
		case p.Sex == nil && strings.Contains(key, labelSex):
			v := value
			p.Sex = &v
		case p.Height == nil && strings.Contains(key, labelHeight):
			p.Height = leadingNumber(value)
		case p.Weight == nil && strings.Contains(key, labelWeight):
			p.Weight = leadingNumber(value)
		case p.Date == nil && strings.Contains(key, labelDate):
			p.Date, p.Comment = parseDate(value)
		}
	}
	return p
}

// leadingDigits returns the leading decimal digit run of s.
func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}

// leadingNumber parses a leading signed decimal (comma or period), or nil.
func leadingNumber(s string) *float64 {
	m := valueUnitRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil
	}
	v, err := parseNumber(m[1])
	if err != nil {
		return nil
	}
	return &v
}

// parseDate parses the header date as day/month/year with a 2000+ rule for
// 2-digit years. Trailing non-numeric text is kept as a comment.
func parseDate(value string) (*time.Time, *string) {
	loc := dateRe.FindStringSubmatchIndex(value)
	if loc == nil {
		return nil, nil
	}
	m := dateRe.FindStringSubmatch(value)
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if year < 100 {
		year += 2000
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)

	var comment *string
	if rest := strings.TrimSpace(value[loc[1]:]); rest != "" {
		comment = &rest
	}
	return &date, comment
}

// parseMeasurements extracts the tabular measurement region: every line
// drawn with at least three broken-bar separators.
func parseMeasurements(lines []string) []model.Measurement {
	var out []model.Measurement
	for _, line := range lines {
		if strings.Count(line, columnSeparator) < 3 {
			continue
		}
		var cells []string
		for _, cell := range strings.Split(line, columnSeparator) {
			if t := strings.TrimSpace(cell); t != "" {
				cells = append(cells, t)
			}
		}
		if len(cells) < 2 {
			continue
		}
		key := strings.TrimSpace(CollapseAcronyms(cells[0]))
		if isHeaderCell(key) {
			continue
		}
		values := cells[1:]
		if len(values) == 1 {
			out = appendMeasurement(out, key, model.SideNone, values[0])
			continue
		}
		out = appendMeasurement(out, key, model.SideLeft, values[len(values)-2])
		out = appendMeasurement(out, key, model.SideRight, values[len(values)-1])
	}
	return out
}

// isHeaderCell reports whether a first cell is a table header or summary
// marker rather than a measurement label.
func isHeaderCell(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "показател") || lower == "норма"
}

// appendMeasurement emits one measurement cell, but only when the cell
// carries at least one digit. Numeric text that does not parse as a
// leading number still produces a record with a nil value and the raw
// text preserved.
func appendMeasurement(out []model.Measurement, key, side, cell string) []model.Measurement {
	if !strings.ContainsFunc(cell, unicode.IsDigit) {
		return out
	}
	meas := model.Measurement{Key: key, Side: side, Raw: cell}
	if m := valueUnitRe.FindStringSubmatch(cell); m != nil {
		if v, err := parseNumber(m[1]); err == nil {
			meas.Value = &v
			meas.Unit = strings.TrimSpace(m[2])
		}
	}
	return append(out, meas)
}

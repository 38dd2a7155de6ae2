package zak

import (
	"regexp"
	"strings"

	"github.com/ryabov/medconv/internal/model"
)

var (
	// "1. <text>" opens a new base topic.
	numberedRe = regexp.MustCompile(`^\d+\.\s*(.*)$`)

	// ") : (" and its spacing variants split a two-column annotation.
	annBoundaryRe = regexp.MustCompile(`\)\s*:\s*\(`)

	// Trailing deviation percentage inside an annotation half.
	percentRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*%`)
)

// parseConclusion locates the conclusion heading and parses the block of
// text after it into structured items.
func parseConclusion(lines []string) []model.ConclusionItem {
	start := -1
	for i, line := range lines {
		sq := squash(line)
		if strings.Contains(sq, conclMarker) || strings.Contains(sq, resumeWord) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil
	}

	block := lines[start:]
	for i, line := range block {
		if strings.HasPrefix(strings.TrimSpace(line), resumeWord+":") {
			block = block[:i]
			break
		}
	}
	return parseConclusionBlock(block)
}

// conclusionParser carries the block parse state: the active base topic
// and the optional two-column layout.
type conclusionParser struct {
	items     []model.ConclusionItem
	baseLabel string
	leftCol   string
	rightCol  string
	twoCol    bool
	lastEmit  int // Number of items emitted by the previous line
}

func parseConclusionBlock(block []string) []model.ConclusionItem {
	p := &conclusionParser{}
	i := 0
	for i < len(block) {
		line := strings.TrimSpace(block[i])
		i++
		if line == "" {
			continue
		}

		if m := numberedRe.FindStringSubmatch(line); m != nil {
			p.numberedItem(m[1])
		} else if p.columnHeader(line) {
			continue
		} else if p.baseLabel != "" && strings.Contains(line, ":") {
			p.subItem(line)
		} else {
			continue
		}

		// An immediately following line with a parenthesis or colon is
		// this item's deviation annotation, unless it opens a new topic.
		if p.lastEmit > 0 && i < len(block) {
			next := strings.TrimSpace(block[i])
			if next != "" && !numberedRe.MatchString(next) &&
				strings.ContainsAny(next, "(:") {
				p.annotate(next)
				i++
			}
		}
	}
	return p.items
}

// columnHeader consumes at most one "Left-label : Right-label" line. Both
// labels must begin with the left/right marker words.
func (p *conclusionParser) columnHeader(line string) bool {
	if p.twoCol {
		return false
	}
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return false
	}
	left := strings.TrimSpace(parts[0])
	right := strings.TrimSpace(parts[1])
	if !hasPrefixFold(left, "лев") || !hasPrefixFold(right, "прав") { // лев / прав
		return false
	}
	p.leftCol, p.rightCol, p.twoCol = left, right, true
	p.lastEmit = 0
	return true
}

func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(s), prefix)
}

// numberedItem starts a new base topic from the body of a numbered line.
func (p *conclusionParser) numberedItem(body string) {
	label, values := splitTopic(body, p.twoCol)
	p.baseLabel = label
	p.emit(label, values)
}

// subItem handles an unnumbered colon line while a base topic is active.
// Blank or ruler-only pre-colon text reuses the base label alone.
func (p *conclusionParser) subItem(line string) {
	label, values := splitTopic(line, p.twoCol)
	if isRulerText(label) {
		label = p.baseLabel
	} else {
		label = p.baseLabel + " " + label
	}
	p.emit(label, values)
}

// splitTopic splits an item body on its colons: the text before the first
// colon is the label; one value follows it, or two in two-column layouts.
func splitTopic(body string, twoCol bool) (string, []string) {
	n := 2
	if twoCol {
		n = 3
	}
	parts := strings.SplitN(body, ":", n)
	label := strings.TrimSpace(parts[0])
	var values []string
	for _, v := range parts[1:] {
		values = append(values, strings.TrimSpace(v))
	}
	return label, values
}

// isRulerText reports whether the pre-colon text is blank or only
// underscores/dashes.
func isRulerText(s string) bool {
	for _, r := range s {
		if r != '_' && r != '-' && r != ' ' {
			return false
		}
	}
	return true
}

// emit appends one item, or a left/right pair when the two-column layout
// is active and both values are present. A value opening with "(" is a
// pure annotation, not a value: it is dropped from the slot and parsed
// for a deviation instead.
func (p *conclusionParser) emit(label string, values []string) {
	if p.twoCol && len(values) >= 2 {
		left := model.ConclusionItem{Key: label + " (" + p.leftCol + ")"}
		right := model.ConclusionItem{Key: label + " (" + p.rightCol + ")"}
		setItemValue(&left, values[0])
		setItemValue(&right, values[1])
		p.items = append(p.items, left, right)
		p.lastEmit = 2
		return
	}
	item := model.ConclusionItem{Key: label}
	if len(values) > 0 {
		setItemValue(&item, values[0])
	}
	p.items = append(p.items, item)
	p.lastEmit = 1
}

func setItemValue(item *model.ConclusionItem, value string) {
	if strings.HasPrefix(value, "(") {
		applyDeviation(item, value)
		return
	}
	item.Value = value
}

// annotate consumes an annotation line for the previously emitted item or
// pair. A pair splits the line into halves on a ") : (" boundary, or a
// bare colon when that pattern is absent.
func (p *conclusionParser) annotate(line string) {
	n := len(p.items)
	if p.lastEmit == 2 && n >= 2 {
		left, right := splitAnnotation(line)
		applyDeviation(&p.items[n-2], left)
		applyDeviation(&p.items[n-1], right)
		return
	}
	if n >= 1 {
		applyDeviation(&p.items[n-1], line)
	}
}

func splitAnnotation(line string) (string, string) {
	if loc := annBoundaryRe.FindStringIndex(line); loc != nil {
		return line[:loc[0]] + ")", "(" + line[loc[1]:]
	}
	if colon := strings.Index(line, ":"); colon >= 0 {
		return line[:colon], line[colon+1:]
	}
	return line, ""
}

// applyDeviation parses one annotation half: an optional percentage and a
// больше/меньше deviation direction, with the cleaned text kept as the
// item's note.
func applyDeviation(item *model.ConclusionItem, half string) {
	note := strings.TrimSpace(half)
	note = strings.TrimPrefix(note, "(")
	note = strings.TrimSuffix(note, ")")
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	item.Note = &note

	if m := percentRe.FindStringSubmatch(note); m != nil {
		if v, err := parseNumber(m[1]); err == nil {
			item.DeltaPercent = &v
		}
	}
	if strings.Contains(note, model.DeltaMore) {
		dir := model.DeltaMore
		item.DeltaDirection = &dir
	} else if strings.Contains(note, model.DeltaLess) {
		dir := model.DeltaLess
		item.DeltaDirection = &dir
	}
}

package pnp

import (
	"encoding/binary"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/encoding"

	"github.com/ryabov/medconv/internal/model"
)

// PNP files announce block offsets nowhere, so structures are located by
// brute-force byte-offset scans (every offset, not just aligned ones) with
// per-offset plausibility predicates. scanFirst is the shared primitive;
// the environment scan adds a ranked-candidate reducer on top of it.

// scanFirst returns the first offset in [0, limit) where the window-sized
// slice starting at that offset satisfies accept, or -1. The scan never
// reads past the end of buf.
func scanFirst(buf []byte, window, limit int, accept func(win []byte) bool) int {
	if limit > len(buf) {
		limit = len(buf)
	}
	for off := 0; off+window <= limit; off++ {
		if accept(buf[off : off+window]) {
			return off
		}
	}
	return -1
}

// demographicsScanLimit bounds the vitals scan to the header region.
const demographicsScanLimit = 4096

// Plausibility ranges for the 9-byte vitals window.
const (
	minAge, maxAge       = 5, 120
	minWeight, maxWeight = 20, 200
	minHeight, maxHeight = 1.2, 2.5
)

// scanDemographics locates the patient vitals structure: a 9-byte window of
// {age u16le, weight u16le, height f32le, sex byte}. The first offset where
// all fields are plausible wins. When nothing qualifies the zero value is
// returned - files may use encodings outside this model, which is a valid
// outcome, not an error.
func scanDemographics(buf []byte) model.Demographics {
	var demo model.Demographics
	off := scanFirst(buf, 9, demographicsScanLimit, func(win []byte) bool {
		age := binary.LittleEndian.Uint16(win[0:2])
		weight := binary.LittleEndian.Uint16(win[2:4])
		height := float64(math.Float32frombits(binary.LittleEndian.Uint32(win[4:8])))
		sex := win[8]
		return age >= minAge && age <= maxAge &&
			weight >= minWeight && weight <= maxWeight &&
			height >= minHeight && height <= maxHeight &&
			sex <= 1
	})
	if off < 0 {
		return demo
	}
	win := buf[off : off+9]
	demo.Age = int(binary.LittleEndian.Uint16(win[0:2]))
	demo.Weight = int(binary.LittleEndian.Uint16(win[2:4]))
	height := float64(math.Float32frombits(binary.LittleEndian.Uint32(win[4:8])))
	demo.Height = math.Round(height*1000) / 1000
	if win[8] == 1 {
		demo.Sex = model.Female
	}
	return demo
}

// headerTextLimit bounds the name/note decode to the start of the file.
const headerTextLimit = 256

// scanHeaderText recovers the patient name and note from the file header.
// The raw bytes are cut at the first control separator (NUL or the ASCII
// group separators 0x1D-0x1F), stripped of remaining control bytes, decoded
// with the configured codepage and split on the first '$'. The note's last
// character is a trailing filler byte the vendor always emits; it is
// dropped unconditionally.
func scanHeaderText(buf []byte, dec *encoding.Decoder) (name, note string) {
	limit := headerTextLimit
	if limit > len(buf) {
		limit = len(buf)
	}
	raw := buf[:limit]

	cut := len(raw)
	for i, b := range raw {
		if b == 0x00 || b == 0x1D || b == 0x1E || b == 0x1F {
			cut = i
			break
		}
	}
	cleaned := make([]byte, 0, cut)
	for _, b := range raw[:cut] {
		if b >= 0x20 {
			cleaned = append(cleaned, b)
		}
	}

	text := decodeBytes(cleaned, dec)
	if sep := strings.IndexByte(text, '$'); sep >= 0 {
		name = text[:sep]
		note = text[sep+1:]
		if r := []rune(note); len(r) > 0 {
			note = string(r[:len(r)-1])
		}
	} else {
		name = text
	}
	return filterName(name), strings.TrimSpace(note)
}

// filterName keeps letters, spaces, hyphens, periods and apostrophes only.
func filterName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || r == ' ' || r == '-' || r == '.' || r == '\'' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// decodeBytes decodes data with the given single-byte codepage decoder,
// falling back to the raw bytes when decoding fails or no decoder is set.
func decodeBytes(data []byte, dec *encoding.Decoder) string {
	if dec == nil {
		return string(data)
	}
	out, err := dec.Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

// environment is a located ambient {temperature, humidity, pressure}
// triplet together with the interpretation hypothesis that produced it.
type environment struct {
	temperature float64 // Degrees C
	humidity    float64 // Percent
	pressure    float64 // mmHg
	hypothesis  int     // 1 = raw integers, 2 = tenths-scaled
}

// envCandidate is one plausible triplet found during the scan.
type envCandidate struct {
	environment
	offset int
	dist   int // Distance to the nearest anchor tag
}

// better reports whether c should be preferred over other under the
// explicit tie-break ordering: raw-integer hypothesis first, then proximity
// to the nearest structural tag, then lowest byte offset.
func (c envCandidate) better(other envCandidate) bool {
	if c.hypothesis != other.hypothesis {
		return c.hypothesis < other.hypothesis
	}
	if c.dist != other.dist {
		return c.dist < other.dist
	}
	return c.offset < other.offset
}

// scanEnvironment locates the ambient triplet by scanning every byte offset
// for a 6-byte window of three u16le values under two hypotheses:
//
//	H1: raw integer degrees/percent/mmHg
//	H2: tenths-scaled temperature and humidity, raw pressure
//
// All plausible candidates are ranked and the best one is returned. The
// triplet sits physically adjacent to a ventilation or probe block in the
// vendor layout, so anchor-tag distance is the main discriminator between
// byte patterns that happen to look plausible.
func scanEnvironment(buf []byte) (environment, bool) {
	anchors := anchorPositions(buf)
	var best envCandidate
	found := false

	for off := 0; off+6 <= len(buf); off++ {
		t := binary.LittleEndian.Uint16(buf[off : off+2])
		h := binary.LittleEndian.Uint16(buf[off+2 : off+4])
		p := binary.LittleEndian.Uint16(buf[off+4 : off+6])

		var env environment
		switch {
		case t >= 10 && t <= 45 && h <= 100 && p >= 650 && p <= 820:
			env = environment{float64(t), float64(h), float64(p), 1}
		case t >= 100 && t <= 450 && h <= 1000 && p >= 650 && p <= 820:
			env = environment{float64(t) / 10, float64(h) / 10, float64(p), 2}
		default:
			continue
		}

		cand := envCandidate{environment: env, offset: off, dist: anchorDistance(anchors, off)}
		if !found || cand.better(best) {
			best = cand
			found = true
		}
	}
	return best.environment, found
}

// anchorDistance returns the distance from off to the nearest anchor, or
// MaxInt when no anchor tag is present in the buffer.
func anchorDistance(anchors []int, off int) int {
	dist := math.MaxInt
	for _, a := range anchors {
		d := a - off
		if d < 0 {
			d = -d
		}
		if d < dist {
			dist = d
		}
	}
	return dist
}

// resolveBtps runs the environment scan and converts the winning triplet
// into a BtpsInfo. A missing triplet, or a winning pressure at or below
// 47 mmHg, reports not-found with the caller-supplied fallback factor.
// Integer-hypothesis winners use the legacy table path; tenths-scaled
// winners carry a fractional temperature and use the continuous formula.
func resolveBtps(buf []byte, fallback float64) model.BtpsInfo {
	env, ok := scanEnvironment(buf)
	if !ok || env.pressure <= 47.0 {
		return model.BtpsInfo{Factor: fallback}
	}
	var factor float64
	if env.hypothesis == 1 {
		factor = BtpsFactor(env.temperature, env.pressure)
	} else {
		factor = BtpsFactorContinuous(env.temperature, env.pressure)
	}
	t, h, p := env.temperature, env.humidity, env.pressure
	return model.BtpsInfo{
		FoundInFile: true,
		Factor:      factor,
		Temperature: &t,
		Humidity:    &h,
		Pressure:    &p,
	}
}

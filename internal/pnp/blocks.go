package pnp

import (
	"encoding/binary"
	"math"

	"github.com/ryabov/medconv/internal/model"
)

// Fixed-layout payload sizes, in bytes.
const (
	zhelPayloadSize  = 20 // 5 x f32le
	modFloatsSize    = 12 // 3 x f32le before the volume-time curve
	probePayloadSize = 48 // 12 x f32le
)

// milli converts the instrument's stored milliliter/millisecond-scale
// values to liters and L/s.
const milli = 1e-3

// readFloats reads n little-endian 32-bit floats starting at off. The
// bounds check happens here, before any byte is touched; a located tag
// whose payload would run past the buffer is treated like a missing tag.
func readFloats(buf []byte, off, n int) ([]float64, bool) {
	if off < 0 || off+4*n > len(buf) {
		return nil, false
	}
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(buf[off+4*i : off+4*i+4])
		vals[i] = float64(math.Float32frombits(bits))
	}
	return vals, true
}

// readCurve reads the run of little-endian 16-bit signed integers in
// buf[from:to].
func readCurve(buf []byte, from, to int) []int16 {
	if to > len(buf) {
		to = len(buf)
	}
	if from < 0 || from >= to {
		return nil
	}
	n := (to - from) / 2
	curve := make([]int16, n)
	for i := 0; i < n; i++ {
		curve[i] = int16(binary.LittleEndian.Uint16(buf[from+2*i : from+2*i+2]))
	}
	return curve
}

// extractZhel reads the resting vital capacity block: 5 floats scaled to
// liters. The tidal/vital percentage divides by the vital capacity; a zero
// denominator yields NaN, never a crash.
func extractZhel(buf []byte) *model.ZhelBlock {
	idx := findTag(buf, TagZhel)
	if idx < 0 {
		return nil
	}
	vals, ok := readFloats(buf, idx+len(TagZhel), 5)
	if !ok {
		return nil
	}
	for i := range vals {
		vals[i] *= milli
	}
	percent := math.NaN()
	if vals[0] != 0 {
		percent = 100 * vals[2] / vals[0]
	}
	return &model.ZhelBlock{
		VitalCapacity:         vals[0],
		InspiratoryReserve:    vals[1],
		TidalVolume:           vals[2],
		ExpiratoryReserve:     vals[3],
		InspiratoryCapacity:   vals[4],
		TidalOverVitalPercent: percent,
	}
}

// extractMod reads the minute ventilation block: 3 floats followed by the
// raw volume-time curve, which runs until whichever other tag occurs next
// in the buffer (or the end of the buffer). o2PerLiter is the O2 extraction
// constant in mL per liter ventilated.
func extractMod(buf []byte, o2PerLiter float64) *model.ModBlock {
	idx := findTag(buf, TagMod)
	if idx < 0 {
		return nil
	}
	payload := idx + len(TagMod)
	vals, ok := readFloats(buf, payload, 3)
	if !ok {
		return nil
	}

	curveStart := payload + modFloatsSize
	curveEnd := nextTagAfter(buf, curveStart, TagMod)
	if curveEnd < 0 {
		curveEnd = len(buf)
	}
	curve := readCurve(buf, curveStart, curveEnd)

	ratio := math.NaN()
	if len(curve) > 2 && curve[1] != 0 {
		ratio = float64(curve[0]) / float64(curve[1])
	}

	ventilation := vals[1] * milli
	return &model.ModBlock{
		RespiratoryRate:       vals[0],
		MinuteVentilation:     ventilation,
		TidalVolume:           vals[2] * milli,
		OxygenUptake:          ventilation * o2PerLiter,
		VentilatoryEquivalent: 1000 / o2PerLiter,
		ExpInspTimeRatio:      ratio,
		VolumeCurve:           curve,
	}
}

// extractMvl reads the maximum voluntary ventilation block. The breathing
// reserve and MVL/MOD ratio need a resolved minute-ventilation block with
// positive ventilation; otherwise they are NaN.
func extractMvl(buf []byte, mod *model.ModBlock) *model.MvlBlock {
	idx := findTag(buf, TagMvl)
	if idx < 0 {
		return nil
	}
	vals, ok := readFloats(buf, idx+len(TagMvl), 3)
	if !ok {
		return nil
	}

	maxVentilation := vals[1] * milli
	reserve := math.NaN()
	ratio := math.NaN()
	if mod != nil && mod.MinuteVentilation > 0 {
		if maxVentilation > 0 {
			reserve = 100 * (1 - mod.MinuteVentilation/maxVentilation)
		}
		ratio = maxVentilation / mod.MinuteVentilation
	}
	return &model.MvlBlock{
		RespiratoryRate:         vals[0],
		MaxVentilation:          maxVentilation,
		TidalVolume:             vals[2] * milli,
		BreathingReservePercent: reserve,
		MvlOverMod:              ratio,
	}
}

// Probe payload layout: 12 floats, four of them reserved by the vendor.
const (
	probeFvc         = 0
	probeFev1        = 1
	probeInspCap     = 2
	probePeakFlow    = 3
	probeFef25       = 4
	probeFef50       = 5
	probeFef75       = 6
	probeElapsedTime = 7
	// Indices 8-11 are unused in the vendor structure.
)

// extractProbes reads the forced vital capacity probes in fixed order
// (probe 1, 2, 3). Each located tag must have the full 48-byte payload
// behind it; a truncated payload skips the probe like a missing tag.
// Volume fields get BTPS-corrected display variants; flow and time fields
// are emitted at their literal scale only.
func extractProbes(buf []byte, btpsFactor float64) []model.FvcProbe {
	tags := [][]byte{TagProbe1, TagProbe2, TagProbe3}
	var probes []model.FvcProbe
	for i, tag := range tags {
		idx := findTag(buf, tag)
		if idx < 0 {
			continue
		}
		vals, ok := readFloats(buf, idx+len(tag), 12)
		if !ok {
			continue
		}
		fvc := vals[probeFvc] * milli
		fev1 := vals[probeFev1] * milli
		inspCap := vals[probeInspCap] * milli
		probes = append(probes, model.FvcProbe{
			Index:                 i + 1,
			Fvc:                   fvc,
			Fev1:                  fev1,
			InspiratoryCapacity:   inspCap,
			FvcUI:                 fvc * btpsFactor,
			Fev1UI:                fev1 * btpsFactor,
			InspiratoryCapacityUI: inspCap * btpsFactor,
			PeakFlow:              vals[probePeakFlow] * milli,
			Fef25:                 vals[probeFef25] * milli,
			Fef50:                 vals[probeFef50] * milli,
			Fef75:                 vals[probeFef75] * milli,
			ElapsedTime:           vals[probeElapsedTime] * 0.01,
		})
	}
	return probes
}

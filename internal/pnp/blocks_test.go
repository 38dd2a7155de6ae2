package pnp

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/ryabov/medconv/internal/model"
)

// appendFloats appends n little-endian 32-bit floats to buf
func appendFloats(buf []byte, vals ...float32) []byte {
	for _, v := range vals {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		buf = append(buf, b[:]...)
	}
	return buf
}

// appendSamples appends little-endian 16-bit signed samples to buf
func appendSamples(buf []byte, vals ...int16) []byte {
	for _, v := range vals {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v))
		buf = append(buf, b[:]...)
	}
	return buf
}

// TestExtractZhel tests the resting vital capacity block
func TestExtractZhel(t *testing.T) {
	buf := append([]byte{0, 0, 0, 0}, TagZhel...)
	buf = appendFloats(buf, 4500, 1500, 600, 1800, 2100)

	zhel := extractZhel(buf)
	if zhel == nil {
		t.Fatal("expected a ZhEL block")
	}
	if zhel.VitalCapacity != 4.5 {
		t.Errorf("VitalCapacity = %v, want 4.5", zhel.VitalCapacity)
	}
	if zhel.TidalVolume != 0.6 {
		t.Errorf("TidalVolume = %v, want 0.6", zhel.TidalVolume)
	}
	want := 100 * 0.6 / 4.5
	if math.Abs(zhel.TidalOverVitalPercent-want) > 1e-9 {
		t.Errorf("TidalOverVitalPercent = %v, want %v", zhel.TidalOverVitalPercent, want)
	}
}

// TestExtractZhelZeroCapacity tests the division guard
func TestExtractZhelZeroCapacity(t *testing.T) {
	buf := append([]byte{}, TagZhel...)
	buf = appendFloats(buf, 0, 1500, 600, 1800, 2100)

	zhel := extractZhel(buf)
	if zhel == nil {
		t.Fatal("expected a ZhEL block")
	}
	if !math.IsNaN(zhel.TidalOverVitalPercent) {
		t.Errorf("TidalOverVitalPercent = %v, want NaN", zhel.TidalOverVitalPercent)
	}
}

// TestExtractZhelTruncated tests that a truncated payload skips the block
func TestExtractZhelTruncated(t *testing.T) {
	buf := append([]byte{}, TagZhel...)
	buf = appendFloats(buf, 4500, 1500) // only 8 of 20 payload bytes
	if zhel := extractZhel(buf); zhel != nil {
		t.Errorf("expected nil for truncated payload, got %+v", zhel)
	}
}

// TestExtractZhelMissing tests the tag-not-found outcome
func TestExtractZhelMissing(t *testing.T) {
	if zhel := extractZhel(make([]byte, 64)); zhel != nil {
		t.Errorf("expected nil when the tag is absent, got %+v", zhel)
	}
}

// TestExtractMod tests the minute ventilation block with a tag-bounded curve
func TestExtractMod(t *testing.T) {
	buf := append([]byte{}, TagMod...)
	buf = appendFloats(buf, 16, 8000, 500)
	buf = appendSamples(buf, 480, 240, 300, 180, 320, 280)
	buf = append(buf, TagMvl...) // bounds the curve
	buf = appendFloats(buf, 30, 120000, 600)

	mod := extractMod(buf, 25)
	if mod == nil {
		t.Fatal("expected a MOD block")
	}
	if mod.RespiratoryRate != 16 {
		t.Errorf("RespiratoryRate = %v, want 16", mod.RespiratoryRate)
	}
	if mod.MinuteVentilation != 8 {
		t.Errorf("MinuteVentilation = %v, want 8", mod.MinuteVentilation)
	}
	if mod.TidalVolume != 0.5 {
		t.Errorf("TidalVolume = %v, want 0.5", mod.TidalVolume)
	}
	if mod.OxygenUptake != 200 {
		t.Errorf("OxygenUptake = %v, want 8 * 25 = 200", mod.OxygenUptake)
	}
	if mod.VentilatoryEquivalent != 40 {
		t.Errorf("VentilatoryEquivalent = %v, want 1000/25 = 40", mod.VentilatoryEquivalent)
	}
	if len(mod.VolumeCurve) != 6 {
		t.Fatalf("curve length = %d, want 6 (bounded by the MVL tag)", len(mod.VolumeCurve))
	}
	if want := 480.0 / 240.0; mod.ExpInspTimeRatio != want {
		t.Errorf("ExpInspTimeRatio = %v, want %v", mod.ExpInspTimeRatio, want)
	}
}

// TestExtractModCurveToEnd tests curve bounding by the end of the buffer
func TestExtractModCurveToEnd(t *testing.T) {
	buf := append([]byte{}, TagMod...)
	buf = appendFloats(buf, 16, 8000, 500)
	buf = appendSamples(buf, 480, 240, 300)

	mod := extractMod(buf, 25)
	if mod == nil {
		t.Fatal("expected a MOD block")
	}
	if len(mod.VolumeCurve) != 3 {
		t.Errorf("curve length = %d, want 3", len(mod.VolumeCurve))
	}
}

// TestExtractModShortCurve tests that a curve of two or fewer samples
// leaves the time ratio undefined
func TestExtractModShortCurve(t *testing.T) {
	buf := append([]byte{}, TagMod...)
	buf = appendFloats(buf, 16, 8000, 500)
	buf = appendSamples(buf, 480, 240)

	mod := extractMod(buf, 25)
	if mod == nil {
		t.Fatal("expected a MOD block")
	}
	if !math.IsNaN(mod.ExpInspTimeRatio) {
		t.Errorf("ExpInspTimeRatio = %v, want NaN for a 2-sample curve", mod.ExpInspTimeRatio)
	}
}

// TestExtractMvl tests the ventilation reserve quantities
func TestExtractMvl(t *testing.T) {
	buf := append([]byte{}, TagMvl...)
	buf = appendFloats(buf, 30, 120000, 600)

	mod := extractModFixture(t, 8000)
	mvl := extractMvl(buf, mod)
	if mvl == nil {
		t.Fatal("expected an MVL block")
	}
	if mvl.MaxVentilation != 120 {
		t.Errorf("MaxVentilation = %v, want 120", mvl.MaxVentilation)
	}
	if want := 100 * (1 - 8.0/120.0); math.Abs(mvl.BreathingReservePercent-want) > 1e-9 {
		t.Errorf("BreathingReservePercent = %v, want %v", mvl.BreathingReservePercent, want)
	}
	if want := 120.0 / 8.0; math.Abs(mvl.MvlOverMod-want) > 1e-9 {
		t.Errorf("MvlOverMod = %v, want %v", mvl.MvlOverMod, want)
	}
}

// TestExtractMvlWithoutMod tests the MOD-gated ratios when the minute
// ventilation block is absent or degenerate
func TestExtractMvlWithoutMod(t *testing.T) {
	buf := append([]byte{}, TagMvl...)
	buf = appendFloats(buf, 30, 120000, 600)

	mvl := extractMvl(buf, nil)
	if mvl == nil {
		t.Fatal("expected an MVL block")
	}
	if !math.IsNaN(mvl.BreathingReservePercent) || !math.IsNaN(mvl.MvlOverMod) {
		t.Error("ratios must be NaN when the MOD block is absent")
	}

	// Zero minute ventilation is degenerate, never an error.
	mvl = extractMvl(buf, extractModFixture(t, 0))
	if mvl == nil {
		t.Fatal("expected an MVL block")
	}
	if !math.IsNaN(mvl.BreathingReservePercent) || !math.IsNaN(mvl.MvlOverMod) {
		t.Error("ratios must be NaN when minute ventilation is zero")
	}
}

// extractModFixture builds a MOD block with the given raw ventilation value
func extractModFixture(t *testing.T, ventilation float32) *model.ModBlock {
	t.Helper()
	buf := append([]byte{}, TagMod...)
	buf = appendFloats(buf, 16, ventilation, 500)
	mod := extractMod(buf, 25)
	if mod == nil {
		t.Fatal("fixture MOD block not decoded")
	}
	return mod
}

// TestExtractProbes tests probe order and BTPS-corrected display variants
func TestExtractProbes(t *testing.T) {
	const factor = 1.09

	buf := append([]byte{0xAA}, TagProbe2...)
	buf = appendFloats(buf, 3200, 2600, 2900, 5400, 4100, 3300, 1700, 245, 0, 0, 0, 0)
	buf = append(buf, TagProbe1...)
	buf = appendFloats(buf, 3400, 2700, 3000, 5600, 4200, 3400, 1800, 230, 0, 0, 0, 0)

	probes := extractProbes(buf, factor)
	if len(probes) != 2 {
		t.Fatalf("got %d probes, want 2", len(probes))
	}
	// Order is tag discovery order 1, 2, 3 - not buffer order.
	if probes[0].Index != 1 || probes[1].Index != 2 {
		t.Fatalf("probe order = [%d %d], want [1 2]", probes[0].Index, probes[1].Index)
	}

	p1 := probes[0]
	if math.Abs(p1.Fvc-3.4) > 1e-6 {
		t.Errorf("Fvc = %v, want 3.4", p1.Fvc)
	}
	if math.Abs(p1.FvcUI-p1.Fvc*factor) > 1e-12 {
		t.Errorf("FvcUI = %v, want Fvc * factor = %v", p1.FvcUI, p1.Fvc*factor)
	}
	if math.Abs(p1.Fev1UI-p1.Fev1*factor) > 1e-12 {
		t.Errorf("Fev1UI = %v, want Fev1 * factor", p1.Fev1UI)
	}
	if math.Abs(p1.InspiratoryCapacityUI-p1.InspiratoryCapacity*factor) > 1e-12 {
		t.Errorf("InspiratoryCapacityUI = %v, want raw * factor", p1.InspiratoryCapacityUI)
	}
	if math.Abs(p1.ElapsedTime-2.3) > 1e-6 {
		t.Errorf("ElapsedTime = %v, want 2.3 (x0.01 scale)", p1.ElapsedTime)
	}
	if math.Abs(p1.PeakFlow-5.6) > 1e-6 {
		t.Errorf("PeakFlow = %v, want 5.6", p1.PeakFlow)
	}
}

// TestExtractProbesTruncated tests that a probe without its full 48-byte
// payload is skipped like a missing tag
func TestExtractProbesTruncated(t *testing.T) {
	buf := append([]byte{}, TagProbe1...)
	buf = appendFloats(buf, 3400, 2700, 3000) // 12 of 48 bytes
	if probes := extractProbes(buf, 1.0); len(probes) != 0 {
		t.Errorf("got %d probes, want 0 for a truncated payload", len(probes))
	}
}

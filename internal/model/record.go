package model

import "time"

// PnpRecord represents the complete decoded content of one PNP spirometer
// file. It is the unified output of the binary decoder: demographics, the
// BTPS correction state, and whichever measurement blocks were present in
// the file. Absent blocks are nil, which is a normal partial-capture
// outcome, not an error.
type PnpRecord struct {
	File         string       // Display file name
	Demographics Demographics // Patient vitals (zeroed when not found)
	Btps         BtpsInfo     // BTPS correction state
	Zhel         *ZhelBlock   // Resting vital capacity (nil = tag absent)
	Mod          *ModBlock    // Minute ventilation (nil = tag absent)
	Mvl          *MvlBlock    // Maximum voluntary ventilation (nil = tag absent)
	Probes       []FvcProbe   // Forced capacity probes in discovery order (0-3)
}

// WithFile returns a copy of the record with the display file name replaced.
// Records are immutable after decoding; renaming is a reconstruction.
func (r PnpRecord) WithFile(name string) PnpRecord {
	r.File = name
	return r
}

// Sex is the patient sex code recovered from the vitals structure.
type Sex int

const (
	Male   Sex = iota // Sex byte 0
	Female            // Sex byte 1
)

func (s Sex) String() string {
	if s == Female {
		return "Female"
	}
	return "Male"
}

// Demographics contains the patient vitals recovered from the PNP header
// region. When no plausible vitals window is found the struct stays zeroed.
type Demographics struct {
	Name   string  // Header name, filtered and trimmed
	Note   string  // Header note (text after the $ separator)
	Age    int     // Years
	Weight int     // Kilograms
	Height float64 // Meters, rounded to 3 decimals
	Sex    Sex
}

// BtpsInfo describes how the BTPS correction factor was obtained. Factor is
// always usable; the optional fields are set only when the ambient triplet
// was actually located in the file.
type BtpsInfo struct {
	FoundInFile bool
	Factor      float64  // Dimensionless, >= 0
	Temperature *float64 // Degrees Celsius
	Humidity    *float64 // Percent
	Pressure    *float64 // mmHg
}

// ZhelBlock holds the resting (slow) vital capacity measurements.
// All volumes are in liters.
type ZhelBlock struct {
	VitalCapacity         float64 // ZhEL
	InspiratoryReserve    float64 // ROvd
	TidalVolume           float64 // DO
	ExpiratoryReserve     float64 // ROvyd
	InspiratoryCapacity   float64 // Evd
	TidalOverVitalPercent float64 // 100*DO/ZhEL, NaN when ZhEL is zero
}

// ModBlock holds the minute ventilation measurements and the raw
// volume-time curve that trails the block in the file.
type ModBlock struct {
	RespiratoryRate       float64 // Breaths/min
	MinuteVentilation     float64 // L/min
	TidalVolume           float64 // L
	OxygenUptake          float64 // mL/min, ventilation x O2 extraction constant
	VentilatoryEquivalent float64 // 1000 / O2 extraction constant
	ExpInspTimeRatio      float64 // curve[0]/curve[1], NaN when curve has <=2 samples
	VolumeCurve           []int16 // Raw volume-time samples
}

// MvlBlock holds the maximum voluntary ventilation measurements. The two
// ratios depend on a resolved ModBlock and are NaN when it is absent or
// its ventilation is non-positive.
type MvlBlock struct {
	RespiratoryRate         float64 // Breaths/min
	MaxVentilation          float64 // L/min
	TidalVolume             float64 // L
	BreathingReservePercent float64 // 100*(1 - MOD/MVL)
	MvlOverMod              float64 // MVL/MOD
}

// FvcProbe is one forced vital capacity measurement set. The vendor UI
// displays the BTPS-corrected columns; both corrected and raw values are
// retained.
type FvcProbe struct {
	Index int // Probe number, 1-3

	// Raw values as stored in the file (volumes in liters)
	Fvc                 float64
	Fev1                float64
	InspiratoryCapacity float64

	// BTPS-corrected display variants
	FvcUI                 float64
	Fev1UI                float64
	InspiratoryCapacityUI float64

	// Flow and time quantities, literal scale, no BTPS correction
	PeakFlow    float64 // L/s
	Fef25       float64 // L/s
	Fef50       float64 // L/s
	Fef75       float64 // L/s
	ElapsedTime float64 // Seconds
}

// ZakRecord represents the decoded content of one ZAK rheograph report.
type ZakRecord struct {
	File         string           // Display file name
	Section      string           // Report section label (collapsed acronym form)
	Area         *string          // Examined area, when present
	Patient      PatientData      // Header fields, all independently optional
	Measurements []Measurement    // Tabular measurement rows
	Conclusion   []ConclusionItem // Parsed conclusion lines
	Extras       Extras           // Whole-text pattern extractions
}

// WithFile returns a copy of the record with the display file name replaced.
func (r ZakRecord) WithFile(name string) ZakRecord {
	r.File = name
	return r
}

// PatientData contains the report header fields. Every field is optional
// because the header format is inconsistently populated across report
// variants.
type PatientData struct {
	Name    *string
	Age     *int
	Sex     *string  // Sex code as printed
	Height  *float64 // Centimeters as printed
	Weight  *float64 // Kilograms as printed
	Date    *time.Time
	Comment *string // Trailing text after the date
}

// Measurement sides. SideNone marks a single-column value.
const (
	SideLeft  = "L"
	SideRight = "R"
	SideNone  = "—"
)

// Measurement is one cell of the tabular measurement region. Value is nil
// when the cell contained digits that did not parse as a leading number;
// Raw always preserves the original cell text.
type Measurement struct {
	Key   string
	Side  string // SideLeft, SideRight or SideNone
	Value *float64
	Unit  string
	Raw   string
}

// Deviation directions used in conclusion annotations.
const (
	DeltaMore = "больше"
	DeltaLess = "меньше"
)

// ConclusionItem is one line of the report's clinical summary, optionally
// annotated with a deviation-from-normal percentage.
type ConclusionItem struct {
	Key            string
	Value          string
	Note           *string
	DeltaPercent   *float64
	DeltaDirection *string // DeltaMore, DeltaLess or nil
}

// Extras holds quantities recovered by pattern scans over the full report
// text rather than the line-oriented parsers.
type Extras struct {
	AsymmetryCoefficient *float64 // Percent
	AsymmetryNote        *string  // Parenthetical normal-range note
	AsymmetryDescription *string  // Qualitative asymmetry phrase
	DominanceCode        *string  // "S>D" or "D>S" (Cyrillic look-alikes normalized)
	DominanceSide        *string  // "Left" when S dominates, "Right" when D dominates
	HeartRate            *float64 // Beats/min
	HeartRateLow         *float64 // Optional range
	HeartRateHigh        *float64
}

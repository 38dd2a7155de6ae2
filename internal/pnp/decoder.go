// Package pnp decodes the undocumented binary format emitted by the legacy
// PNP spirometer. Block offsets are not announced anywhere in a file, so
// fixed-layout structures are located by exact tag markers and brute-force
// plausibility scans. Decoding is a pure function over the input buffer:
// absence of a structural element is a representable outcome, not an error.
package pnp

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/ryabov/medconv/internal/model"
)

// Tunable decoding parameters and their defaults.
const (
	DefaultBtpsFactor = 1.081 // Fallback when no ambient triplet is found
	DefaultO2PerLiter = 25.0  // O2 extraction, mL per liter ventilated
)

// Options carries the caller-tunable parameters of a decode. The zero
// value is usable: defaults are filled in by Decode.
type Options struct {
	// FallbackBtpsFactor is reported when the ambient triplet cannot be
	// located (or is physically implausible). Defaults to 1.081.
	FallbackBtpsFactor float64

	// O2PerLiter is the O2 extraction constant in mL per liter
	// ventilated. Defaults to 25.0.
	O2PerLiter float64

	// Decoder is the single-byte codepage decoder for header text.
	// Defaults to CP866, the DOS-era codepage the instrument firmware
	// writes.
	Decoder *encoding.Decoder
}

func (o Options) withDefaults() Options {
	if o.FallbackBtpsFactor <= 0 {
		o.FallbackBtpsFactor = DefaultBtpsFactor
	}
	if o.O2PerLiter <= 0 {
		o.O2PerLiter = DefaultO2PerLiter
	}
	if o.Decoder == nil {
		o.Decoder = charmap.CodePage866.NewDecoder()
	}
	return o
}

// Decode recovers a structured record from a raw PNP byte buffer. It never
// fails: every block is optional, every scan has a documented default, and
// degenerate arithmetic produces NaN. Later steps depend on earlier ones
// (BTPS-corrected probes, MOD-gated MVL ratios), so the sub-steps run
// sequentially.
func Decode(data []byte, filename string, opts Options) *model.PnpRecord {
	opts = opts.withDefaults()

	demo := scanDemographics(data)
	demo.Name, demo.Note = scanHeaderText(data, opts.Decoder)

	btps := resolveBtps(data, opts.FallbackBtpsFactor)
	mod := extractMod(data, opts.O2PerLiter)

	return &model.PnpRecord{
		File:         filename,
		Demographics: demo,
		Btps:         btps,
		Zhel:         extractZhel(data),
		Mod:          mod,
		Mvl:          extractMvl(data, mod),
		Probes:       extractProbes(data, btps.Factor),
	}
}

// Package medconv provides functions for decoding legacy PNP spirometer
// captures and ZAK rheograph reports.
//
// This package can be used as a library to decode the two file formats
// programmatically. Decoding never fails: structural pieces a file does
// not carry are simply absent from the returned record.
//
// Example usage:
//
//	data, _ := os.ReadFile("exam.pnp")
//
//	rec := medconv.DecodePNP(data, "exam.pnp", medconv.Options{})
//	fmt.Println(rec.Demographics.Name, rec.Btps.Factor)
package medconv

import (
	"bytes"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/ryabov/medconv/internal/model"
	"github.com/ryabov/medconv/internal/pnp"
	"github.com/ryabov/medconv/internal/zak"
)

// Format identifies one of the two supported legacy formats.
type Format string

const (
	FormatPNP     Format = "pnp"
	FormatZAK     Format = "zak"
	FormatUnknown Format = ""
)

// Options carries the caller-tunable decode parameters. The zero value
// selects the documented defaults: BTPS fallback factor 1.081, O2
// extraction 25 mL/L, codepage 866 for PNP headers and Windows-1251 for
// ZAK reports.
type Options struct {
	FallbackBtpsFactor float64
	O2PerLiter         float64
	PnpDecoder         *encoding.Decoder
	ZakDecoder         *encoding.Decoder
}

// DecodePNP decodes a binary PNP spirometer capture.
//
// Example:
//
//	rec := medconv.DecodePNP(data, "exam.pnp", medconv.Options{})
//	for _, probe := range rec.Probes {
//	    fmt.Println(probe.Index, probe.FvcUI)
//	}
func DecodePNP(data []byte, filename string, opts Options) *model.PnpRecord {
	return pnp.Decode(data, filename, pnp.Options{
		FallbackBtpsFactor: opts.FallbackBtpsFactor,
		O2PerLiter:         opts.O2PerLiter,
		Decoder:            opts.PnpDecoder,
	})
}

// DecodeZAK decodes a ZAK rheograph text report.
func DecodeZAK(data []byte, filename string, opts Options) *model.ZakRecord {
	return zak.Decode(data, filename, zak.Options{Decoder: opts.ZakDecoder})
}

// Result is the outcome of a format-dispatched decode: exactly one of the
// two record pointers is set, matching Format.
type Result struct {
	Format Format
	PNP    *model.PnpRecord
	ZAK    *model.ZakRecord
}

// Decode detects the format of data and dispatches to the matching
// decoder. It returns ErrUnknownFormat when neither format is recognized.
func Decode(data []byte, filename string, opts Options) (*Result, error) {
	switch DetectFormat(filename, data) {
	case FormatPNP:
		return &Result{Format: FormatPNP, PNP: DecodePNP(data, filename, opts)}, nil
	case FormatZAK:
		return &Result{Format: FormatZAK, ZAK: DecodeZAK(data, filename, opts)}, nil
	default:
		return nil, ErrUnknownFormat
	}
}

// DetectFormat identifies the format of a file by its extension, falling
// back to content sniffing: a buffer carrying a known PNP structural tag
// is binary PNP, a NUL-free buffer is a text report.
func DetectFormat(filename string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pnp":
		return FormatPNP
	case ".zak":
		return FormatZAK
	}
	if pnp.HasKnownTag(data) {
		return FormatPNP
	}
	if len(data) > 0 && !bytes.ContainsRune(data, 0) {
		return FormatZAK
	}
	return FormatUnknown
}

// Common errors
var (
	ErrUnknownFormat = &Error{Code: "unknown_format", Message: "unrecognized file format"}
)

// Error represents a medconv error
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

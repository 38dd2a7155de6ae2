// Package export renders decoded records for downstream consumers: JSON
// documents, spreadsheet workbooks and zip bundles. Rounding and
// NaN-to-null presentation policy lives here; the decoders always emit
// full-precision values.
package export

import (
	"encoding/json"
	"math"

	"github.com/ryabov/medconv/internal/model"
)

// num renders a derived metric: rounded to 3 decimals, NaN as null.
func num(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return math.Round(v*1000) / 1000
}

// PnpJSON renders a PNP record as an indented JSON document.
func PnpJSON(rec *model.PnpRecord) ([]byte, error) {
	return json.MarshalIndent(pnpMap(rec), "", "  ")
}

func pnpMap(rec *model.PnpRecord) map[string]interface{} {
	out := map[string]interface{}{
		"file": rec.File,
		"patient": map[string]interface{}{
			"name":   rec.Demographics.Name,
			"note":   rec.Demographics.Note,
			"age":    rec.Demographics.Age,
			"weight": rec.Demographics.Weight,
			"height": rec.Demographics.Height,
			"sex":    rec.Demographics.Sex.String(),
		},
		"btps": btpsMap(rec.Btps),
	}
	if rec.Zhel != nil {
		out["zhel"] = map[string]interface{}{
			"vitalCapacity":         num(rec.Zhel.VitalCapacity),
			"inspiratoryReserve":    num(rec.Zhel.InspiratoryReserve),
			"tidalVolume":           num(rec.Zhel.TidalVolume),
			"expiratoryReserve":     num(rec.Zhel.ExpiratoryReserve),
			"inspiratoryCapacity":   num(rec.Zhel.InspiratoryCapacity),
			"tidalOverVitalPercent": num(rec.Zhel.TidalOverVitalPercent),
		}
	}
	if rec.Mod != nil {
		out["mod"] = map[string]interface{}{
			"respiratoryRate":       num(rec.Mod.RespiratoryRate),
			"minuteVentilation":     num(rec.Mod.MinuteVentilation),
			"tidalVolume":           num(rec.Mod.TidalVolume),
			"oxygenUptake":          num(rec.Mod.OxygenUptake),
			"ventilatoryEquivalent": num(rec.Mod.VentilatoryEquivalent),
			"expInspTimeRatio":      num(rec.Mod.ExpInspTimeRatio),
			"volumeCurveSamples":    len(rec.Mod.VolumeCurve),
		}
	}
	if rec.Mvl != nil {
		out["mvl"] = map[string]interface{}{
			"respiratoryRate":         num(rec.Mvl.RespiratoryRate),
			"maxVentilation":          num(rec.Mvl.MaxVentilation),
			"tidalVolume":             num(rec.Mvl.TidalVolume),
			"breathingReservePercent": num(rec.Mvl.BreathingReservePercent),
			"mvlOverMod":              num(rec.Mvl.MvlOverMod),
		}
	}
	if len(rec.Probes) > 0 {
		probes := make([]map[string]interface{}, len(rec.Probes))
		for i, p := range rec.Probes {
			probes[i] = map[string]interface{}{
				"index":                 p.Index,
				"fvc":                   num(p.Fvc),
				"fev1":                  num(p.Fev1),
				"inspiratoryCapacity":   num(p.InspiratoryCapacity),
				"fvcUI":                 num(p.FvcUI),
				"fev1UI":                num(p.Fev1UI),
				"inspiratoryCapacityUI": num(p.InspiratoryCapacityUI),
				"peakFlow":              num(p.PeakFlow),
				"fef25":                 num(p.Fef25),
				"fef50":                 num(p.Fef50),
				"fef75":                 num(p.Fef75),
				"elapsedTime":           num(p.ElapsedTime),
			}
		}
		out["probes"] = probes
	}
	return out
}

func btpsMap(b model.BtpsInfo) map[string]interface{} {
	out := map[string]interface{}{
		"foundInFile": b.FoundInFile,
		"factor":      num(b.Factor),
	}
	if b.Temperature != nil {
		out["temperature"] = num(*b.Temperature)
	}
	if b.Humidity != nil {
		out["humidity"] = num(*b.Humidity)
	}
	if b.Pressure != nil {
		out["pressure"] = num(*b.Pressure)
	}
	return out
}

// ZakJSON renders a ZAK record as an indented JSON document.
func ZakJSON(rec *model.ZakRecord) ([]byte, error) {
	return json.MarshalIndent(zakMap(rec), "", "  ")
}

func zakMap(rec *model.ZakRecord) map[string]interface{} {
	out := map[string]interface{}{
		"file":    rec.File,
		"section": rec.Section,
		"patient": patientMap(rec.Patient),
	}
	if rec.Area != nil {
		out["area"] = *rec.Area
	}
	if len(rec.Measurements) > 0 {
		ms := make([]map[string]interface{}, len(rec.Measurements))
		for i, m := range rec.Measurements {
			entry := map[string]interface{}{
				"key":  m.Key,
				"side": m.Side,
				"raw":  m.Raw,
			}
			if m.Value != nil {
				entry["value"] = num(*m.Value)
			}
			if m.Unit != "" {
				entry["unit"] = m.Unit
			}
			ms[i] = entry
		}
		out["measurements"] = ms
	}
	if len(rec.Conclusion) > 0 {
		items := make([]map[string]interface{}, len(rec.Conclusion))
		for i, c := range rec.Conclusion {
			entry := map[string]interface{}{"key": c.Key}
			if c.Value != "" {
				entry["value"] = c.Value
			}
			if c.Note != nil {
				entry["note"] = *c.Note
			}
			if c.DeltaPercent != nil {
				entry["deltaPercent"] = num(*c.DeltaPercent)
			}
			if c.DeltaDirection != nil {
				entry["deltaDirection"] = *c.DeltaDirection
			}
			items[i] = entry
		}
		out["conclusion"] = items
	}
	if extras := extrasMap(rec.Extras); len(extras) > 0 {
		out["extras"] = extras
	}
	return out
}

func patientMap(p model.PatientData) map[string]interface{} {
	out := map[string]interface{}{}
	if p.Name != nil {
		out["name"] = *p.Name
	}
	if p.Age != nil {
		out["age"] = *p.Age
	}
	if p.Sex != nil {
		out["sex"] = *p.Sex
	}
	if p.Height != nil {
		out["height"] = num(*p.Height)
	}
	if p.Weight != nil {
		out["weight"] = num(*p.Weight)
	}
	if p.Date != nil {
		out["date"] = p.Date.Format("2006-01-02")
	}
	if p.Comment != nil {
		out["comment"] = *p.Comment
	}
	return out
}

func extrasMap(e model.Extras) map[string]interface{} {
	out := map[string]interface{}{}
	if e.AsymmetryCoefficient != nil {
		out["asymmetryCoefficient"] = num(*e.AsymmetryCoefficient)
	}
	if e.AsymmetryNote != nil {
		out["asymmetryNote"] = *e.AsymmetryNote
	}
	if e.AsymmetryDescription != nil {
		out["asymmetryDescription"] = *e.AsymmetryDescription
	}
	if e.DominanceCode != nil {
		out["dominanceCode"] = *e.DominanceCode
	}
	if e.DominanceSide != nil {
		out["dominanceSide"] = *e.DominanceSide
	}
	if e.HeartRate != nil {
		out["heartRate"] = num(*e.HeartRate)
	}
	if e.HeartRateLow != nil {
		out["heartRateLow"] = num(*e.HeartRateLow)
	}
	if e.HeartRateHigh != nil {
		out["heartRateHigh"] = num(*e.HeartRateHigh)
	}
	return out
}

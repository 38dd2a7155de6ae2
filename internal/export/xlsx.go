package export

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/ryabov/medconv/internal/model"
)

const (
	sheetPnp         = "PNP"
	sheetZakValues   = "ZAK Measurements"
	sheetZakFindings = "ZAK Conclusion"
)

// Workbook renders one spreadsheet for a batch of decoded records: a PNP
// summary sheet, a ZAK measurement sheet and a ZAK conclusion sheet.
func Workbook(pnp []*model.PnpRecord, zak []*model.ZakRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetPnp); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetZakValues, sheetZakFindings} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	if err := writePnpSheet(f, pnp); err != nil {
		return nil, err
	}
	if err := writeZakSheets(f, zak); err != nil {
		return nil, err
	}
	return f, nil
}

func writePnpSheet(f *excelize.File, recs []*model.PnpRecord) error {
	header := []interface{}{
		"File", "Name", "Age", "Weight", "Height", "Sex",
		"BTPS factor", "ZhEL", "MOD", "MVL",
		"Probe", "FVC (BTPS)", "FEV1 (BTPS)", "PEF",
	}
	if err := setRow(f, sheetPnp, 1, header); err != nil {
		return err
	}
	row := 2
	for _, rec := range recs {
		base := []interface{}{
			rec.File,
			rec.Demographics.Name,
			rec.Demographics.Age,
			rec.Demographics.Weight,
			cell(rec.Demographics.Height),
			rec.Demographics.Sex.String(),
			cell(rec.Btps.Factor),
			cellBlock(rec.Zhel != nil, func() float64 { return rec.Zhel.VitalCapacity }),
			cellBlock(rec.Mod != nil, func() float64 { return rec.Mod.MinuteVentilation }),
			cellBlock(rec.Mvl != nil, func() float64 { return rec.Mvl.MaxVentilation }),
		}
		if len(rec.Probes) == 0 {
			if err := setRow(f, sheetPnp, row, base); err != nil {
				return err
			}
			row++
			continue
		}
		// One row per probe, demographic columns repeated.
		for _, p := range rec.Probes {
			values := append(append([]interface{}{}, base...),
				p.Index, cell(p.FvcUI), cell(p.Fev1UI), cell(p.PeakFlow))
			if err := setRow(f, sheetPnp, row, values); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func writeZakSheets(f *excelize.File, recs []*model.ZakRecord) error {
	if err := setRow(f, sheetZakValues, 1,
		[]interface{}{"File", "Key", "Side", "Value", "Unit", "Raw"}); err != nil {
		return err
	}
	if err := setRow(f, sheetZakFindings, 1,
		[]interface{}{"File", "Key", "Value", "Note", "Delta %", "Direction"}); err != nil {
		return err
	}
	mRow, cRow := 2, 2
	for _, rec := range recs {
		for _, m := range rec.Measurements {
			values := []interface{}{rec.File, m.Key, m.Side, nil, m.Unit, m.Raw}
			if m.Value != nil {
				values[3] = cell(*m.Value)
			}
			if err := setRow(f, sheetZakValues, mRow, values); err != nil {
				return err
			}
			mRow++
		}
		for _, c := range rec.Conclusion {
			values := []interface{}{rec.File, c.Key, c.Value, nil, nil, nil}
			if c.Note != nil {
				values[3] = *c.Note
			}
			if c.DeltaPercent != nil {
				values[4] = *c.DeltaPercent
			}
			if c.DeltaDirection != nil {
				values[5] = *c.DeltaDirection
			}
			if err := setRow(f, sheetZakFindings, cRow, values); err != nil {
				return err
			}
			cRow++
		}
	}
	return nil
}

// cell renders a float for a spreadsheet cell; NaN becomes an empty cell.
func cell(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func cellBlock(present bool, value func() float64) interface{} {
	if !present {
		return nil
	}
	return cell(value())
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		if v == nil {
			continue
		}
		axis, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, axis, v); err != nil {
			return fmt.Errorf("set cell %s!%s: %w", sheet, axis, err)
		}
	}
	return nil
}

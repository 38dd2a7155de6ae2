package export

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryabov/medconv/internal/model"
)

func TestWorkbook(t *testing.T) {
	pnp := []*model.PnpRecord{{
		File:         "exam.pnp",
		Demographics: model.Demographics{Name: "ИВАНОВ", Age: 42, Weight: 81, Height: 1.82},
		Btps:         model.BtpsInfo{Factor: 1.09},
		Probes: []model.FvcProbe{
			{Index: 1, FvcUI: 3.706, Fev1UI: 2.4, PeakFlow: 5.6},
		},
	}}
	value := 10.5
	note := "норма"
	zak := []*model.ZakRecord{{
		File: "report.zak",
		Measurements: []model.Measurement{
			{Key: "Сопротивление", Side: model.SideLeft, Value: &value, Unit: "Ом", Raw: "10.5 Ом"},
		},
		Conclusion: []model.ConclusionItem{
			{Key: "Кровенаполнение (Левая сторона)", Value: "12.0", Note: &note},
		},
	}}

	f, err := Workbook(pnp, zak)
	require.NoError(t, err)

	got, err := f.GetCellValue(sheetPnp, "A2")
	require.NoError(t, err)
	assert.Equal(t, "exam.pnp", got)

	got, err = f.GetCellValue(sheetPnp, "B2")
	require.NoError(t, err)
	assert.Equal(t, "ИВАНОВ", got)

	got, err = f.GetCellValue(sheetPnp, "L2")
	require.NoError(t, err)
	assert.Equal(t, "3.706", got)

	got, err = f.GetCellValue(sheetZakValues, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Сопротивление", got)

	got, err = f.GetCellValue(sheetZakValues, "D2")
	require.NoError(t, err)
	assert.Equal(t, "10.5", got)

	got, err = f.GetCellValue(sheetZakFindings, "D2")
	require.NoError(t, err)
	assert.Equal(t, "норма", got)
}

func TestWorkbookNaNLeavesCellEmpty(t *testing.T) {
	pnp := []*model.PnpRecord{{
		File: "exam.pnp",
		Btps: model.BtpsInfo{Factor: 1.081},
		Mvl: &model.MvlBlock{
			MaxVentilation:          120,
			BreathingReservePercent: math.NaN(),
			MvlOverMod:              math.NaN(),
		},
	}}

	f, err := Workbook(pnp, nil)
	require.NoError(t, err)

	got, err := f.GetCellValue(sheetPnp, "J2")
	require.NoError(t, err)
	assert.Equal(t, "120", got)
}

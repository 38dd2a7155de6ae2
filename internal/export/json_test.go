package export

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryabov/medconv/internal/model"
)

func TestPnpJSONRoundingAndNaN(t *testing.T) {
	rec := &model.PnpRecord{
		File: "exam.pnp",
		Demographics: model.Demographics{
			Name: "ИВАНОВ", Age: 42, Weight: 81, Height: 1.82, Sex: model.Male,
		},
		Btps: model.BtpsInfo{FoundInFile: false, Factor: 1.1017361626},
		Zhel: &model.ZhelBlock{
			VitalCapacity:         4.5,
			TidalVolume:           0.6,
			TidalOverVitalPercent: math.NaN(),
		},
	}

	data, err := PnpJSON(rec)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "exam.pnp", doc["file"])

	patient := doc["patient"].(map[string]interface{})
	assert.Equal(t, "ИВАНОВ", patient["name"])
	assert.Equal(t, "Male", patient["sex"])

	btps := doc["btps"].(map[string]interface{})
	assert.Equal(t, false, btps["foundInFile"])
	assert.Equal(t, 1.102, btps["factor"])
	assert.NotContains(t, btps, "temperature")

	zhel := doc["zhel"].(map[string]interface{})
	assert.Equal(t, 4.5, zhel["vitalCapacity"])
	assert.Nil(t, zhel["tidalOverVitalPercent"])

	assert.NotContains(t, doc, "mod")
	assert.NotContains(t, doc, "probes")
}

func TestZakJSONOptionalFields(t *testing.T) {
	name := "Петров П.П."
	date := time.Date(2021, time.May, 12, 0, 0, 0, 0, time.UTC)
	value := 10.5
	rec := &model.ZakRecord{
		File:    "report.zak",
		Section: "РЕОВАЗОГРАММА",
		Patient: model.PatientData{Name: &name, Date: &date},
		Measurements: []model.Measurement{
			{Key: "Сопротивление", Side: model.SideLeft, Value: &value, Unit: "Ом", Raw: "10.5 Ом"},
			{Key: "Индекс", Side: model.SideRight, Raw: "~12abc"},
		},
	}

	data, err := ZakJSON(rec)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "РЕОВАЗОГРАММА", doc["section"])
	assert.NotContains(t, doc, "area")
	assert.NotContains(t, doc, "extras")

	patient := doc["patient"].(map[string]interface{})
	assert.Equal(t, "Петров П.П.", patient["name"])
	assert.Equal(t, "2021-05-12", patient["date"])
	assert.NotContains(t, patient, "age")

	ms := doc["measurements"].([]interface{})
	require.Len(t, ms, 2)
	first := ms[0].(map[string]interface{})
	assert.Equal(t, 10.5, first["value"])
	assert.Equal(t, "Ом", first["unit"])
	second := ms[1].(map[string]interface{})
	assert.NotContains(t, second, "value")
	assert.Equal(t, "~12abc", second["raw"])
}

package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		coord   Coordinate
		wantErr bool
	}{
		{"valid", Coordinate{Lat: 30.7333, Lon: 76.7794}, false},
		{"lat too high", Coordinate{Lat: 90.1, Lon: 0}, true},
		{"lat too low", Coordinate{Lat: -90.1, Lon: 0}, true},
		{"lon too high", Coordinate{Lat: 0, Lon: 180.1}, true},
		{"lon too low", Coordinate{Lat: 0, Lon: -180.1}, true},
		{"nan lat", Coordinate{Lat: math.NaN(), Lon: 0}, true},
		{"inf lon", Coordinate{Lat: 0, Lon: math.Inf(1)}, true},
		{"boundary", Coordinate{Lat: -90, Lon: 180}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coord.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQueryParameters_Validate(t *testing.T) {
	valid := QueryParameters{
		Sector:               "Sector 5",
		CollectionEfficiency: 90,
		MileageKmPerLiter:    12,
		PetrolLeftPercent:    40,
	}
	assert.NoError(t, valid.Validate())

	missing := valid
	missing.Sector = ""
	assert.Error(t, missing.Validate())

	badEff := valid
	badEff.CollectionEfficiency = 101
	assert.Error(t, badEff.Validate())

	badMileage := valid
	badMileage.MileageKmPerLiter = 0
	assert.Error(t, badMileage.Validate())

	badPetrol := valid
	badPetrol.PetrolLeftPercent = -1
	assert.Error(t, badPetrol.Validate())

	badLoc := valid
	badLoc.Location = &Coordinate{Lat: 200, Lon: 0}
	assert.Error(t, badLoc.Validate())
}

func TestFlexFloat_Unmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{`42.5`, 42.5},
		{`"42.5"`, 42.5},
		{`"38%"`, 38},
		{`"30,7333"`, 30.7333},
		{`null`, 0},
		{`""`, 0},
	}
	for _, tt := range tests {
		var f FlexFloat
		require.NoError(t, json.Unmarshal([]byte(tt.in), &f), tt.in)
		assert.InDelta(t, tt.want, float64(f), 1e-9, tt.in)
	}

	var f FlexFloat
	assert.Error(t, json.Unmarshal([]byte(`"not a number"`), &f))
}

func TestWasteReport_Decode(t *testing.T) {
	payload := `{
		"data": {
			"state": "Chandigarh",
			"country": "India",
			"total_waste_generated": "550 metric tons/day",
			"waste_composition": {"organic": "45", "plastic": 12, "paper": "10%", "metal": 3, "glass": 2, "other": 28},
			"recycling_rate": "17",
			"waste_management_methods": {"landfill": 60, "recycling": 17, "composting": 15, "incineration": 8},
			"key_challenges": ["Legacy dumps"],
			"initiatives": ["Door-to-door collection"],
			"data_year": "2023",
			"coordinates": {
				"state_lat": "30.7333",
				"state_lon": "76.7794",
				"landfills": [
					{"lat": 30.74, "lon": 76.78, "name": "Dadumajra", "distance_to_landfill_from_sector": "4.2"}
				]
			}
		},
		"route_details": [
			{"Route": "Sector 5 -> Dadumajra", "Closeness Coefficient": "0.82", "Ranking": 1}
		]
	}`

	var report WasteReport
	require.NoError(t, json.Unmarshal([]byte(payload), &report))

	assert.Equal(t, "Chandigarh", report.Data.State)
	assert.InDelta(t, 45, float64(report.Data.WasteComposition.Organic), 1e-9)
	assert.InDelta(t, 10, float64(report.Data.WasteComposition.Paper), 1e-9)
	assert.InDelta(t, 17, float64(report.Data.RecyclingRate), 1e-9)

	center, ok := report.Data.Coordinates.StateCenter()
	require.True(t, ok)
	assert.InDelta(t, 30.7333, center.Lat, 1e-9)

	facilities := report.Data.Coordinates.Facilities()
	require.Len(t, facilities, 1)
	assert.Equal(t, "Dadumajra", facilities[0].Name)
	require.NotNil(t, report.Data.Coordinates.Landfills[0].DistanceFromSector)
	assert.InDelta(t, 4.2, float64(*report.Data.Coordinates.Landfills[0].DistanceFromSector), 1e-9)

	require.Len(t, report.RouteDetails, 1)
	assert.Equal(t, 1, report.RouteDetails[0].Ranking)
	assert.InDelta(t, 0.82, float64(report.RouteDetails[0].ClosenessCoefficient), 1e-9)
}

func TestCoordinatesBlock_StateCenter_Absent(t *testing.T) {
	var block CoordinatesBlock
	_, ok := block.StateCenter()
	assert.False(t, ok)

	block.StateLat = 200
	block.StateLon = 10
	_, ok = block.StateCenter()
	assert.False(t, ok)
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenatlas/wastemap/internal/maprender"
	"github.com/greenatlas/wastemap/internal/model"
)

func sampleInstructions(t *testing.T) *maprender.Instructions {
	t.Helper()
	ins, err := maprender.Build(
		model.Coordinate{Lat: 30.7333, Lon: 76.7794},
		"Chandigarh",
		[]model.Facility{{Coordinate: model.Coordinate{Lat: 30.74, Lon: 76.78}, Name: "Dadumajra"}},
		12,
	)
	require.NoError(t, err)
	return ins
}

func TestWriteRoute_KML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "route.kml")
	require.NoError(t, writeRoute(path, sampleInstructions(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<kml")
	assert.Contains(t, string(data), "Dadumajra")
}

func TestWriteRoute_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "route.json")
	require.NoError(t, writeRoute(path, sampleInstructions(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"encoded_line"`)
}

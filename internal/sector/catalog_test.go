package sector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Embedded(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	e, ok := c.Lookup("Chandigarh")
	require.True(t, ok)
	assert.InDelta(t, 30.7333, e.Lat, 1e-9)
	assert.InDelta(t, 76.7794, e.Lon, 1e-9)

	assert.NotEmpty(t, c.Names())
}

func TestLookup_CaseAndWhitespaceInsensitive(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	for _, name := range []string{"sector 17", "SECTOR 17", "  Sector   17  "} {
		e, ok := c.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, "Sector 17", e.Name)
	}

	_, ok := c.Lookup("Sector 999")
	assert.False(t, ok)
}

func TestLoad_Override(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sectors.yaml")
	override := `sectors:
  - name: Sector 99
    lat: 30.70
    lon: 76.70
  - name: Chandigarh
    lat: 30.80
    lon: 76.80
`
	require.NoError(t, os.WriteFile(path, []byte(override), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	// New entry appears.
	e, ok := c.Lookup("Sector 99")
	require.True(t, ok)
	assert.InDelta(t, 30.70, e.Lat, 1e-9)

	// Override wins over the embedded entry.
	e, ok = c.Lookup("chandigarh")
	require.True(t, ok)
	assert.InDelta(t, 30.80, e.Lat, 1e-9)
}

func TestLoad_BadOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\tnot yaml"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestDisplayName(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Sector 17", c.DisplayName("sector 17"))
	assert.Equal(t, "Industrial Area", c.DisplayName("industrial area"))
}

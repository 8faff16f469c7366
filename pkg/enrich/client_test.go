package enrich

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
	"data": {
		"state": "Chandigarh",
		"country": "India",
		"total_waste_generated": "550 metric tons/day",
		"waste_composition": {"organic": "45", "plastic": "12", "paper": "10", "metal": "3", "glass": "2", "other": "28"},
		"recycling_rate": "17",
		"waste_management_methods": {"landfill": "60", "recycling": "17", "composting": "15", "incineration": "8"},
		"key_challenges": ["Legacy dumps", "Collection gaps"],
		"initiatives": ["Door-to-door collection"],
		"data_year": "2023",
		"coordinates": {
			"state_lat": "30.7333",
			"state_lon": "76.7794",
			"landfills": [
				{"lat": "30.74", "lon": "76.78", "name": "Landfill A"},
				{"lat": "30.80", "lon": "76.90", "name": "Landfill B"}
			]
		}
	},
	"route_details": [
		{"Route": "Sector 5 -> Landfill A", "Closeness Coefficient": 0.82, "Ranking": 1}
	]
}`

func TestFetchWasteData_Success(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/solid-waste-data", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, sampleResponse)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(time.Millisecond))
	report, err := c.FetchWasteData(context.Background(), Request{
		State:                "Chandigarh",
		Country:              "India",
		CollectionEfficiency: 90,
		Mileage:              12,
		PetrolLeft:           40,
	})
	require.NoError(t, err)

	assert.Equal(t, "Chandigarh", report.Data.State)
	assert.Len(t, report.Data.Coordinates.Landfills, 2)
	assert.Len(t, report.RouteDetails, 1)

	// Request wire shape: userLocation must be explicit null when absent.
	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(gotBody, &wire))
	raw, ok := wire["userLocation"]
	require.True(t, ok, "userLocation key must be present")
	assert.Equal(t, "null", string(raw))
}

func TestFetchWasteData_SendsLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.UserLocation)
		assert.InDelta(t, 30.73, req.UserLocation.Latitude, 1e-9)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, sampleResponse)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(time.Millisecond))
	_, err := c.FetchWasteData(context.Background(), Request{
		State:                "Chandigarh",
		CollectionEfficiency: 90,
		Mileage:              12,
		PetrolLeft:           40,
		UserLocation:         &UserLocation{Latitude: 30.73, Longitude: 76.77},
	})
	require.NoError(t, err)
}

func TestFetchWasteData_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": "Both state and country are required"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(time.Millisecond))
	_, err := c.FetchWasteData(context.Background(), Request{State: "Chandigarh"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)
	assert.Contains(t, err.Error(), "state and country")
}

func TestFetchWasteData_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream exploded")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(time.Millisecond))
	_, err := c.FetchWasteData(context.Background(), Request{State: "Chandigarh"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)
}

func TestFetchWasteData_CacheHit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, sampleResponse)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(time.Millisecond), WithCacheTTL(time.Minute))
	req := Request{State: "Chandigarh", CollectionEfficiency: 90, Mileage: 12, PetrolLeft: 40}

	first, err := c.FetchWasteData(context.Background(), req)
	require.NoError(t, err)
	second, err := c.FetchWasteData(context.Background(), req)
	require.NoError(t, err)

	assert.Same(t, first, second, "second call must come from cache")
	assert.Equal(t, int32(1), calls.Load())

	// A different location is a different query.
	req.UserLocation = &UserLocation{Latitude: 30.73, Longitude: 76.77}
	_, err = c.FetchWasteData(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchWasteData_CacheDisabled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, sampleResponse)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(time.Millisecond), WithCacheTTL(0))
	req := Request{State: "Chandigarh"}
	_, err := c.FetchWasteData(context.Background(), req)
	require.NoError(t, err)
	_, err = c.FetchWasteData(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

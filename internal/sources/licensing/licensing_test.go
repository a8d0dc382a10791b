package licensing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfdaycarelist/directory/internal/config"
	"github.com/sfdaycarelist/directory/pkg/daycares"
	"github.com/sfdaycarelist/directory/pkg/errors"
)

func newTestCollector(t *testing.T, handler http.Handler) *Collector {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(config.LicensingConfig{BaseURL: srv.URL, PageSize: 10, Delay: 1})
	require.NoError(t, err)
	return c
}

func TestNewRequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := New(config.LicensingConfig{})
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestCollectPage(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/facilities/search", func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Page > 1 {
			_ = json.NewEncoder(w).Encode(searchResponse{})
			return
		}
		_ = json.NewEncoder(w).Encode(searchResponse{
			Facilities: []facilitySummary{
				{ID: "F-100", Name: "Sunshine Academy", Type: "DAY CARE CENTER", Status: "ACTIVE"},
			},
			Total: 1,
		})
	})
	mux.HandleFunc("/facilities/F-100", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(facilityDetail{
			ID:            "F-100",
			Name:          "Sunshine Academy",
			Type:          "DAY CARE CENTER",
			Status:        "ACTIVE",
			LicenseNumber: "384001234",
			Capacity:      40,
			Address:       "123 Valencia Street",
			Zip:           "94110",
			Phone:         "415-555-0100",
		})
	})
	mux.HandleFunc("/facilities/F-100/inspections", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(inspectionsResponse{
			Inspections: []inspection{
				{
					Date:  "2024-11-02",
					Score: 92,
					Violations: []violation{
						{Type: "health", Description: "expired sanitizer"},
					},
				},
				{Date: "2023-05-10", Score: 88},
			},
		})
	})

	c := newTestCollector(t, mux)
	records, next, err := c.Collect(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "2", next)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, daycares.SourceLicensing, rec.Source)
	assert.Equal(t, "F-100", rec.ExternalID)
	assert.Equal(t, "Sunshine Academy", rec.Name)
	assert.Equal(t, "384001234", rec.Licensing.Number)
	assert.Equal(t, "Mission", rec.Location.Neighborhood)
	assert.Equal(t, "2024-11-02", rec.Licensing.LastInspection)
	assert.Equal(t, 92.0, rec.Licensing.InspectionScore)
	require.Len(t, rec.Licensing.Violations, 1)
	assert.Equal(t, "2024-11-02", rec.Licensing.Violations[0].Date)
	assert.Equal(t, []string{"toddler", "preschool"}, rec.Program.AgeGroups)

	// The empty second page terminates the pass.
	records, next, err = c.Collect(context.Background(), next)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, next)
}

func TestCollectDetailFailureFallsBackToSummary(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/facilities/search", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(searchResponse{
			Facilities: []facilitySummary{
				{ID: "F-200", Name: "Little Stars", Type: "INFANT CENTER", Status: "ACTIVE"},
			},
		})
	})
	mux.HandleFunc("/facilities/F-200", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	c := newTestCollector(t, mux)
	records, next, err := c.Collect(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "2", next)
	require.Len(t, records, 1)
	assert.Equal(t, "Little Stars", records[0].Name)
	assert.Equal(t, []string{"infant", "toddler"}, records[0].Program.AgeGroups)
	assert.Empty(t, records[0].Licensing.Number)
}

func TestCollectSendsAppToken(t *testing.T) {
	t.Parallel()

	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-App-Token")
		_ = json.NewEncoder(w).Encode(searchResponse{})
	}))
	t.Cleanup(srv.Close)

	c, err := New(config.LicensingConfig{BaseURL: srv.URL, AppToken: "tok-123", PageSize: 10, Delay: 1})
	require.NoError(t, err)

	_, _, err = c.Collect(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", gotToken)
}

func TestCollectPermanentSearchFailureIsFatal(t *testing.T) {
	t.Parallel()

	c := newTestCollector(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	_, next, err := c.Collect(context.Background(), "")
	require.Error(t, err)
	assert.Empty(t, next)
}

func TestInferNeighborhood(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Mission", InferNeighborhood("600 Valencia Street", ""))
	assert.Equal(t, "Sunset", InferNeighborhood("1200 Irving Street", ""))
	assert.Equal(t, "Castro", InferNeighborhood("1 Unknown Road", "94114"))
	assert.Equal(t, "", InferNeighborhood("1 Unknown Road", "00000"))
}

func TestInferAgeGroups(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"infant", "toddler"}, InferAgeGroups("INFANT CENTER"))
	assert.Equal(t, []string{"infant", "toddler", "preschool"}, InferAgeGroups("FAMILY DAY CARE HOME"))
	assert.Equal(t, []string{"toddler", "preschool"}, InferAgeGroups("DAY CARE CENTER"))
	assert.Nil(t, InferAgeGroups("UNKNOWN"))
}

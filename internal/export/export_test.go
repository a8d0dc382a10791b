package export

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfdaycarelist/directory/pkg/daycares"
	"github.com/sfdaycarelist/directory/pkg/store/memory"
)

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()

	d := &daycares.Daycare{
		ID:   "id-1",
		Slug: "sunshine-academy",
		Name: "Sunshine Academy",
		Location: daycares.Location{
			Neighborhood: "Mission",
			City:         "San Francisco",
		},
		Licensing: daycares.Licensing{Number: "384001234", Status: "active", Capacity: 40},
		Program:   daycares.Program{AgeGroups: []string{"toddler", "preschool"}},
		Ratings:   daycares.Ratings{Overall: 4.3},
		Verified:  true,
		Status:    daycares.StatusActive,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err := st.Upsert(context.Background(), d)
	require.NoError(t, err)

	gone := &daycares.Daycare{
		ID: "id-2", Slug: "closed-place", Name: "Closed Place",
		Status:    daycares.StatusInactive,
		CreatedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	_, err = st.Upsert(context.Background(), gone)
	require.NoError(t, err)
	return st
}

func TestWriteDataset(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, New(seedStore(t)).WriteDataset(context.Background(), &buf))

	var ds Dataset
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ds))
	// Inactive records are excluded.
	assert.Equal(t, 1, ds.Count)
	require.Len(t, ds.Daycares, 1)

	entry := ds.Daycares[0]
	assert.Equal(t, "sunshine-academy", entry.Slug)
	assert.Equal(t, "Sunshine Academy | Daycare in Mission", entry.SEO.Title)
	assert.Contains(t, entry.SEO.Description, "licensed childcare facility in Mission")
	assert.Contains(t, entry.SEO.Description, "licensed for 40 children")
	assert.Contains(t, entry.SEO.Description, "rated 4.3 by parents")
	assert.Contains(t, entry.SEO.Keywords, "mission daycare")
}

func TestGenerateSEOUnverifiedNoArea(t *testing.T) {
	t.Parallel()

	seo := GenerateSEO(&daycares.Daycare{Name: "Little Stars"})
	assert.Equal(t, "Little Stars", seo.Title)
	assert.Equal(t, "Little Stars is a childcare facility.", seo.Description)
}

func TestWriteSitemap(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, New(seedStore(t)).WriteSitemap(context.Background(), &buf, "https://sfdaycarelist.com/"))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, "<loc>https://sfdaycarelist.com/</loc>")
	assert.Contains(t, out, "<loc>https://sfdaycarelist.com/daycare/sunshine-academy</loc>")
	assert.Contains(t, out, "<lastmod>2025-03-01</lastmod>")
	assert.NotContains(t, out, "closed-place")
}

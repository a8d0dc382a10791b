package merge

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfdaycarelist/directory/pkg/daycares"
	"github.com/sfdaycarelist/directory/pkg/errors"
)

func newTestEngine() *Engine {
	e := NewEngine(Options{})
	e.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func floatPtr(v float64) *float64 { return &v }

func TestApplyRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	e := newTestEngine()

	_, err := e.Apply(nil, daycares.RawRecord{Source: "bogus", Name: "X"})
	assert.True(t, errors.IsValidation(err))

	_, err = e.Apply(nil, daycares.RawRecord{Source: daycares.SourceLicensing, Name: "  "})
	assert.True(t, errors.IsValidation(err))
}

func TestApplyCreatesFreshRecord(t *testing.T) {
	t.Parallel()
	e := newTestEngine()

	got, err := e.Apply(nil, daycares.RawRecord{
		Source: daycares.SourceLicensing,
		Name:   "Sunshine Academy",
		Contact: daycares.Contact{
			Phone: "415-555-0100",
		},
		Licensing: daycares.Licensing{
			Number: "384001234",
			Status: "ACTIVE",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Sunshine Academy", got.Name)
	assert.Equal(t, "415-555-0100", got.Contact.Phone)
	assert.True(t, got.Verified)
	assert.True(t, got.NeedsGeocoding)
	assert.Equal(t, daycares.StatusActive, got.Status)
	assert.Equal(t, daycares.SourceLicensing, got.Provenance["licensing"])
	assert.False(t, got.CreatedAt.IsZero())
}

func TestEnrichmentFillsButNeverOverwrites(t *testing.T) {
	t.Parallel()
	e := newTestEngine()

	rec, err := e.Apply(nil, daycares.RawRecord{
		Source:  daycares.SourceManual,
		Name:    "Sunshine Academy",
		Contact: daycares.Contact{Phone: "415-555-0100"},
	})
	require.NoError(t, err)

	// Enrichment fills the empty website but must not touch the curated
	// phone.
	got, err := e.Apply(rec, daycares.RawRecord{
		Source: daycares.SourcePlaces,
		Name:   "Sunshine Academy",
		Contact: daycares.Contact{
			Phone:   "415-555-9999",
			Website: "https://sunshine.example.com",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "415-555-0100", got.Contact.Phone)
	assert.Equal(t, "https://sunshine.example.com", got.Contact.Website)
	assert.Equal(t, daycares.SourceManual, got.Provenance["contact.phone"])
	assert.Equal(t, daycares.SourcePlaces, got.Provenance["contact.website"])
}

func TestLicensingOverwritesCuration(t *testing.T) {
	t.Parallel()
	e := newTestEngine()

	rec, err := e.Apply(nil, daycares.RawRecord{
		Source:  daycares.SourceManual,
		Name:    "Sunshine Academy",
		Contact: daycares.Contact{Phone: "415-555-0100"},
	})
	require.NoError(t, err)

	got, err := e.Apply(rec, daycares.RawRecord{
		Source:  daycares.SourceLicensing,
		Name:    "Sunshine Academy Inc",
		Contact: daycares.Contact{Phone: "415-555-0200"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Sunshine Academy Inc", got.Name)
	assert.Equal(t, "415-555-0200", got.Contact.Phone)
}

func TestLicensingGroupProtectedFromEnrichment(t *testing.T) {
	t.Parallel()
	e := newTestEngine()

	rec, err := e.Apply(nil, daycares.RawRecord{
		Source:    daycares.SourceLicensing,
		Name:      "Sunshine Academy",
		Licensing: daycares.Licensing{Number: "384001234", Status: "active", Capacity: 40},
	})
	require.NoError(t, err)

	got, err := e.Apply(rec, daycares.RawRecord{
		Source:    daycares.SourcePlaces,
		Name:      "Sunshine Academy",
		Licensing: daycares.Licensing{Number: "999", Status: "revoked"},
	})
	require.NoError(t, err)
	assert.Equal(t, "384001234", got.Licensing.Number)
	assert.Equal(t, "active", got.Licensing.Status)
	assert.True(t, got.Verified)

	// Manual curation cannot displace registry data either.
	got, err = e.Apply(got, daycares.RawRecord{
		Source:    daycares.SourceManual,
		Name:      "Sunshine Academy",
		Licensing: daycares.Licensing{Number: "777"},
	})
	require.NoError(t, err)
	assert.Equal(t, "384001234", got.Licensing.Number)
}

func TestManualLicensingFillsRegistryGap(t *testing.T) {
	t.Parallel()
	e := newTestEngine()

	rec, err := e.Apply(nil, daycares.RawRecord{
		Source:    daycares.SourceManual,
		Name:      "Sunshine Academy",
		Licensing: daycares.Licensing{Number: "384009999", Status: "active"},
	})
	require.NoError(t, err)
	assert.Equal(t, "384009999", rec.Licensing.Number)

	// The registry later claims the group.
	got, err := e.Apply(rec, daycares.RawRecord{
		Source:    daycares.SourceLicensing,
		Name:      "Sunshine Academy",
		Licensing: daycares.Licensing{Number: "384001234", Status: "active"},
	})
	require.NoError(t, err)
	assert.Equal(t, "384001234", got.Licensing.Number)
	assert.Equal(t, daycares.SourceLicensing, got.Provenance["licensing"])
}

func TestAbsentSourceNeverErases(t *testing.T) {
	t.Parallel()
	e := newTestEngine()

	rec, err := e.Apply(nil, daycares.RawRecord{
		Source:       daycares.SourcePlaces,
		Name:         "Sunshine Academy",
		Contact:      daycares.Contact{Website: "https://sunshine.example.com"},
		Rating:       floatPtr(4.5),
		RatingSource: "google",
		ReviewCount:  12,
	})
	require.NoError(t, err)

	// A later licensing pass that carries none of those fields leaves
	// them intact.
	got, err := e.Apply(rec, daycares.RawRecord{
		Source:    daycares.SourceLicensing,
		Name:      "Sunshine Academy",
		Licensing: daycares.Licensing{Number: "384001234", Status: "active"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://sunshine.example.com", got.Contact.Website)
	assert.Equal(t, 4.5, got.Ratings.BySource["google"])
	assert.Equal(t, 12, got.Ratings.ReviewCount)
}

func TestOverallRatingRoundsHalfUp(t *testing.T) {
	t.Parallel()
	e := newTestEngine()

	rec, err := e.Apply(nil, daycares.RawRecord{
		Source:       daycares.SourcePlaces,
		Name:         "Sunshine Academy",
		Rating:       floatPtr(4.5),
		RatingSource: "google",
		ReviewCount:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, 4.5, rec.Ratings.Overall)

	got, err := e.Apply(rec, daycares.RawRecord{
		Source:       daycares.SourceReviews,
		Name:         "Sunshine Academy",
		Rating:       floatPtr(4.0),
		RatingSource: "yelp",
		ReviewCount:  5,
	})
	require.NoError(t, err)

	// (4.5 + 4.0) / 2 = 4.25, rounded half-up to 4.3.
	assert.Equal(t, 4.3, got.Ratings.Overall)
	assert.Equal(t, 15, got.Ratings.ReviewCount)

	// A refreshed rating replaces its own slot only.
	got, err = e.Apply(got, daycares.RawRecord{
		Source:       daycares.SourceReviews,
		Name:         "Sunshine Academy",
		Rating:       floatPtr(3.0),
		RatingSource: "yelp",
		ReviewCount:  6,
	})
	require.NoError(t, err)
	assert.Equal(t, 4.5, got.Ratings.BySource["google"])
	assert.Equal(t, 3.0, got.Ratings.BySource["yelp"])
	assert.InDelta(t, 3.8, got.Ratings.Overall, 1e-9)
}

func TestReviewsDedupedAndCapped(t *testing.T) {
	t.Parallel()
	e := NewEngine(Options{MaxReviewsPerSource: 2})
	e.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	got, err := e.Apply(nil, daycares.RawRecord{
		Source: daycares.SourceReviews,
		Name:   "Sunshine Academy",
		Reviews: []daycares.Review{
			{Author: "ana", Text: "great", Rating: 5},
			{Author: "ana", Text: "great", Rating: 5},
			{Author: "bo", Text: "fine", Rating: 4},
			{Author: "cy", Text: "ok", Rating: 3},
		},
	})
	require.NoError(t, err)
	require.Len(t, got.Reviews, 2)
	assert.Equal(t, "ana", got.Reviews[0].Author)
	assert.Equal(t, "bo", got.Reviews[1].Author)

	// The cap bounds the stored union per source, so a later pass cannot
	// grow past it. Other sources' reviews do not count against it.
	got.Reviews = append(got.Reviews, daycares.Review{Source: daycares.SourcePlaces, Author: "dee", Text: "nice"})
	got, err = e.Apply(got, daycares.RawRecord{
		Source:  daycares.SourceReviews,
		Name:    "Sunshine Academy",
		Reviews: []daycares.Review{{Author: "eli", Text: "new"}},
	})
	require.NoError(t, err)
	require.Len(t, got.Reviews, 3)
	assert.Equal(t, "ana", got.Reviews[0].Author)
	assert.Equal(t, "bo", got.Reviews[1].Author)
	assert.Equal(t, "dee", got.Reviews[2].Author)
}

func TestReviewsAccumulateAcrossPasses(t *testing.T) {
	t.Parallel()
	e := newTestEngine()

	rec, err := e.Apply(nil, daycares.RawRecord{
		Source: daycares.SourceReviews,
		Name:   "Sunshine Academy",
		Reviews: []daycares.Review{
			{Author: "ana", Text: "great", Rating: 5},
			{Author: "bo", Text: "fine", Rating: 4},
		},
		Photos: []daycares.Photo{{URL: "https://img.example.com/1.jpg"}},
	})
	require.NoError(t, err)

	// The feed rotates its window and now returns only the newest review.
	// Everything stored earlier survives; only the genuinely new entries
	// are appended.
	got, err := e.Apply(rec, daycares.RawRecord{
		Source: daycares.SourceReviews,
		Name:   "Sunshine Academy",
		Reviews: []daycares.Review{
			{Author: "cy", Text: "ok", Rating: 3},
			{Author: "bo", Text: "fine", Rating: 4},
		},
		Photos: []daycares.Photo{{URL: "https://img.example.com/2.jpg"}},
	})
	require.NoError(t, err)

	require.Len(t, got.Reviews, 3)
	assert.Equal(t, "ana", got.Reviews[0].Author)
	assert.Equal(t, "bo", got.Reviews[1].Author)
	assert.Equal(t, "cy", got.Reviews[2].Author)
	require.Len(t, got.Photos, 2)
	assert.Equal(t, "https://img.example.com/1.jpg", got.Photos[0].URL)
	assert.Equal(t, "https://img.example.com/2.jpg", got.Photos[1].URL)
}

func TestPhotosDedupedByURL(t *testing.T) {
	t.Parallel()
	e := newTestEngine()

	got, err := e.Apply(nil, daycares.RawRecord{
		Source: daycares.SourcePlaces,
		Name:   "Sunshine Academy",
		Photos: []daycares.Photo{
			{URL: "https://img.example.com/1.jpg"},
			{URL: "https://img.example.com/1.jpg"},
			{URL: "https://img.example.com/2.jpg"},
			{URL: ""},
		},
	})
	require.NoError(t, err)
	assert.Len(t, got.Photos, 2)
}

func TestApplyIsIdempotent(t *testing.T) {
	t.Parallel()
	e := newTestEngine()

	raw := daycares.RawRecord{
		Source:       daycares.SourceLicensing,
		Name:         "Sunshine Academy",
		Contact:      daycares.Contact{Phone: "415-555-0100"},
		Location:     daycares.Location{Address: "123 Main Street", Latitude: 37.79, Longitude: -122.41},
		Licensing:    daycares.Licensing{Number: "384001234", Status: "active", Capacity: 40},
		Hours:        map[string]string{"monday": "7:30-18:00"},
		Rating:       floatPtr(4.5),
		RatingSource: "google",
	}

	once, err := e.Apply(nil, raw)
	require.NoError(t, err)
	twice, err := e.Apply(once, raw)
	require.NoError(t, err)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second apply changed the record (-first +second):\n%s", diff)
	}
	assert.False(t, twice.NeedsGeocoding)
}

func TestProgramStrictlyFillIfEmpty(t *testing.T) {
	t.Parallel()
	e := newTestEngine()

	rec, err := e.Apply(nil, daycares.RawRecord{
		Source:  daycares.SourcePlaces,
		Name:    "Sunshine Academy",
		Program: daycares.Program{AgeGroups: []string{daycares.AgeBandInfant}},
	})
	require.NoError(t, err)

	// Even the registry cannot replace an occupied program block.
	got, err := e.Apply(rec, daycares.RawRecord{
		Source:  daycares.SourceLicensing,
		Name:    "Sunshine Academy",
		Program: daycares.Program{AgeGroups: []string{daycares.AgeBandPreschool}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{daycares.AgeBandInfant}, got.Program.AgeGroups)
}

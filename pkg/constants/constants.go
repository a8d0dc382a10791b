// Package constants provides shared constants used throughout the directory
// pipeline: timeouts, retry limits, pagination sizes, and per-source
// request delays that keep outbound call volume inside published rate
// limits.
package constants

import "time"

// Timeout constants define various timeout durations used in the pipeline.
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to source APIs.
	DefaultHTTPTimeout = 30 * time.Second

	// SourceTimeout is the timeout for one source's full collection pass.
	SourceTimeout = 30 * time.Minute

	// RunTimeout is the default timeout for a whole ingestion run.
	RunTimeout = 2 * time.Hour
)

// Retry constants.
const (
	// MaxRetries is the maximum number of retry attempts for a failed page fetch.
	MaxRetries = 3

	// RetryBackoff is the fixed backoff between retries of the same page.
	RetryBackoff = 1 * time.Second

	// MaxPageFailures is the number of consecutive unrecoverable page
	// failures after which a source's pass is abandoned.
	MaxPageFailures = 5
)

// Per-source inter-request delays. Applied on every call, success or
// failure, to respect each source's published rate limits.
const (
	LicensingRequestDelay = 1 * time.Second
	PlacesRequestDelay    = 200 * time.Millisecond
	ReviewsRequestDelay   = 500 * time.Millisecond

	// PlacesTokenSettleDelay is how long a places continuation token must
	// rest before it becomes valid.
	PlacesTokenSettleDelay = 2 * time.Second
)

// Pagination and cap constants.
const (
	// DefaultPageSize is the default number of facilities per search page.
	DefaultPageSize = 50

	// MaxPages is a safety limit on pages fetched from a single source.
	MaxPages = 200

	// DefaultMaxReviewsPerSource caps stored reviews per record per source.
	DefaultMaxReviewsPerSource = 20

	// DefaultMaxPhotosPerSource caps stored photos per record per source.
	DefaultMaxPhotosPerSource = 10

	// MaxSlugProbes bounds the -1, -2, ... suffix search for a free slug.
	MaxSlugProbes = 1000
)

// Directory defaults.
const (
	// DefaultCity is the city this directory covers.
	DefaultCity = "San Francisco"

	// DefaultState is the state this directory covers.
	DefaultState = "CA"

	// DefaultCurrency is the currency for monthly pricing.
	DefaultCurrency = "USD"
)

// City-center coordinates, used only as the map fallback at export time.
// Records without real coordinates are tagged needs_geocoding instead of
// being silently pinned here.
const (
	CityCenterLatitude  = 37.7749
	CityCenterLongitude = -122.4194
)

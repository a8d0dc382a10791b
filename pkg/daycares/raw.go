package daycares

import "time"

// RawRecord is a single facility record as produced by one source
// collector, before matching and merging. Collectors project their
// source-specific payloads into this shape; the merge engine decides
// which of its fields survive into the canonical record.
type RawRecord struct {
	Source     SourceID `json:"source"`
	ExternalID string   `json:"external_id"`

	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	Contact   Contact   `json:"contact,omitempty"`
	Location  Location  `json:"location,omitempty"`
	Licensing Licensing `json:"licensing,omitempty"`
	Program   Program   `json:"program,omitempty"`

	Availability Availability      `json:"availability,omitempty"`
	Pricing      Pricing           `json:"pricing,omitempty"`
	Hours        map[string]string `json:"hours,omitempty"`

	// RatingSource is the public name of the review platform the rating
	// came from (e.g. "google", "yelp"); it keys Ratings.BySource.
	Rating       *float64 `json:"rating,omitempty"`
	RatingSource string   `json:"rating_source,omitempty"`
	ReviewCount  int      `json:"review_count,omitempty"`

	Reviews []Review `json:"reviews,omitempty"`
	Photos  []Photo  `json:"photos,omitempty"`

	Premium *Premium `json:"premium,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
}

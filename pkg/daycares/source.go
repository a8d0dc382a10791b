package daycares

import "slices"

// SourceID identifies an ingestion data source.
type SourceID string

// String returns the string representation of a source ID.
func (id SourceID) String() string {
	return string(id)
}

// Known sources, in ingestion order: authoritative data first, curated
// data preserved next, enrichment last.
const (
	SourceLicensing SourceID = "licensing"
	SourceManual    SourceID = "manual"
	SourcePlaces    SourceID = "places"
	SourceReviews   SourceID = "reviews"
)

// SourceIDs returns all sources in their fixed ingestion order.
func SourceIDs() []SourceID {
	return []SourceID{
		SourceLicensing,
		SourceManual,
		SourcePlaces,
		SourceReviews,
	}
}

// IsValid returns true if the ID is one of the defined sources.
func (id SourceID) IsValid() bool {
	return slices.Contains(SourceIDs(), id)
}

// Rank returns the precedence of a source when resolving field conflicts.
// Higher wins. Enrichment sources share the lowest rank.
func (id SourceID) Rank() int {
	switch id {
	case SourceLicensing:
		return 3
	case SourceManual:
		return 2
	case SourcePlaces, SourceReviews:
		return 1
	default:
		return 0
	}
}

// Enrichment returns true for sources that only enrich existing records
// and are never allowed to write licensing fields.
func (id SourceID) Enrichment() bool {
	return id == SourcePlaces || id == SourceReviews
}

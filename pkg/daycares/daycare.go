// Package daycares defines the domain types for the daycare directory:
// the canonical facility record, the raw per-source record produced by
// collectors, and the source identifiers with their precedence ranks.
package daycares

import (
	"maps"
	"slices"
	"time"
)

// Status is the lifecycle status of a canonical record. Records are never
// hard-deleted by the ingestion pipeline; a facility that disappears from
// its sources is marked inactive instead.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Age bands used for availability spots and monthly pricing.
const (
	AgeBandInfant    = "infant"
	AgeBandToddler   = "toddler"
	AgeBandPreschool = "preschool"
)

// Daycare is the canonical merged representation of a facility.
// ID is internal and immutable; Slug is the stable external identity used
// in links and is assigned exactly once, at creation.
type Daycare struct {
	ID          string `json:"id" yaml:"id"`
	Slug        string `json:"slug" yaml:"slug"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	Contact      Contact      `json:"contact" yaml:"contact"`
	Location     Location     `json:"location" yaml:"location"`
	Licensing    Licensing    `json:"licensing" yaml:"licensing"`
	Program      Program      `json:"program" yaml:"program"`
	Availability Availability `json:"availability" yaml:"availability"`
	Pricing      Pricing      `json:"pricing" yaml:"pricing"`
	Ratings      Ratings      `json:"ratings" yaml:"ratings"`

	Hours   map[string]string `json:"hours,omitempty" yaml:"hours,omitempty"`
	Reviews []Review          `json:"reviews,omitempty" yaml:"reviews,omitempty"`
	Photos  []Photo           `json:"photos,omitempty" yaml:"photos,omitempty"`

	Verified bool    `json:"verified" yaml:"verified"`
	Premium  Premium `json:"premium" yaml:"premium"`
	Status   Status  `json:"status" yaml:"status"`

	// NeedsGeocoding marks records with no usable coordinates so map views
	// can exclude them instead of pinning them to a city-center default.
	NeedsGeocoding bool `json:"needs_geocoding,omitempty" yaml:"needs_geocoding,omitempty"`

	// Provenance records which source last wrote each protected field
	// group, so lower-precedence sources never overwrite curated or
	// authoritative values on later passes.
	Provenance map[string]SourceID `json:"provenance,omitempty" yaml:"provenance,omitempty"`

	// Views is owned by the serving layer, not the pipeline. Stores
	// preserve it across upserts.
	Views int64 `json:"-" yaml:"-"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Contact holds facility contact details.
type Contact struct {
	Phone   string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Email   string `json:"email,omitempty" yaml:"email,omitempty"`
	Website string `json:"website,omitempty" yaml:"website,omitempty"`
}

// Location holds the facility address and coordinates.
type Location struct {
	Address      string   `json:"address,omitempty" yaml:"address,omitempty"`
	City         string   `json:"city,omitempty" yaml:"city,omitempty"`
	State        string   `json:"state,omitempty" yaml:"state,omitempty"`
	Zip          string   `json:"zip,omitempty" yaml:"zip,omitempty"`
	Neighborhood string   `json:"neighborhood,omitempty" yaml:"neighborhood,omitempty"`
	Latitude     float64  `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude    float64  `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	Transit      []string `json:"public_transit,omitempty" yaml:"public_transit,omitempty"`
}

// Licensing holds the fields owned by the government licensing registry.
// Only the licensing source (or manual curation, when the registry has not
// spoken) may write these.
type Licensing struct {
	Number          string      `json:"license_number,omitempty" yaml:"license_number,omitempty"`
	Status          string      `json:"status,omitempty" yaml:"status,omitempty"`
	Type            string      `json:"type,omitempty" yaml:"type,omitempty"`
	Capacity        int         `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	IssuedDate      string      `json:"issued_date,omitempty" yaml:"issued_date,omitempty"`
	ExpirationDate  string      `json:"expiration_date,omitempty" yaml:"expiration_date,omitempty"`
	LastInspection  string      `json:"last_inspection,omitempty" yaml:"last_inspection,omitempty"`
	InspectionScore float64     `json:"inspection_score,omitempty" yaml:"inspection_score,omitempty"`
	Violations      []Violation `json:"violations,omitempty" yaml:"violations,omitempty"`
	DataSource      string      `json:"data_source,omitempty" yaml:"data_source,omitempty"`
}

// Empty reports whether no licensing field has been populated.
func (l Licensing) Empty() bool {
	return l.Number == "" && l.Status == "" && l.Type == "" && l.Capacity == 0 &&
		l.IssuedDate == "" && l.ExpirationDate == "" && l.LastInspection == "" &&
		l.InspectionScore == 0 && len(l.Violations) == 0
}

// Violation is a single inspection violation from the licensing registry.
type Violation struct {
	Date        string `json:"date,omitempty" yaml:"date,omitempty"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Program describes the care program offered.
type Program struct {
	AgeGroups       []string `json:"age_groups,omitempty" yaml:"age_groups,omitempty"`
	MinMonths       int      `json:"ages_min_months,omitempty" yaml:"ages_min_months,omitempty"`
	MaxYears        int      `json:"ages_max_years,omitempty" yaml:"ages_max_years,omitempty"`
	Languages       []string `json:"languages,omitempty" yaml:"languages,omitempty"`
	Curriculum      string   `json:"curriculum,omitempty" yaml:"curriculum,omitempty"`
	SpecialPrograms []string `json:"special_programs,omitempty" yaml:"special_programs,omitempty"`
}

// Empty reports whether no program field has been populated.
func (p Program) Empty() bool {
	return len(p.AgeGroups) == 0 && p.MinMonths == 0 && p.MaxYears == 0 &&
		len(p.Languages) == 0 && p.Curriculum == "" && len(p.SpecialPrograms) == 0
}

// Availability describes current enrollment openings.
type Availability struct {
	AcceptingEnrollment *bool          `json:"accepting_enrollment,omitempty" yaml:"accepting_enrollment,omitempty"`
	Spots               map[string]int `json:"spots,omitempty" yaml:"spots,omitempty"`
	Waitlist            *bool          `json:"waitlist_available,omitempty" yaml:"waitlist_available,omitempty"`
	LastUpdated         time.Time      `json:"last_updated,omitempty" yaml:"last_updated,omitempty"`
}

// Pricing holds monthly rates by age band.
type Pricing struct {
	Monthly  map[string]float64 `json:"monthly,omitempty" yaml:"monthly,omitempty"`
	Currency string             `json:"currency,omitempty" yaml:"currency,omitempty"`
}

// Ratings aggregates per-source review scores. Overall is always a pure
// function of the per-source values currently present.
type Ratings struct {
	BySource      map[string]float64 `json:"by_source,omitempty" yaml:"by_source,omitempty"`
	CountBySource map[string]int     `json:"count_by_source,omitempty" yaml:"count_by_source,omitempty"`
	ReviewCount   int                `json:"review_count,omitempty" yaml:"review_count,omitempty"`
	Overall       float64            `json:"overall,omitempty" yaml:"overall,omitempty"`
}

// Review is a provenance-tagged user review.
type Review struct {
	Source SourceID `json:"source" yaml:"source"`
	Author string   `json:"author,omitempty" yaml:"author,omitempty"`
	Rating float64  `json:"rating,omitempty" yaml:"rating,omitempty"`
	Text   string   `json:"text,omitempty" yaml:"text,omitempty"`
	Date   string   `json:"date,omitempty" yaml:"date,omitempty"`
}

// Photo is a provenance-tagged photo URL.
type Photo struct {
	Source SourceID `json:"source" yaml:"source"`
	URL    string   `json:"url" yaml:"url"`
}

// Premium holds paid-listing state. The pipeline carries it but only
// manual curation writes it.
type Premium struct {
	IsPremium     bool   `json:"is_premium" yaml:"is_premium"`
	Tier          string `json:"tier,omitempty" yaml:"tier,omitempty"`
	FeaturedUntil string `json:"featured_until,omitempty" yaml:"featured_until,omitempty"`
}

// Clone returns a deep copy of the record. Stores hand out clones so
// callers cannot mutate persisted state in place.
func (d *Daycare) Clone() *Daycare {
	if d == nil {
		return nil
	}
	c := *d
	c.Location.Transit = slices.Clone(d.Location.Transit)
	c.Licensing.Violations = slices.Clone(d.Licensing.Violations)
	c.Program.AgeGroups = slices.Clone(d.Program.AgeGroups)
	c.Program.Languages = slices.Clone(d.Program.Languages)
	c.Program.SpecialPrograms = slices.Clone(d.Program.SpecialPrograms)
	c.Reviews = slices.Clone(d.Reviews)
	c.Photos = slices.Clone(d.Photos)
	c.Hours = maps.Clone(d.Hours)
	c.Provenance = maps.Clone(d.Provenance)
	c.Ratings.BySource = maps.Clone(d.Ratings.BySource)
	c.Ratings.CountBySource = maps.Clone(d.Ratings.CountBySource)
	c.Availability.Spots = maps.Clone(d.Availability.Spots)
	c.Pricing.Monthly = maps.Clone(d.Pricing.Monthly)
	if d.Availability.AcceptingEnrollment != nil {
		v := *d.Availability.AcceptingEnrollment
		c.Availability.AcceptingEnrollment = &v
	}
	if d.Availability.Waitlist != nil {
		v := *d.Availability.Waitlist
		c.Availability.Waitlist = &v
	}
	return &c
}

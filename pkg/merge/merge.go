// Package merge folds raw source records into canonical facility
// records under source-precedence rules. The registry owns licensing
// fields, curation is protected from enrichment overwrites, and an
// absent source never erases data a previous pass wrote.
package merge

import (
	"strings"
	"time"

	"github.com/sfdaycarelist/directory/pkg/constants"
	"github.com/sfdaycarelist/directory/pkg/daycares"
	"github.com/sfdaycarelist/directory/pkg/errors"
)

// Options configures a merge Engine.
type Options struct {
	// MaxReviewsPerSource caps stored reviews per record per source.
	// Zero means constants.DefaultMaxReviewsPerSource.
	MaxReviewsPerSource int

	// MaxPhotosPerSource caps stored photos per record per source.
	// Zero means constants.DefaultMaxPhotosPerSource.
	MaxPhotosPerSource int
}

// Engine applies raw records to canonical records. It is stateless and
// safe for concurrent use.
type Engine struct {
	opts Options
	now  func() time.Time
}

// NewEngine returns an Engine with the given options.
func NewEngine(opts Options) *Engine {
	if opts.MaxReviewsPerSource <= 0 {
		opts.MaxReviewsPerSource = constants.DefaultMaxReviewsPerSource
	}
	if opts.MaxPhotosPerSource <= 0 {
		opts.MaxPhotosPerSource = constants.DefaultMaxPhotosPerSource
	}
	return &Engine{opts: opts, now: time.Now}
}

// Apply merges raw into existing and returns the merged record. The
// existing record is not mutated; pass nil to build a fresh record.
// Fields raw does not carry are left untouched.
func (e *Engine) Apply(existing *daycares.Daycare, raw daycares.RawRecord) (*daycares.Daycare, error) {
	if !raw.Source.IsValid() {
		return nil, errors.NewValidationError("source", raw.Source, "unknown source")
	}
	if strings.TrimSpace(raw.Name) == "" {
		return nil, errors.NewValidationError("name", raw.Name, "record has no name")
	}

	rec := existing.Clone()
	if rec == nil {
		rec = &daycares.Daycare{}
	}
	if rec.Provenance == nil {
		rec.Provenance = map[string]daycares.SourceID{}
	}

	src := raw.Source
	e.setString(rec, "name", &rec.Name, strings.TrimSpace(raw.Name), src)
	e.fillString(rec, "description", &rec.Description, raw.Description, src)

	e.mergeContact(rec, raw.Contact, src)
	e.mergeLocation(rec, raw.Location, src)
	e.mergeLicensing(rec, raw.Licensing, src)
	e.mergeProgram(rec, raw.Program, src)
	e.mergeHours(rec, raw.Hours, src)
	e.mergeAvailability(rec, raw.Availability, src)
	e.mergePricing(rec, raw.Pricing, src)
	e.mergePremium(rec, raw.Premium, src)
	e.mergeRatings(rec, raw)
	e.mergeReviews(rec, raw.Reviews, src)
	e.mergePhotos(rec, raw.Photos, src)

	rec.Verified = strings.EqualFold(rec.Licensing.Status, "active") && rec.Licensing.Number != ""
	rec.NeedsGeocoding = rec.Location.Latitude == 0 && rec.Location.Longitude == 0
	if rec.Status == "" {
		rec.Status = daycares.StatusActive
	}

	now := e.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return rec, nil
}

func (e *Engine) mergeContact(rec *daycares.Daycare, c daycares.Contact, src daycares.SourceID) {
	e.setString(rec, "contact.phone", &rec.Contact.Phone, c.Phone, src)
	e.setString(rec, "contact.email", &rec.Contact.Email, c.Email, src)
	e.setString(rec, "contact.website", &rec.Contact.Website, c.Website, src)
}

func (e *Engine) mergeLocation(rec *daycares.Daycare, l daycares.Location, src daycares.SourceID) {
	e.setString(rec, "location.address", &rec.Location.Address, l.Address, src)
	e.setString(rec, "location.city", &rec.Location.City, l.City, src)
	e.setString(rec, "location.state", &rec.Location.State, l.State, src)
	e.setString(rec, "location.zip", &rec.Location.Zip, l.Zip, src)
	e.setString(rec, "location.neighborhood", &rec.Location.Neighborhood, l.Neighborhood, src)

	// Coordinates move together.
	if l.Latitude != 0 || l.Longitude != 0 {
		const path = "location.coordinates"
		empty := rec.Location.Latitude == 0 && rec.Location.Longitude == 0
		if empty || e.canOverwrite(rec, path, src) {
			rec.Location.Latitude = l.Latitude
			rec.Location.Longitude = l.Longitude
			rec.Provenance[path] = src
		}
	}
	if len(l.Transit) > 0 && (len(rec.Location.Transit) == 0 || e.canOverwrite(rec, "location.transit", src)) {
		rec.Location.Transit = append([]string(nil), l.Transit...)
		rec.Provenance["location.transit"] = src
	}
}

// mergeLicensing replaces the licensing field group. Only the registry
// and manual curation may write it; the registry always wins, manual
// only fills a gap the registry has not claimed.
func (e *Engine) mergeLicensing(rec *daycares.Daycare, l daycares.Licensing, src daycares.SourceID) {
	if l.Empty() || src.Enrichment() {
		return
	}
	const path = "licensing"
	if src == daycares.SourceManual {
		owner, ok := rec.Provenance[path]
		if ok && owner == daycares.SourceLicensing {
			return
		}
		if !rec.Licensing.Empty() && !ok {
			return
		}
	}
	if l.DataSource == "" {
		l.DataSource = src.String()
	}
	rec.Licensing = l
	rec.Licensing.Violations = append([]daycares.Violation(nil), l.Violations...)
	rec.Provenance[path] = src
}

// mergeProgram fills program details only when nothing is there yet.
func (e *Engine) mergeProgram(rec *daycares.Daycare, p daycares.Program, src daycares.SourceID) {
	if p.Empty() || !rec.Program.Empty() {
		return
	}
	rec.Program = p
	rec.Program.AgeGroups = append([]string(nil), p.AgeGroups...)
	rec.Program.Languages = append([]string(nil), p.Languages...)
	rec.Program.SpecialPrograms = append([]string(nil), p.SpecialPrograms...)
	rec.Provenance["program"] = src
}

func (e *Engine) mergeHours(rec *daycares.Daycare, hours map[string]string, src daycares.SourceID) {
	if len(hours) == 0 {
		return
	}
	const path = "hours"
	if len(rec.Hours) > 0 && !e.canOverwrite(rec, path, src) {
		return
	}
	rec.Hours = map[string]string{}
	for k, v := range hours {
		rec.Hours[k] = v
	}
	rec.Provenance[path] = src
}

func (e *Engine) mergeAvailability(rec *daycares.Daycare, a daycares.Availability, src daycares.SourceID) {
	if a.AcceptingEnrollment == nil && a.Waitlist == nil && len(a.Spots) == 0 {
		return
	}
	const path = "availability"
	existing := rec.Availability
	empty := existing.AcceptingEnrollment == nil && existing.Waitlist == nil && len(existing.Spots) == 0
	if !empty && !e.canOverwrite(rec, path, src) {
		return
	}
	rec.Availability = a
	if len(a.Spots) > 0 {
		rec.Availability.Spots = map[string]int{}
		for k, v := range a.Spots {
			rec.Availability.Spots[k] = v
		}
	}
	if rec.Availability.LastUpdated.IsZero() {
		rec.Availability.LastUpdated = e.now().UTC()
	}
	rec.Provenance[path] = src
}

func (e *Engine) mergePricing(rec *daycares.Daycare, p daycares.Pricing, src daycares.SourceID) {
	if len(p.Monthly) == 0 {
		return
	}
	const path = "pricing"
	if len(rec.Pricing.Monthly) > 0 && !e.canOverwrite(rec, path, src) {
		return
	}
	rec.Pricing.Monthly = map[string]float64{}
	for k, v := range p.Monthly {
		rec.Pricing.Monthly[k] = v
	}
	rec.Pricing.Currency = p.Currency
	if rec.Pricing.Currency == "" {
		rec.Pricing.Currency = constants.DefaultCurrency
	}
	rec.Provenance[path] = src
}

// mergePremium accepts paid-listing state from manual curation only.
func (e *Engine) mergePremium(rec *daycares.Daycare, p *daycares.Premium, src daycares.SourceID) {
	if p == nil || src != daycares.SourceManual {
		return
	}
	rec.Premium = *p
	rec.Provenance["premium"] = src
}

// mergeReviews union-appends the incoming batch. Reviews already stored
// survive every pass, including ones the source no longer returns, so a
// feed that rotates its window only ever grows the record. Duplicates by
// (author, text) are skipped and the per-source cap bounds the union.
func (e *Engine) mergeReviews(rec *daycares.Daycare, reviews []daycares.Review, src daycares.SourceID) {
	if len(reviews) == 0 {
		return
	}
	seen := map[[2]string]bool{}
	count := 0
	for _, r := range rec.Reviews {
		seen[[2]string{r.Author, r.Text}] = true
		if r.Source == src {
			count++
		}
	}
	for _, r := range reviews {
		key := [2]string{r.Author, r.Text}
		if seen[key] {
			continue
		}
		if count >= e.opts.MaxReviewsPerSource {
			break
		}
		seen[key] = true
		r.Source = src
		rec.Reviews = append(rec.Reviews, r)
		count++
	}
}

// mergePhotos union-appends the incoming batch under the same rules as
// mergeReviews, keyed by URL.
func (e *Engine) mergePhotos(rec *daycares.Daycare, photos []daycares.Photo, src daycares.SourceID) {
	if len(photos) == 0 {
		return
	}
	seen := map[string]bool{}
	count := 0
	for _, p := range rec.Photos {
		seen[p.URL] = true
		if p.Source == src {
			count++
		}
	}
	for _, p := range photos {
		if p.URL == "" || seen[p.URL] {
			continue
		}
		if count >= e.opts.MaxPhotosPerSource {
			break
		}
		seen[p.URL] = true
		p.Source = src
		rec.Photos = append(rec.Photos, p)
		count++
	}
}

// setString writes a scalar field under precedence rules: empty fields
// are filled by anyone, occupied fields only by a non-enrichment source
// whose rank is at least the recorded owner's.
func (e *Engine) setString(rec *daycares.Daycare, path string, dst *string, val string, src daycares.SourceID) {
	if val == "" {
		return
	}
	if *dst == "" || e.canOverwrite(rec, path, src) {
		*dst = val
		rec.Provenance[path] = src
	}
}

// fillString writes a scalar field only when it is empty, regardless of
// source rank.
func (e *Engine) fillString(rec *daycares.Daycare, path string, dst *string, val string, src daycares.SourceID) {
	if val == "" || *dst != "" {
		return
	}
	*dst = val
	rec.Provenance[path] = src
}

// canOverwrite reports whether src may replace an occupied field at
// path. Enrichment sources never overwrite; otherwise the incoming
// rank must meet the recorded owner's rank. Fields with no recorded
// owner are treated as enrichment-ranked.
func (e *Engine) canOverwrite(rec *daycares.Daycare, path string, src daycares.SourceID) bool {
	if src.Enrichment() {
		return false
	}
	ownerRank := 1
	if owner, ok := rec.Provenance[path]; ok {
		ownerRank = owner.Rank()
	}
	return src.Rank() >= ownerRank
}

// Package manual collects curated facility data: a YAML seed file
// maintained by hand, plus curated fields already present in the store.
// Re-emitting store-held curation keeps those fields protected by
// provenance even when the directory is rebuilt from an empty dataset.
package manual

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/sfdaycarelist/directory/internal/config"
	"github.com/sfdaycarelist/directory/pkg/daycares"
	"github.com/sfdaycarelist/directory/pkg/errors"
	"github.com/sfdaycarelist/directory/pkg/store"
)

// Collector emits all curated records in a single page.
type Collector struct {
	cfg   config.ManualConfig
	store store.Store
}

// New creates a manual collector. The store may be nil when only the
// seed file feeds this source.
func New(cfg config.ManualConfig, st store.Store) (*Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Collector{cfg: cfg, store: st}, nil
}

// Source identifies this collector.
func (c *Collector) Source() daycares.SourceID { return daycares.SourceManual }

// seedFile is the YAML shape of the curated seed file.
type seedFile struct {
	Daycares []seedRecord `yaml:"daycares"`
}

type seedRecord struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Contact     daycares.Contact  `yaml:"contact,omitempty"`
	Location    daycares.Location `yaml:"location,omitempty"`
	Program     daycares.Program  `yaml:"program,omitempty"`
	Pricing     daycares.Pricing  `yaml:"pricing,omitempty"`
	Hours       map[string]string `yaml:"hours,omitempty"`
	Premium     *daycares.Premium `yaml:"premium,omitempty"`

	LicenseNumber string `yaml:"license_number,omitempty"`
	LicenseStatus string `yaml:"license_status,omitempty"`
}

// Collect returns every curated record in one page. The manual source
// has no pagination; the first call drains it and the second call
// terminates cleanly.
func (c *Collector) Collect(ctx context.Context, cursor string) ([]daycares.RawRecord, string, error) {
	if cursor != "" {
		return nil, "", nil
	}

	var records []daycares.RawRecord
	seeded, err := c.loadSeedFile()
	if err != nil {
		return nil, "", err
	}
	records = append(records, seeded...)

	if c.store != nil {
		curated, err := c.curatedFromStore(ctx)
		if err != nil {
			return nil, "", err
		}
		records = append(records, curated...)
	}
	if len(records) == 0 {
		return nil, "", nil
	}
	return records, "done", nil
}

func (c *Collector) loadSeedFile() ([]daycares.RawRecord, error) {
	if c.cfg.SeedFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.cfg.SeedFile)
	if err != nil {
		return nil, errors.NewConfigError("manual", fmt.Sprintf("reading seed file %s", c.cfg.SeedFile), err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, errors.NewConfigError("manual", fmt.Sprintf("parsing seed file %s", c.cfg.SeedFile), err)
	}

	now := time.Now().UTC()
	records := make([]daycares.RawRecord, 0, len(seed.Daycares))
	for _, s := range seed.Daycares {
		records = append(records, daycares.RawRecord{
			Source:      daycares.SourceManual,
			Name:        s.Name,
			Description: s.Description,
			Contact:     s.Contact,
			Location:    s.Location,
			Program:     s.Program,
			Pricing:     s.Pricing,
			Hours:       s.Hours,
			Premium:     s.Premium,
			Licensing: daycares.Licensing{
				Number: s.LicenseNumber,
				Status: s.LicenseStatus,
			},
			FetchedAt: now,
		})
	}
	return records, nil
}

// curatedFromStore projects each stored record's manually owned fields
// back into a raw record, so a fresh merge pass re-stamps the manual
// provenance on exactly the fields curation wrote.
func (c *Collector) curatedFromStore(ctx context.Context) ([]daycares.RawRecord, error) {
	existing, err := c.store.List(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("listing curated records: %w", err)
	}

	var records []daycares.RawRecord
	for _, d := range existing {
		raw, ok := projectManualFields(d)
		if ok {
			records = append(records, raw)
		}
	}
	return records, nil
}

// projectManualFields builds a raw record carrying only the fields the
// manual source owns on this record. Returns false when nothing on the
// record is curated.
func projectManualFields(d *daycares.Daycare) (daycares.RawRecord, bool) {
	raw := daycares.RawRecord{
		Source:    daycares.SourceManual,
		Name:      d.Name,
		FetchedAt: time.Now().UTC(),
	}
	found := false
	for path, src := range d.Provenance {
		if src != daycares.SourceManual {
			continue
		}
		found = true
		switch path {
		case "name":
			// Already carried.
		case "description":
			raw.Description = d.Description
		case "contact.phone":
			raw.Contact.Phone = d.Contact.Phone
		case "contact.email":
			raw.Contact.Email = d.Contact.Email
		case "contact.website":
			raw.Contact.Website = d.Contact.Website
		case "location.address":
			raw.Location.Address = d.Location.Address
		case "location.city":
			raw.Location.City = d.Location.City
		case "location.state":
			raw.Location.State = d.Location.State
		case "location.zip":
			raw.Location.Zip = d.Location.Zip
		case "location.neighborhood":
			raw.Location.Neighborhood = d.Location.Neighborhood
		case "location.coordinates":
			raw.Location.Latitude = d.Location.Latitude
			raw.Location.Longitude = d.Location.Longitude
		case "location.transit":
			raw.Location.Transit = d.Location.Transit
		case "licensing":
			raw.Licensing = d.Licensing
		case "program":
			raw.Program = d.Program
		case "hours":
			raw.Hours = d.Hours
		case "pricing":
			raw.Pricing = d.Pricing
		case "availability":
			raw.Availability = d.Availability
		case "premium":
			premium := d.Premium
			raw.Premium = &premium
		}
	}
	return raw, found
}

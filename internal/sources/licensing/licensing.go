// Package licensing collects facility records from the state childcare
// licensing registry. The registry is the authority for license fields;
// records it emits carry the full licensing block including inspection
// history.
package licensing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sfdaycarelist/directory/internal/config"
	"github.com/sfdaycarelist/directory/internal/transport"
	"github.com/sfdaycarelist/directory/pkg/constants"
	"github.com/sfdaycarelist/directory/pkg/daycares"
	"github.com/sfdaycarelist/directory/pkg/errors"
	"github.com/sfdaycarelist/directory/pkg/logging"
)

// Collector pulls licensed facilities from the registry, one search
// page per Collect call. The cursor is the 1-based page number.
type Collector struct {
	cfg    config.LicensingConfig
	client *transport.Client
}

// New creates a licensing collector. An invalid configuration is a
// fatal error for this source.
func New(cfg config.LicensingConfig) (*Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := []transport.Option{
		transport.WithDelay(cfg.Delay),
		transport.WithRetries(constants.MaxRetries, constants.RetryBackoff),
	}
	if cfg.AppToken != "" {
		opts = append(opts, transport.WithAuth(&transport.HeaderAuth{Header: "X-App-Token"}, cfg.AppToken))
	}
	return &Collector{
		cfg:    cfg,
		client: transport.New("licensing", opts...),
	}, nil
}

// Source identifies this collector.
func (c *Collector) Source() daycares.SourceID { return daycares.SourceLicensing }

type searchRequest struct {
	City     string `json:"city"`
	State    string `json:"state"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

type searchResponse struct {
	Facilities []facilitySummary `json:"facilities"`
	Total      int               `json:"total"`
}

type facilitySummary struct {
	ID     string `json:"facility_id"`
	Name   string `json:"facility_name"`
	Type   string `json:"facility_type"`
	Status string `json:"license_status"`
}

type facilityDetail struct {
	ID             string  `json:"facility_id"`
	Name           string  `json:"facility_name"`
	Type           string  `json:"facility_type"`
	Status         string  `json:"license_status"`
	LicenseNumber  string  `json:"license_number"`
	Capacity       int     `json:"capacity"`
	Address        string  `json:"address"`
	City           string  `json:"city"`
	State          string  `json:"state"`
	Zip            string  `json:"zip"`
	Phone          string  `json:"phone"`
	IssuedDate     string  `json:"license_issued_date"`
	ExpirationDate string  `json:"license_expiration_date"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}

type inspectionsResponse struct {
	Inspections []inspection `json:"inspections"`
}

type inspection struct {
	Date       string      `json:"inspection_date"`
	Score      float64     `json:"score"`
	Violations []violation `json:"violations"`
}

type violation struct {
	Date        string `json:"violation_date"`
	Type        string `json:"violation_type"`
	Description string `json:"description"`
}

// Collect fetches one search page and the per-facility details behind
// it. A failed page after retries is skipped; the pass resumes at the
// next page. A permanent failure abandons the source.
func (c *Collector) Collect(ctx context.Context, cursor string) ([]daycares.RawRecord, string, error) {
	page := 1
	if cursor != "" {
		p, err := strconv.Atoi(cursor)
		if err != nil {
			logging.FromContext(ctx).Warn().
				Str("cursor", cursor).
				Msg("unparseable licensing cursor, restarting from page 1")
		} else {
			page = p
		}
	}

	var resp searchResponse
	err := c.client.PostJSON(ctx, c.cfg.BaseURL+"/facilities/search", searchRequest{
		City:     constants.DefaultCity,
		State:    constants.DefaultState,
		Page:     page,
		PageSize: c.cfg.PageSize,
	}, &resp)
	if err != nil {
		if errors.IsTransient(err) {
			// Skip this page, resume at the next one.
			return nil, strconv.Itoa(page + 1), err
		}
		return nil, "", err
	}
	if len(resp.Facilities) == 0 {
		return nil, "", nil
	}

	log := logging.FromContext(ctx)
	records := make([]daycares.RawRecord, 0, len(resp.Facilities))
	for _, f := range resp.Facilities {
		rec, err := c.fetchFacility(ctx, f)
		if err != nil {
			if ctx.Err() != nil {
				return records, strconv.Itoa(page), ctx.Err()
			}
			// Detail lookups are enrichment on top of the search row; fall
			// back to what the search already gave us.
			log.Warn().Err(err).Str("facility_id", f.ID).Msg("facility detail fetch failed, using search data")
			rec = c.fromSummary(f)
		}
		records = append(records, rec)
	}
	return records, strconv.Itoa(page + 1), nil
}

func (c *Collector) fetchFacility(ctx context.Context, f facilitySummary) (daycares.RawRecord, error) {
	var detail facilityDetail
	url := fmt.Sprintf("%s/facilities/%s", c.cfg.BaseURL, f.ID)
	if err := c.client.GetJSON(ctx, url, &detail); err != nil {
		return daycares.RawRecord{}, err
	}

	rec := daycares.RawRecord{
		Source:     daycares.SourceLicensing,
		ExternalID: detail.ID,
		Name:       detail.Name,
		Contact: daycares.Contact{
			Phone: detail.Phone,
		},
		Location: daycares.Location{
			Address:      detail.Address,
			City:         orDefault(detail.City, constants.DefaultCity),
			State:        orDefault(detail.State, constants.DefaultState),
			Zip:          detail.Zip,
			Neighborhood: InferNeighborhood(detail.Address, detail.Zip),
			Latitude:     detail.Latitude,
			Longitude:    detail.Longitude,
		},
		Licensing: daycares.Licensing{
			Number:         detail.LicenseNumber,
			Status:         detail.Status,
			Type:           detail.Type,
			Capacity:       detail.Capacity,
			IssuedDate:     detail.IssuedDate,
			ExpirationDate: detail.ExpirationDate,
			DataSource:     "state registry",
		},
		Program: daycares.Program{
			AgeGroups: InferAgeGroups(detail.Type),
		},
		FetchedAt: time.Now().UTC(),
	}

	var insp inspectionsResponse
	url = fmt.Sprintf("%s/facilities/%s/inspections", c.cfg.BaseURL, f.ID)
	if err := c.client.GetJSON(ctx, url, &insp); err != nil {
		// Inspections are optional detail; the record stands without them.
		logging.FromContext(ctx).Debug().Err(err).Str("facility_id", f.ID).Msg("inspections fetch failed")
		return rec, nil
	}
	applyInspections(&rec.Licensing, insp.Inspections)
	return rec, nil
}

func (c *Collector) fromSummary(f facilitySummary) daycares.RawRecord {
	return daycares.RawRecord{
		Source:     daycares.SourceLicensing,
		ExternalID: f.ID,
		Name:       f.Name,
		Location: daycares.Location{
			City:  constants.DefaultCity,
			State: constants.DefaultState,
		},
		Licensing: daycares.Licensing{
			Status:     f.Status,
			Type:       f.Type,
			DataSource: "state registry",
		},
		Program: daycares.Program{
			AgeGroups: InferAgeGroups(f.Type),
		},
		FetchedAt: time.Now().UTC(),
	}
}

// applyInspections records the most recent inspection date and score
// and flattens all violations onto the licensing block. Inspections
// arrive newest first.
func applyInspections(l *daycares.Licensing, inspections []inspection) {
	if len(inspections) == 0 {
		return
	}
	l.LastInspection = inspections[0].Date
	l.InspectionScore = inspections[0].Score
	for _, ins := range inspections {
		for _, v := range ins.Violations {
			date := v.Date
			if date == "" {
				date = ins.Date
			}
			l.Violations = append(l.Violations, daycares.Violation{
				Date:        date,
				Type:        v.Type,
				Description: v.Description,
			})
		}
	}
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// Package places collects enrichment data from a places search API:
// ratings, photos, opening hours, websites, and coordinates. It is an
// enrichment source; nothing it emits can displace registry or curated
// data.
package places

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sfdaycarelist/directory/internal/config"
	"github.com/sfdaycarelist/directory/internal/transport"
	"github.com/sfdaycarelist/directory/pkg/constants"
	"github.com/sfdaycarelist/directory/pkg/daycares"
	"github.com/sfdaycarelist/directory/pkg/errors"
)

// RatingSource keys this source's slot in Ratings.BySource.
const RatingSource = "google"

const searchQuery = "daycare OR preschool OR childcare"

// Collector pulls one page of place results per Collect call. The
// cursor is the API's continuation token, which must rest before use.
type Collector struct {
	cfg    config.PlacesConfig
	client *transport.Client
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a places collector. An invalid configuration is a fatal
// error for this source.
func New(cfg config.PlacesConfig) (*Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Collector{
		cfg: cfg,
		client: transport.New("places",
			transport.WithAuth(&transport.QueryAuth{Param: "key"}, cfg.APIKey),
			transport.WithDelay(cfg.Delay),
			transport.WithRetries(constants.MaxRetries, constants.RetryBackoff)),
		sleep: sleepCtx,
	}, nil
}

// Source identifies this collector.
func (c *Collector) Source() daycares.SourceID { return daycares.SourcePlaces }

type searchResponse struct {
	Results       []placeSummary `json:"results"`
	NextPageToken string         `json:"next_page_token"`
	Status        string         `json:"status"`
}

type placeSummary struct {
	PlaceID string `json:"place_id"`
	Name    string `json:"name"`
}

type detailsResponse struct {
	Result placeDetail `json:"result"`
	Status string      `json:"status"`
}

type placeDetail struct {
	PlaceID     string  `json:"place_id"`
	Name        string  `json:"name"`
	Address     string  `json:"formatted_address"`
	Phone       string  `json:"formatted_phone_number"`
	Website     string  `json:"website"`
	Rating      float64 `json:"rating"`
	RatingCount int     `json:"user_ratings_total"`
	Geometry    struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	OpeningHours struct {
		WeekdayText []string `json:"weekday_text"`
	} `json:"opening_hours"`
	Photos []struct {
		Reference string `json:"photo_reference"`
	} `json:"photos"`
}

// Collect fetches one search page and the details behind it. A cursor
// is a continuation token that is only valid after a settle delay.
func (c *Collector) Collect(ctx context.Context, cursor string) ([]daycares.RawRecord, string, error) {
	q := url.Values{}
	if cursor != "" {
		if err := c.sleep(ctx, c.cfg.SettleDelay); err != nil {
			return nil, cursor, err
		}
		q.Set("pagetoken", cursor)
	} else {
		q.Set("query", fmt.Sprintf("%s in %s, %s", searchQuery, constants.DefaultCity, constants.DefaultState))
	}

	var resp searchResponse
	err := c.client.GetJSON(ctx, c.cfg.BaseURL+"/textsearch/json?"+q.Encode(), &resp)
	if err != nil {
		if errors.IsTransient(err) && cursor != "" {
			// The token survives a failed attempt; skip ahead with it.
			return nil, cursor, err
		}
		return nil, "", err
	}
	if resp.Status == "REQUEST_DENIED" {
		return nil, "", errors.NewConfigError("places", "request denied, check API key", nil)
	}
	if len(resp.Results) == 0 {
		return nil, "", nil
	}

	records := make([]daycares.RawRecord, 0, len(resp.Results))
	for _, p := range resp.Results {
		rec, err := c.fetchDetail(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return records, cursor, ctx.Err()
			}
			// Without details there is no usable enrichment; skip the place.
			continue
		}
		records = append(records, rec)
	}
	return records, resp.NextPageToken, nil
}

func (c *Collector) fetchDetail(ctx context.Context, p placeSummary) (daycares.RawRecord, error) {
	q := url.Values{}
	q.Set("place_id", p.PlaceID)
	q.Set("fields", "place_id,name,formatted_address,formatted_phone_number,website,rating,user_ratings_total,geometry,opening_hours,photos")

	var resp detailsResponse
	if err := c.client.GetJSON(ctx, c.cfg.BaseURL+"/details/json?"+q.Encode(), &resp); err != nil {
		return daycares.RawRecord{}, err
	}
	d := resp.Result

	rating := d.Rating
	rec := daycares.RawRecord{
		Source:     daycares.SourcePlaces,
		ExternalID: d.PlaceID,
		Name:       d.Name,
		Contact: daycares.Contact{
			Phone:   d.Phone,
			Website: d.Website,
		},
		Location: daycares.Location{
			Address:   d.Address,
			City:      constants.DefaultCity,
			State:     constants.DefaultState,
			Latitude:  d.Geometry.Location.Lat,
			Longitude: d.Geometry.Location.Lng,
		},
		Hours:     parseWeekdayText(d.OpeningHours.WeekdayText),
		FetchedAt: time.Now().UTC(),
	}
	if rating > 0 {
		rec.Rating = &rating
		rec.RatingSource = RatingSource
		rec.ReviewCount = d.RatingCount
	}
	for _, photo := range d.Photos {
		if photo.Reference == "" {
			continue
		}
		rec.Photos = append(rec.Photos, daycares.Photo{
			Source: daycares.SourcePlaces,
			URL:    fmt.Sprintf("%s/photo?photo_reference=%s", c.cfg.BaseURL, photo.Reference),
		})
	}
	return rec, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Package reviews collects ratings and user reviews from a review
// platform API. Like places, it is a pure enrichment source.
package reviews

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sfdaycarelist/directory/internal/config"
	"github.com/sfdaycarelist/directory/internal/transport"
	"github.com/sfdaycarelist/directory/pkg/constants"
	"github.com/sfdaycarelist/directory/pkg/daycares"
	"github.com/sfdaycarelist/directory/pkg/errors"
	"github.com/sfdaycarelist/directory/pkg/logging"
)

// RatingSource keys this source's slot in Ratings.BySource.
const RatingSource = "yelp"

const pageSize = 50

// Collector pulls one page of businesses per Collect call. The cursor
// is the numeric search offset.
type Collector struct {
	cfg    config.ReviewsConfig
	client *transport.Client
}

// New creates a reviews collector. An invalid configuration is a fatal
// error for this source.
func New(cfg config.ReviewsConfig) (*Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Collector{
		cfg: cfg,
		client: transport.New("reviews",
			transport.WithAuth(&transport.BearerAuth{}, cfg.APIKey),
			transport.WithDelay(cfg.Delay),
			transport.WithRetries(constants.MaxRetries, constants.RetryBackoff)),
	}, nil
}

// Source identifies this collector.
func (c *Collector) Source() daycares.SourceID { return daycares.SourceReviews }

type searchResponse struct {
	Businesses []business `json:"businesses"`
	Total      int        `json:"total"`
}

type business struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	Phone       string  `json:"phone"`
	URL         string  `json:"url"`
	Location    struct {
		Address1 string `json:"address1"`
		City     string `json:"city"`
		State    string `json:"state"`
		ZipCode  string `json:"zip_code"`
	} `json:"location"`
	Coordinates struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"coordinates"`
	Photos []string `json:"photos"`
}

type reviewsResponse struct {
	Reviews []struct {
		Rating      float64 `json:"rating"`
		Text        string  `json:"text"`
		TimeCreated string  `json:"time_created"`
		User        struct {
			Name string `json:"name"`
		} `json:"user"`
	} `json:"reviews"`
}

// Collect fetches one search page plus the review text behind each
// business. A failed page after retries is skipped; the pass resumes
// at the next offset.
func (c *Collector) Collect(ctx context.Context, cursor string) ([]daycares.RawRecord, string, error) {
	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			logging.FromContext(ctx).Warn().
				Str("cursor", cursor).
				Msg("unparseable reviews cursor, restarting from offset 0")
		} else {
			offset = n
		}
	}

	q := url.Values{}
	q.Set("term", "daycare")
	q.Set("location", fmt.Sprintf("%s, %s", constants.DefaultCity, constants.DefaultState))
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("offset", strconv.Itoa(offset))

	var resp searchResponse
	err := c.client.GetJSON(ctx, c.cfg.BaseURL+"/businesses/search?"+q.Encode(), &resp)
	if err != nil {
		if errors.IsTransient(err) {
			return nil, strconv.Itoa(offset + pageSize), err
		}
		return nil, "", err
	}
	if len(resp.Businesses) == 0 {
		return nil, "", nil
	}

	records := make([]daycares.RawRecord, 0, len(resp.Businesses))
	for _, b := range resp.Businesses {
		records = append(records, c.record(ctx, b))
	}
	return records, strconv.Itoa(offset + pageSize), nil
}

func (c *Collector) record(ctx context.Context, b business) daycares.RawRecord {
	rating := b.Rating
	rec := daycares.RawRecord{
		Source:     daycares.SourceReviews,
		ExternalID: b.ID,
		Name:       b.Name,
		Contact: daycares.Contact{
			Phone: b.Phone,
		},
		Location: daycares.Location{
			Address:   b.Location.Address1,
			City:      b.Location.City,
			State:     b.Location.State,
			Zip:       b.Location.ZipCode,
			Latitude:  b.Coordinates.Latitude,
			Longitude: b.Coordinates.Longitude,
		},
		FetchedAt: time.Now().UTC(),
	}
	if rating > 0 {
		rec.Rating = &rating
		rec.RatingSource = RatingSource
		rec.ReviewCount = b.ReviewCount
	}
	for _, u := range b.Photos {
		if u == "" {
			continue
		}
		rec.Photos = append(rec.Photos, daycares.Photo{Source: daycares.SourceReviews, URL: u})
	}

	var rr reviewsResponse
	url := fmt.Sprintf("%s/businesses/%s/reviews", c.cfg.BaseURL, b.ID)
	if err := c.client.GetJSON(ctx, url, &rr); err != nil {
		// Review text is optional; the rating alone is still worth keeping.
		logging.FromContext(ctx).Debug().Err(err).Str("business_id", b.ID).Msg("review fetch failed")
		return rec
	}
	for _, r := range rr.Reviews {
		rec.Reviews = append(rec.Reviews, daycares.Review{
			Source: daycares.SourceReviews,
			Author: r.User.Name,
			Rating: r.Rating,
			Text:   r.Text,
			Date:   r.TimeCreated,
		})
	}
	return rec
}

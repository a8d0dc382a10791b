// Package export renders the directory dataset for the website: a JSON
// dataset with generated SEO metadata, and an XML sitemap.
package export

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sfdaycarelist/directory/pkg/daycares"
	"github.com/sfdaycarelist/directory/pkg/store"
)

// SEO is the generated page metadata for one facility.
type SEO struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Entry is one facility in the exported dataset.
type Entry struct {
	*daycares.Daycare
	SEO SEO `json:"seo"`
}

// Dataset is the exported directory file.
type Dataset struct {
	GeneratedAt time.Time `json:"generated_at"`
	Count       int       `json:"count"`
	Daycares    []Entry   `json:"daycares"`
}

// Exporter renders the dataset from a store.
type Exporter struct {
	store store.Store
}

// New creates an Exporter.
func New(st store.Store) *Exporter {
	return &Exporter{store: st}
}

// WriteDataset writes the active directory as JSON.
func (e *Exporter) WriteDataset(ctx context.Context, w io.Writer) error {
	all, err := e.store.List(ctx, store.Filter{Status: daycares.StatusActive})
	if err != nil {
		return fmt.Errorf("listing records: %w", err)
	}

	ds := Dataset{
		GeneratedAt: time.Now().UTC(),
		Count:       len(all),
		Daycares:    make([]Entry, 0, len(all)),
	}
	for _, d := range all {
		ds.Daycares = append(ds.Daycares, Entry{Daycare: d, SEO: GenerateSEO(d)})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ds); err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	return nil
}

// GenerateSEO builds page metadata from the record's merged fields.
func GenerateSEO(d *daycares.Daycare) SEO {
	area := d.Location.Neighborhood
	if area == "" {
		area = d.Location.City
	}
	title := d.Name
	if area != "" {
		title = fmt.Sprintf("%s | Daycare in %s", d.Name, area)
	}

	var parts []string
	if d.Verified {
		parts = append(parts, fmt.Sprintf("%s is a licensed childcare facility", d.Name))
	} else {
		parts = append(parts, fmt.Sprintf("%s is a childcare facility", d.Name))
	}
	if area != "" {
		parts[0] += " in " + area
	}
	if len(d.Program.AgeGroups) > 0 {
		parts = append(parts, "serving "+strings.Join(d.Program.AgeGroups, ", ")+" children")
	}
	if d.Licensing.Capacity > 0 {
		parts = append(parts, fmt.Sprintf("licensed for %d children", d.Licensing.Capacity))
	}
	if d.Ratings.Overall > 0 {
		parts = append(parts, fmt.Sprintf("rated %.1f by parents", d.Ratings.Overall))
	}
	description := strings.Join(parts, ", ") + "."

	keywords := []string{"daycare", "childcare", "preschool"}
	if area != "" {
		keywords = append(keywords, strings.ToLower(area)+" daycare")
	}
	for _, ag := range d.Program.AgeGroups {
		keywords = append(keywords, ag+" care")
	}

	return SEO{Title: title, Description: description, Keywords: keywords}
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// WriteSitemap writes an XML sitemap with one URL per active facility.
func (e *Exporter) WriteSitemap(ctx context.Context, w io.Writer, baseURL string) error {
	all, err := e.store.List(ctx, store.Filter{Status: daycares.StatusActive})
	if err != nil {
		return fmt.Errorf("listing records: %w", err)
	}

	base := strings.TrimRight(baseURL, "/")
	set := urlset{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  make([]sitemapURL, 0, len(all)+1),
	}
	set.URLs = append(set.URLs, sitemapURL{Loc: base + "/", ChangeFreq: "daily"})
	for _, d := range all {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        fmt.Sprintf("%s/daycare/%s", base, d.Slug),
			LastMod:    d.UpdatedAt.UTC().Format("2006-01-02"),
			ChangeFreq: "weekly",
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("encoding sitemap: %w", err)
	}
	_, err = io.WriteString(w, "\n")
	return err
}

package directory

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfdaycarelist/directory/pkg/daycares"
	"github.com/sfdaycarelist/directory/pkg/pipeline"
	"github.com/sfdaycarelist/directory/pkg/store"
	"github.com/sfdaycarelist/directory/pkg/store/memory"
)

type staticCollector struct {
	source  daycares.SourceID
	records []daycares.RawRecord
	served  bool
}

func (s *staticCollector) Source() daycares.SourceID { return s.source }

func (s *staticCollector) Collect(_ context.Context, _ string) ([]daycares.RawRecord, string, error) {
	if s.served {
		return nil, "", nil
	}
	s.served = true
	return s.records, "", nil
}

var _ pipeline.Collector = (*staticCollector)(nil)

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	d, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	_, err = d.Lookup(context.Background(), "missing")
	assert.Error(t, err)
}

func TestNewRejectsNilStore(t *testing.T) {
	t.Parallel()

	_, err := New(WithStore(nil))
	assert.Error(t, err)
}

func TestIngestLookupExport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	collector := &staticCollector{
		source: daycares.SourceLicensing,
		records: []daycares.RawRecord{{
			Source:    daycares.SourceLicensing,
			Name:      "Sunshine Academy",
			Location:  daycares.Location{Address: "123 Main St", Neighborhood: "Mission"},
			Licensing: daycares.Licensing{Number: "384001234", Status: "active"},
		}},
	}

	d, err := New(WithStore(memory.New()), WithCollectors(collector))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	result, err := d.Ingest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PerSource[daycares.SourceLicensing].Inserted)

	got, err := d.Lookup(ctx, "sunshine-academy")
	require.NoError(t, err)
	assert.True(t, got.Verified)

	found, err := d.Search(ctx, store.Filter{Neighborhood: "Mission"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	var buf bytes.Buffer
	require.NoError(t, d.ExportDataset(ctx, &buf))
	assert.Contains(t, buf.String(), `"sunshine-academy"`)

	buf.Reset()
	require.NoError(t, d.ExportSitemap(ctx, &buf, "https://sfdaycarelist.com"))
	assert.True(t, strings.Contains(buf.String(), "/daycare/sunshine-academy"))
}

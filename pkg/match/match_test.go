package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfdaycarelist/directory/pkg/daycares"
	"github.com/sfdaycarelist/directory/pkg/normalize"
)

func daycare(id, name, address string, created time.Time) *daycares.Daycare {
	return &daycares.Daycare{
		ID:        id,
		Name:      name,
		Location:  daycares.Location{Address: address},
		CreatedAt: created,
	}
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, Similarity("sunshine academy", "sunshine academy"))
	assert.Equal(t, 0.0, Similarity("", ""))
	assert.InDelta(t, 1-1.0/17, Similarity("sunshine academy", "sunshine academy1"), 1e-9)
	assert.Less(t, Similarity("sunshine academy", "little stars"), 0.5)
}

func TestMatches(t *testing.T) {
	t.Parallel()

	// Strong name alone is enough.
	assert.True(t, Matches(0.95, 0))
	// Threshold is exclusive.
	assert.False(t, Matches(0.90, 0))
	// Moderate name needs address corroboration.
	assert.True(t, Matches(0.75, 0.80))
	assert.False(t, Matches(0.75, 0.50))
	assert.False(t, Matches(0.60, 0.99))
}

func TestBestStrongNameMatch(t *testing.T) {
	t.Parallel()

	now := time.Now()
	existing := []*daycares.Daycare{
		daycare("a", "Sunshine Academy", "123 Main Street", now),
		daycare("b", "Little Stars", "500 Ocean Avenue", now),
	}

	sig := normalize.NewSignature("Sunshine Academy LLC", "123 Main St", "")
	got := Best(sig, existing)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.Daycare.ID)
	assert.Equal(t, 1.0, got.NameSim)
}

func TestBestSameNameDifferentAddressNoMerge(t *testing.T) {
	t.Parallel()

	// Two distinct facilities can share a name. A moderate rename plus a
	// different street must not link them.
	existing := []*daycares.Daycare{
		daycare("a", "Little Stars Daycare", "100 Pine Street", time.Now()),
	}
	sig := normalize.NewSignature("Little Stars Childcare", "900 Market Street", "")
	assert.Nil(t, Best(sig, existing))
}

func TestBestEmptyAddressNeverCorroborates(t *testing.T) {
	t.Parallel()

	existing := []*daycares.Daycare{
		daycare("a", "Sunny Side Preschool", "", time.Now()),
	}
	// Name similarity lands between 0.70 and 0.90; with no address on
	// either side the pair must not match.
	sig := normalize.NewSignature("Sunny Side Preschool Annex", "", "")
	nameSim := Similarity(sig.Name, normalize.Name("Sunny Side Preschool"))
	require.Greater(t, nameSim, 0.70)
	require.Less(t, nameSim, 0.90)

	assert.Nil(t, Best(sig, existing))
}

func TestBestDeterministicTieBreak(t *testing.T) {
	t.Parallel()

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// Identical candidates except age: the earliest record wins.
	existing := []*daycares.Daycare{
		daycare("g", "Rainbow Kids", "1 First Street", newer),
		daycare("c", "Rainbow Kids", "1 First Street", older),
	}
	sig := normalize.NewSignature("Rainbow Kids", "1 First St", "")

	got := Best(sig, existing)
	require.NotNil(t, got)
	assert.Equal(t, "c", got.Daycare.ID)

	// Same CreatedAt: the lowest ID wins, regardless of input order.
	existing = []*daycares.Daycare{
		daycare("i", "Rainbow Kids", "1 First Street", older),
		daycare("d", "Rainbow Kids", "1 First Street", older),
	}
	got = Best(sig, existing)
	require.NotNil(t, got)
	assert.Equal(t, "d", got.Daycare.ID)
}

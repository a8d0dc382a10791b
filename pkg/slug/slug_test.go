package slug

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfdaycarelist/directory/pkg/errors"
)

type fakeRegistry struct {
	mu    sync.Mutex
	taken map[string]bool
}

func (r *fakeRegistry) HasSlug(_ context.Context, slug string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.taken[slug], nil
}

func (r *fakeRegistry) claim(slug string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken == nil {
		r.taken = map[string]bool{}
	}
	r.taken[slug] = true
}

func TestMake(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Happy Kids", "happy-kids"},
		{"punctuation dropped", "St. Mary's Pre-School", "st-marys-pre-school"},
		{"collapses hyphens and spaces", "Happy  --  Kids", "happy-kids"},
		{"trims hyphens", "-Happy Kids-", "happy-kids"},
		{"digits kept", "Academy 2000", "academy-2000"},
		{"symbols only", "!!!", ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Make(tt.input))
		})
	}
}

func TestAllocateCollision(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{}
	reg.claim("happy-kids")

	a := NewAllocator(reg)
	got, err := a.Allocate(context.Background(), "Happy Kids")
	require.NoError(t, err)
	assert.Equal(t, "happy-kids-1", got)

	reg.claim("happy-kids-1")
	got, err = a.Allocate(context.Background(), "Happy Kids!")
	require.NoError(t, err)
	assert.Equal(t, "happy-kids-2", got)
}

func TestAllocateFreeSlug(t *testing.T) {
	t.Parallel()

	a := NewAllocator(&fakeRegistry{})
	got, err := a.Allocate(context.Background(), "Little Stars")
	require.NoError(t, err)
	assert.Equal(t, "little-stars", got)
}

func TestAllocateEmptyName(t *testing.T) {
	t.Parallel()

	a := NewAllocator(&fakeRegistry{})
	_, err := a.Allocate(context.Background(), "???")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestAllocateConcurrentUnique(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{}
	a := NewAllocator(reg)

	var (
		mu    sync.Mutex
		slugs = map[string]bool{}
		wg    sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := a.Allocate(context.Background(), "Happy Kids")
			assert.NoError(t, err)
			reg.claim(got)
			mu.Lock()
			assert.False(t, slugs[got], "slug %q handed out twice", got)
			slugs[got] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, slugs, 8)
}

// Package slug generates URL slugs for facility records and allocates
// unique ones against a registry of slugs already in use. A slug is
// assigned exactly once, at record creation, and never changes
// afterwards, even when the facility is renamed.
package slug

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/sfdaycarelist/directory/pkg/constants"
	"github.com/sfdaycarelist/directory/pkg/errors"
)

// Registry answers whether a slug is already taken. The pipeline's
// store satisfies this.
type Registry interface {
	// HasSlug reports whether slug is already assigned to a record.
	HasSlug(ctx context.Context, slug string) (bool, error)
}

// Make derives the base slug from a facility name: lowercase, keep
// letters, digits, spaces and hyphens, turn whitespace runs into single
// hyphens, collapse repeated hyphens, trim leading and trailing ones.
func Make(name string) string {
	s := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	fields := strings.Fields(b.String())
	s = strings.Join(fields, "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

// Allocator hands out unique slugs. Allocation is serialized, and slugs
// handed out during this process are remembered until they show up in
// the registry, so two concurrent callers can never receive the same
// slug even before the first one is persisted.
type Allocator struct {
	mu       sync.Mutex
	registry Registry
	reserved map[string]bool
}

// NewAllocator returns an Allocator backed by the given registry.
func NewAllocator(registry Registry) *Allocator {
	return &Allocator{registry: registry, reserved: map[string]bool{}}
}

// Allocate returns a free slug for name: the base slug if unused,
// otherwise base-1, base-2, and so on. A name that reduces to nothing
// is a validation error.
func (a *Allocator) Allocate(ctx context.Context, name string) (string, error) {
	base := Make(name)
	if base == "" {
		return "", &errors.ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("name %q produces an empty slug", name),
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	candidate := base
	for i := 1; i <= constants.MaxSlugProbes; i++ {
		taken := a.reserved[candidate]
		if !taken {
			var err error
			taken, err = a.registry.HasSlug(ctx, candidate)
			if err != nil {
				return "", fmt.Errorf("checking slug %q: %w", candidate, err)
			}
		}
		if !taken {
			a.reserved[candidate] = true
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("no free slug for %q after %d probes", base, constants.MaxSlugProbes)
}

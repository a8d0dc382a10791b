// Package match implements fuzzy record linkage between incoming source
// records and existing directory entries. Similarity is normalized
// Levenshtein over canonical signatures from pkg/normalize.
package match

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/sfdaycarelist/directory/pkg/daycares"
	"github.com/sfdaycarelist/directory/pkg/normalize"
)

// Similarity thresholds. A name alone must be a very strong match;
// with address corroboration a weaker name match is accepted.
const (
	NameOnlyThreshold   = 0.90
	NameWithAddrNameMin = 0.70
	NameWithAddrAddrMin = 0.70
)

// Candidate is an existing record judged to be the same real-world
// facility as an incoming record.
type Candidate struct {
	Daycare  *daycares.Daycare
	NameSim  float64
	AddrSim  float64
	PhoneEq  bool
	Combined float64
}

// Similarity returns normalized Levenshtein similarity in [0, 1]:
// 1 minus edit distance over the longer length. Two empty strings are
// not similar; there is nothing to compare.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	max := la
	if lb > max {
		max = lb
	}
	d := fuzzy.LevenshteinDistance(a, b)
	return 1 - float64(d)/float64(max)
}

// Matches reports whether the similarity pair clears either acceptance
// rule.
func Matches(nameSim, addrSim float64) bool {
	if nameSim > NameOnlyThreshold {
		return true
	}
	return nameSim > NameWithAddrNameMin && addrSim > NameWithAddrAddrMin
}

// Best finds the existing record that best matches the incoming
// signature, or nil when no existing record clears the thresholds.
// Ties break deterministically: highest combined similarity, then
// earliest CreatedAt, then lowest ID. Given the same inputs, Best
// always returns the same candidate.
func Best(sig normalize.Signature, existing []*daycares.Daycare) *Candidate {
	var candidates []*Candidate
	for _, d := range existing {
		other := normalize.NewSignature(d.Name, d.Location.Address, d.Contact.Phone)

		nameSim := Similarity(sig.Name, other.Name)
		addrSim := 0.0
		if sig.Address != "" && other.Address != "" {
			addrSim = Similarity(sig.Address, other.Address)
		}
		if !Matches(nameSim, addrSim) {
			continue
		}
		candidates = append(candidates, &Candidate{
			Daycare:  d,
			NameSim:  nameSim,
			AddrSim:  addrSim,
			PhoneEq:  sig.Phone != "" && sig.Phone == other.Phone,
			Combined: nameSim + addrSim,
		})
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Combined != b.Combined {
			return a.Combined > b.Combined
		}
		if !a.Daycare.CreatedAt.Equal(b.Daycare.CreatedAt) {
			return a.Daycare.CreatedAt.Before(b.Daycare.CreatedAt)
		}
		return a.Daycare.ID < b.Daycare.ID
	})
	return candidates[0]
}

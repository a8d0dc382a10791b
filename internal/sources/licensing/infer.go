package licensing

import "strings"

// neighborhoodKeywords maps address keywords to San Francisco
// neighborhoods. The registry has no neighborhood field, so we infer
// one from the street address when possible. Ordered so multi-keyword
// addresses resolve the same way every run; more specific names come
// first.
var neighborhoodKeywords = []struct {
	keyword string
	hood    string
}{
	{"glen park", "Glen Park"},
	{"nob hill", "Nob Hill"},
	{"russian hill", "Russian Hill"},
	{"telegraph hill", "Telegraph Hill"},
	{"north beach", "North Beach"},
	{"mission", "Mission"},
	{"valencia", "Mission"},
	{"castro", "Castro"},
	{"noe", "Noe Valley"},
	{"haight", "Haight-Ashbury"},
	{"richmond", "Richmond"},
	{"clement", "Richmond"},
	{"sunset", "Sunset"},
	{"irving", "Sunset"},
	{"judah", "Sunset"},
	{"taraval", "Sunset"},
	{"marina", "Marina"},
	{"chestnut", "Marina"},
	{"pacific", "Pacific Heights"},
	{"fillmore", "Fillmore"},
	{"hayes", "Hayes Valley"},
	{"potrero", "Potrero Hill"},
	{"bernal", "Bernal Heights"},
	{"excelsior", "Excelsior"},
	{"ingleside", "Ingleside"},
	{"bayview", "Bayview"},
	{"visitacion", "Visitacion Valley"},
	{"presidio", "Presidio"},
	{"soma", "SoMa"},
	{"folsom", "SoMa"},
	{"howard", "SoMa"},
	{"embarcadero", "Embarcadero"},
	{"tenderloin", "Tenderloin"},
	{"japantown", "Japantown"},
	{"chinatown", "Chinatown"},
	{"dogpatch", "Dogpatch"},
	{"laurel", "Laurel Heights"},
	{"balboa", "Balboa Park"},
	{"portola", "Portola"},
}

// zipNeighborhoods resolves a neighborhood from the ZIP code when the
// street address gives no hint.
var zipNeighborhoods = map[string]string{
	"94102": "Hayes Valley",
	"94103": "SoMa",
	"94107": "Potrero Hill",
	"94108": "Chinatown",
	"94109": "Nob Hill",
	"94110": "Mission",
	"94112": "Ingleside",
	"94114": "Castro",
	"94115": "Pacific Heights",
	"94116": "Sunset",
	"94117": "Haight-Ashbury",
	"94118": "Richmond",
	"94121": "Richmond",
	"94122": "Sunset",
	"94123": "Marina",
	"94124": "Bayview",
	"94127": "West Portal",
	"94131": "Glen Park",
	"94132": "Lake Merced",
	"94133": "North Beach",
	"94134": "Visitacion Valley",
}

// InferNeighborhood guesses the neighborhood from address keywords,
// falling back to the ZIP code. Returns "" when neither matches.
func InferNeighborhood(address, zip string) string {
	addr := strings.ToLower(address)
	for _, entry := range neighborhoodKeywords {
		if strings.Contains(addr, entry.keyword) {
			return entry.hood
		}
	}
	return zipNeighborhoods[zip]
}

// InferAgeGroups derives served age bands from the license type.
func InferAgeGroups(licenseType string) []string {
	t := strings.ToLower(licenseType)
	switch {
	case strings.Contains(t, "infant"):
		return []string{"infant", "toddler"}
	case strings.Contains(t, "school age"):
		return []string{"preschool"}
	case strings.Contains(t, "family"):
		return []string{"infant", "toddler", "preschool"}
	case strings.Contains(t, "day care"), strings.Contains(t, "preschool"):
		return []string{"toddler", "preschool"}
	default:
		return nil
	}
}

package probes

import "strings"

// localeZones maps a primary language to timezone fragments of the countries it
// strongly implies. Only languages with an obvious home region are listed; a
// mismatch against a widely spoken language would mostly flag travellers.
//
// Matching is a substring test against the reported IANA zone, so "Asia/" covers
// every Asian zone for Russian and "Africa/" every African zone for French.
var localeZones = map[string][]string{
	"ja": {"Asia/Tokyo"},
	"ko": {"Asia/Seoul"},
	"zh": {"Asia/Shanghai", "Asia/Hong_Kong"},
	"ru": {"Europe/Moscow", "Asia/"},
	"fr": {"Europe/Paris", "America/Montreal", "Africa/"},
}

// LocaleMismatch reports whether the primary browser language implies a country
// whose standard timezone is absent from the reported one.
//
// The check is skipped when either value is missing.
func LocaleMismatch(languages []string, timezone string) bool {
	if len(languages) == 0 || timezone == "" {
		return false
	}

	primary := strings.ToLower(languages[0])
	if i := strings.IndexAny(primary, "-_"); i >= 0 {
		primary = primary[:i]
	}

	zones, ok := localeZones[primary]
	if !ok {
		return false
	}
	for _, z := range zones {
		if strings.Contains(timezone, z) {
			return false
		}
	}
	return true
}

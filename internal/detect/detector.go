package detect

import (
	"regexp"
	"strings"

	"github.com/svroyal/concierge/internal/model/chat"
	"github.com/svroyal/concierge/internal/model/gazetteer"
)

// locationIntent matches questions that ask where something is, so the
// hotel's own pin is always offered first for those.
var locationIntent = regexp.MustCompile(`(?i)location|where|address|direction|map|how to (get|reach)|nearby|tourist|attraction`)

// Detector scans bot answers for known points of interest.
type Detector struct {
	hotel   chat.LocationRef
	entries []gazetteer.Entry
}

// New builds a detector around the hotel's own location and an attraction
// gazetteer.
func New(hotel chat.LocationRef, store gazetteer.Store) *Detector {
	return &Detector{hotel: hotel, entries: store.List()}
}

// Detect returns the ordered locations to surface next to an answer, or nil
// when there is nothing to show. nil (rather than an empty slice) lets
// callers skip the location panel entirely.
//
// The triggering question decides whether the hotel pin leads the list; the
// answer text is scanned for every gazetteer alias in table order. Entries
// are deduplicated by canonical query, first occurrence wins.
func (d *Detector) Detect(answerText, triggeringQuestion string) []chat.LocationRef {
	var locations []chat.LocationRef

	if locationIntent.MatchString(triggeringQuestion) {
		locations = append(locations, d.hotel)
	}

	lowerAnswer := strings.ToLower(answerText)
	for _, entry := range d.entries {
		if !strings.Contains(lowerAnswer, strings.ToLower(entry.Alias)) {
			continue
		}
		if hasQuery(locations, entry.Query) {
			continue
		}
		locations = append(locations, chat.LocationRef{Name: entry.Alias, Query: entry.Query})
	}

	return locations
}

func hasQuery(locations []chat.LocationRef, query string) bool {
	for _, loc := range locations {
		if loc.Query == query {
			return true
		}
	}
	return false
}

package classify

import (
	"sort"

	"land-tracker/internal/models"
)

// MatchClass is a listing's classification tier against the buyer criteria
type MatchClass string

const (
	TopMatch       MatchClass = "top_match"
	PossibleMatch  MatchClass = "possible_match"
	FormerTopMatch MatchClass = "former_top_match"
	Found          MatchClass = "found"
)

// rank orders classes for display, best first
var rank = map[MatchClass]int{
	TopMatch:       0,
	PossibleMatch:  1,
	FormerTopMatch: 2,
	Found:          3,
}

// Priority returns the display rank of the class; lower sorts first
func (m MatchClass) Priority() int {
	return rank[m]
}

// Classify derives a listing's current match class from its stored fields
// and the active criteria. It is a pure function: the dashboard re-derives
// the class from the store with this same code, so the class is never
// persisted as independent truth.
//
// Checks run in display-priority order, so a listing that currently
// satisfies the possible-match predicate keeps that class even when
// EverTopMatch is set.
func Classify(l models.Listing, c models.Criteria) MatchClass {
	switch {
	case isTopMatch(l, c):
		return TopMatch
	case isPossibleMatch(l, c):
		return PossibleMatch
	case l.EverTopMatch:
		return FormerTopMatch
	default:
		return Found
	}
}

// isTopMatch: available, acreage within bounds, price present and under cap.
// A missing price never satisfies the cap.
func isTopMatch(l models.Listing, c models.Criteria) bool {
	if l.Status != models.StatusAvailable {
		return false
	}
	if !meetsAcreage(l, c) {
		return false
	}
	return l.Price != nil && *l.Price <= c.PriceCap
}

// isPossibleMatch: acreage fits but the price is missing, so the cap cannot
// be confirmed. A price that is present but over cap is NOT a possible
// match; it demotes to Found.
func isPossibleMatch(l models.Listing, c models.Criteria) bool {
	if l.Status != models.StatusAvailable && l.Status != models.StatusUnknown {
		return false
	}
	if !meetsAcreage(l, c) {
		return false
	}
	return l.Price == nil
}

func meetsAcreage(l models.Listing, c models.Criteria) bool {
	return l.Acreage != nil && c.AcreageMin <= *l.Acreage && *l.Acreage <= c.AcreageMax
}

// SortByPriority orders listings for display: class rank first, then
// found_utc descending so the newest discoveries lead within a tier.
func SortByPriority(listings []models.Listing, c models.Criteria) {
	sort.SliceStable(listings, func(i, j int) bool {
		ri := Classify(listings[i], c).Priority()
		rj := Classify(listings[j], c).Priority()
		if ri != rj {
			return ri < rj
		}
		return listings[i].FoundUTC.After(listings[j].FoundUTC)
	})
}

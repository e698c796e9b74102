package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"land-tracker/internal/models"
)

// ErrMalformedInput is returned when a raw record is missing its only hard
// requirement, the listing URL. Callers skip the record and continue the batch.
var ErrMalformedInput = errors.New("malformed raw listing")

const sqftPerAcre = 43560.0

// RawFields is one unparsed per-source field set as the extractors found it.
// Every field is free text; the normalizer owns all parsing.
type RawFields struct {
	Title     string
	Acreage   string
	Price     string
	Status    string
	Source    string
	Region    string
	URL       string
	Thumbnail string
}

var badTitles = map[string]bool{
	"":                   true,
	"land listing":       true,
	"listing":            true,
	"skip to navigation": true,
	"skip to content":    true,
}

// IsBadTitle reports whether a title is a generic placeholder or navigation
// text rather than a real listing title
func IsBadTitle(title string) bool {
	return badTitles[strings.ToLower(strings.TrimSpace(title))]
}

// Normalize turns one raw field set into a canonical RawListing.
// It fails only when the URL is absent; every other field degrades to
// nil / unknown / a placeholder title.
func Normalize(f RawFields) (models.RawListing, error) {
	if strings.TrimSpace(f.URL) == "" {
		return models.RawListing{}, fmt.Errorf("%w: missing url (source=%s)", ErrMalformedInput, f.Source)
	}

	title := strings.Join(strings.Fields(f.Title), " ")
	if IsBadTitle(title) {
		title = f.Source + " listing"
	}

	return models.RawListing{
		Title:        title,
		Acreage:      ParseAcres(f.Acreage),
		Price:        ParseMoney(f.Price),
		Status:       DetectStatus(f.Status),
		Source:       f.Source,
		Region:       f.Region,
		URL:          strings.TrimSpace(f.URL),
		ThumbnailURL: strings.TrimSpace(f.Thumbnail),
	}, nil
}

var moneyRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([km])?\b`)

// ParseMoney extracts a listing price from free text ("$450,000", "15.1k").
// Returns nil when no plausible price is present. Values under $1,000 are
// rejected: detail pages mention price drops and monthly estimates, and a
// missing price must never be conflated with a price of zero.
func ParseMoney(value string) *int {
	s := strings.ToLower(strings.TrimSpace(value))
	if s == "" {
		return nil
	}

	for _, x := range []string{"contact", "call", "tbd"} {
		if strings.Contains(s, x) {
			return nil
		}
	}

	s = strings.ReplaceAll(s, ",", "")

	// Collect all candidate numbers, then pick the most plausible price.
	// Prefers the largest value: protects against "15.1k drop" etc.
	best := 0
	for _, m := range moneyRe.FindAllStringSubmatch(s, -1) {
		num, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		switch m[2] {
		case "k":
			num *= 1000
		case "m":
			num *= 1000000
		}
		v := int(num)
		if v < 1000 {
			continue
		}
		if v > best {
			best = v
		}
	}

	if best == 0 {
		return nil
	}
	return &best
}

var numberRe = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// ParseAcres extracts an acreage from free text ("12.5 ac", "20 acres",
// "871200 sq ft"). Square footage is converted; a bare number over 5000 is
// assumed to be square feet. Returns nil when nothing parses.
func ParseAcres(value string) *float64 {
	s := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), ",", "")
	if s == "" {
		return nil
	}

	m := numberRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}

	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}

	if strings.Contains(s, "sq") && (strings.Contains(s, "ft") || strings.Contains(s, "feet")) {
		num /= sqftPerAcre
		return &num
	}

	if num > 5000 {
		num /= sqftPerAcre
	}
	return &num
}

var (
	soldRe          = regexp.MustCompile(`\bsold\b`)
	underContractRe = regexp.MustCompile(`\bunder\s+contract\b`)
	pendingRe       = regexp.MustCompile(`\bpending\b`)
	availableRe     = regexp.MustCompile(`\bavailable\b|\bfor\s+sale\b|\bactive\b`)
)

// DetectStatus maps free text to a listing status using strict phrase
// matching. "contractor" must not match under_contract, and nothing ever
// defaults to available.
func DetectStatus(text string) models.ListingStatus {
	t := strings.ToLower(text)

	switch {
	case soldRe.MatchString(t):
		return models.StatusSold
	case underContractRe.MatchString(t):
		return models.StatusUnderContract
	case pendingRe.MatchString(t):
		return models.StatusPending
	case availableRe.MatchString(t):
		return models.StatusAvailable
	default:
		return models.StatusUnknown
	}
}

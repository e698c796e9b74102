package scraper

import (
	"encoding/json"
	"log"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"land-tracker/internal/config"
	"land-tracker/internal/models"
	"land-tracker/internal/normalize"
)

// ExtractListings pulls raw listings out of one source's search page.
// Three strategies, in order of signal quality: the embedded __NEXT_DATA__
// JSON (LandSearch), JSON-LD blocks, then a plain anchor-tag sweep.
// Status is always left unknown at the list stage; only detail-page
// enrichment is trusted to set it, so stale statuses can't leak between
// runs.
func ExtractListings(src config.Source, html string) []models.RawListing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Printf("[Extract] Source %s: failed to parse HTML: %v", src.ID, err)
		return nil
	}

	var candidates []normalize.RawFields

	if nextData := nextDataJSON(doc); nextData != nil {
		candidates = append(candidates, extractFromJSONTree(src, nextData)...)
	}

	for _, block := range jsonLDBlocks(doc) {
		candidates = append(candidates, extractFromJSONTree(src, block)...)
	}

	if len(candidates) == 0 {
		candidates = extractFromAnchors(src, doc)
	}

	return normalizeCandidates(src, candidates)
}

// normalizeCandidates runs each candidate through the normalizer and dedups
// by URL within the page, first occurrence wins. Malformed records are
// skipped and logged, never fatal to the page.
func normalizeCandidates(src config.Source, candidates []normalize.RawFields) []models.RawListing {
	seen := make(map[string]bool)
	var listings []models.RawListing
	for _, f := range candidates {
		raw, err := normalize.Normalize(f)
		if err != nil {
			log.Printf("[Extract] Source %s: skipping malformed record: %v", src.ID, err)
			continue
		}
		if seen[raw.URL] {
			continue
		}
		seen[raw.URL] = true
		listings = append(listings, raw)
	}

	return listings
}

// nextDataJSON extracts the __NEXT_DATA__ script payload, if present
func nextDataJSON(doc *goquery.Document) map[string]any {
	text := doc.Find(`script#__NEXT_DATA__[type="application/json"]`).First().Text()
	if text == "" {
		return nil
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil
	}
	return data
}

// jsonLDBlocks parses every application/ld+json script on the page
func jsonLDBlocks(doc *goquery.Document) []any {
	var blocks []any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var block any
		if err := json.Unmarshal([]byte(s.Text()), &block); err == nil {
			blocks = append(blocks, block)
		}
	})
	return blocks
}

// walkMaps visits every JSON object nested anywhere inside v. Traversal
// is depth first in document order (sorted keys for objects) so that
// first-occurrence dedup is stable across runs.
func walkMaps(v any, visit func(map[string]any)) {
	switch t := v.(type) {
	case map[string]any:
		visit(t)
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkMaps(t[k], visit)
		}
	case []any:
		for _, child := range t {
			walkMaps(child, visit)
		}
	}
}

// extractFromJSONTree walks a JSON payload and collects everything that
// looks like one listing card
func extractFromJSONTree(src config.Source, tree any) []normalize.RawFields {
	var out []normalize.RawFields

	walkMaps(tree, func(d map[string]any) {
		rawURL := firstString(d, "url", "href", "canonicalUrl", "link", "landingPage", "permalink", "mainEntityOfPage")
		if rawURL == "" {
			return
		}
		full := resolveURL(src.URL, rawURL)
		if full == "" || !isDetailURL(full) {
			return
		}

		out = append(out, normalize.RawFields{
			Title:     firstString(d, "title", "name", "headline"),
			Price:     priceText(d),
			Acreage:   firstText(d, "acres", "acreage", "lotSizeAcres", "sizeAcres", "lotSize", "size", "area", "landSize"),
			Thumbnail: thumbnailOf(d),
			Source:    src.ID,
			Region:    src.Region,
			URL:       full,
		})
	})

	return out
}

var acresInTextRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*acres?\b`)

// extractFromAnchors is the last-resort sweep over anchor tags when a page
// embeds no structured data
func extractFromAnchors(src config.Source, doc *goquery.Document) []normalize.RawFields {
	var out []normalize.RawFields

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		full := resolveURL(src.URL, href)
		if full == "" || !isDetailURL(full) {
			return
		}

		// Walk up a few ancestors for the card text around the link
		cardText := a.Text()
		parent := a.Parent()
		for i := 0; i < 4 && parent.Length() > 0; i++ {
			if t := strings.TrimSpace(parent.Text()); t != "" {
				cardText = t
			}
			parent = parent.Parent()
		}

		acreage := ""
		if m := acresInTextRe.FindString(strings.ToLower(cardText)); m != "" {
			acreage = m
		}

		thumb := ""
		if img := a.Find("img").First(); img.Length() > 0 {
			thumb, _ = img.Attr("src")
		}

		out = append(out, normalize.RawFields{
			Title:     strings.TrimSpace(a.Text()),
			Price:     cardText,
			Acreage:   acreage,
			Thumbnail: thumb,
			Source:    src.ID,
			Region:    src.Region,
			URL:       full,
		})
	})

	return out
}

var landsearchDetailRe = regexp.MustCompile(`^/properties/.+/\d+$`)

// isDetailURL keeps only listing detail pages, filtering out navigation
// and search-refinement links
func isDetailURL(full string) bool {
	u, err := url.Parse(full)
	if err != nil || u.Fragment != "" {
		return false
	}

	host := strings.ToLower(u.Host)
	path := strings.TrimRight(u.Path, "/")

	switch {
	case strings.Contains(host, "landsearch.com"):
		return landsearchDetailRe.MatchString(path)
	case strings.Contains(host, "landwatch.com"):
		return strings.Contains(path, "/property/")
	case strings.Contains(host, "landandfarm.com"):
		return strings.Contains(path, "/property/")
	default:
		// Unknown platform: accept anything with a path, counting on the
		// per-source URL to be a listing search page
		return path != "" && path != "/"
	}
}

func resolveURL(base, href string) string {
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	h, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return b.ResolveReference(h).String()
}

// firstString returns the first non-empty string value under the keys
func firstString(d map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := d[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// firstText returns the first value under the keys rendered as text,
// accepting JSON numbers as well as strings
func firstText(d map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := asText(d[k]); s != "" {
			return s
		}
	}
	return ""
}

func asText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// priceText finds a price field, including the JSON-LD offers.price shape
func priceText(d map[string]any) string {
	if s := firstText(d, "price", "listPrice", "priceValue", "amount"); s != "" {
		return s
	}
	if offers, ok := d["offers"].(map[string]any); ok {
		return asText(offers["price"])
	}
	return ""
}

// thumbnailOf digs a usable image URL out of the common field shapes
func thumbnailOf(d map[string]any) string {
	for _, k := range []string{"image", "thumbnail", "thumbnailUrl", "photo", "photoUrl", "imageUrl"} {
		switch v := d[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case []any:
			if len(v) > 0 {
				if s, ok := v[0].(string); ok {
					return s
				}
			}
		case map[string]any:
			if s, ok := v["url"].(string); ok {
				return s
			}
		}
	}
	return ""
}

package scraper

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"land-tracker/internal/config"
	"land-tracker/internal/normalize"
)

var landsearchSrc = config.Source{
	ID:     "landsearch",
	URL:    "https://www.landsearch.com/properties/brown-county-in",
	Region: "brown-county-in",
}

const nextDataPage = `<html><head>
<script id="__NEXT_DATA__" type="application/json">
{"props":{"pageProps":{"results":[
  {"url":"/properties/brown-county/12345","name":"40 Acres Brown County","price":399000,"acres":"40"},
  {"url":"/properties/brown-county/67890","name":"Wooded 20 ac","price":"Contact for price","acres":20.5},
  {"url":"/properties/filters/under-50-acres","name":"Refine search"}
]}}}
</script>
</head><body></body></html>`

func TestExtractFromNextData(t *testing.T) {
	listings := ExtractListings(landsearchSrc, nextDataPage)

	if len(listings) != 2 {
		t.Fatalf("extracted %d listings, want 2 (filter link excluded)", len(listings))
	}

	first := listings[0]
	if first.URL != "https://www.landsearch.com/properties/brown-county/12345" {
		t.Errorf("url = %q", first.URL)
	}
	if first.Title != "40 Acres Brown County" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Price == nil || *first.Price != 399000 {
		t.Errorf("price = %v, want 399000", first.Price)
	}
	if first.Acreage == nil || *first.Acreage != 40 {
		t.Errorf("acreage = %v, want 40", first.Acreage)
	}

	second := listings[1]
	if second.Price != nil {
		t.Errorf("contact-for-price listing must have nil price, got %v", *second.Price)
	}
	if second.Acreage == nil || *second.Acreage != 20.5 {
		t.Errorf("acreage = %v, want 20.5", second.Acreage)
	}
}

const jsonLDPage = `<html><head>
<script type="application/ld+json">
{"@type":"ItemList","itemListElement":[
  {"@type":"Product","name":"15 acre homestead site","url":"https://www.landwatch.com/property/555",
   "offers":{"price":"250000"},"acres":"15"}
]}
</script>
</head><body></body></html>`

func TestExtractFromJSONLD(t *testing.T) {
	src := config.Source{ID: "landwatch", URL: "https://www.landwatch.com/indiana-land-for-sale", Region: "indiana"}
	listings := ExtractListings(src, jsonLDPage)

	if len(listings) != 1 {
		t.Fatalf("extracted %d listings, want 1", len(listings))
	}
	l := listings[0]
	if l.Price == nil || *l.Price != 250000 {
		t.Errorf("price = %v, want 250000", l.Price)
	}
	if l.Acreage == nil || *l.Acreage != 15 {
		t.Errorf("acreage = %v, want 15", l.Acreage)
	}
	if l.Source != "landwatch" {
		t.Errorf("source = %q", l.Source)
	}
}

const anchorPage = `<html><body>
<div class="card">
  <a href="/properties/brown-county/11111">Rolling 30 acres</a>
  <span>30 acres - $450,000</span>
</div>
<a href="/about">About us</a>
<a href="/properties/brown-county/11111#photos">Photos</a>
</body></html>`

func TestExtractAnchorFallback(t *testing.T) {
	listings := ExtractListings(landsearchSrc, anchorPage)

	if len(listings) != 1 {
		t.Fatalf("extracted %d listings, want 1", len(listings))
	}
	l := listings[0]
	if l.Title != "Rolling 30 acres" {
		t.Errorf("title = %q", l.Title)
	}
	if l.Acreage == nil || *l.Acreage != 30 {
		t.Errorf("acreage = %v, want 30", l.Acreage)
	}
	if l.Price == nil || *l.Price != 450000 {
		t.Errorf("price = %v, want 450000", l.Price)
	}
}

func TestExtractDedupsWithinPage(t *testing.T) {
	page := `<html><head>
<script id="__NEXT_DATA__" type="application/json">
{"results":[
  {"url":"/properties/brown-county/12345","name":"First copy","price":399000},
  {"url":"/properties/brown-county/12345","name":"Second copy","price":399000}
]}
</script></head><body></body></html>`

	listings := ExtractListings(landsearchSrc, page)
	if len(listings) != 1 {
		t.Fatalf("extracted %d listings, want 1 after dedup", len(listings))
	}
	if listings[0].Title != "First copy" {
		t.Errorf("first occurrence must win, got %q", listings[0].Title)
	}
}

func TestNormalizeCandidatesLogsMalformedRecords(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	candidates := []normalize.RawFields{
		{Title: "No URL at all", Source: "landsearch"},
		{Title: "Good parcel", Source: "landsearch", URL: "https://www.landsearch.com/properties/x/1"},
	}

	listings := normalizeCandidates(landsearchSrc, candidates)
	if len(listings) != 1 {
		t.Fatalf("extracted %d listings, want 1 (malformed record skipped)", len(listings))
	}
	if !strings.Contains(buf.String(), "skipping malformed record") {
		t.Error("skipped record must be logged")
	}
}

func TestIsDetailURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"landsearch detail", "https://www.landsearch.com/properties/brown-county/12345", true},
		{"landsearch trailing slash", "https://www.landsearch.com/properties/brown-county/12345/", true},
		{"landsearch filter page", "https://www.landsearch.com/properties/filters/under-50", false},
		{"landsearch with fragment", "https://www.landsearch.com/properties/brown-county/12345#map", false},
		{"landwatch property", "https://www.landwatch.com/property/pid/555", true},
		{"landwatch search", "https://www.landwatch.com/indiana-land-for-sale", false},
		{"bare host", "https://www.landsearch.com/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDetailURL(tt.url); got != tt.want {
				t.Errorf("isDetailURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

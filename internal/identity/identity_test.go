package identity

import "testing"

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"strips utm params",
			"https://www.landsearch.com/properties/brown-county/12345?utm_source=email&utm_campaign=weekly",
			"https://www.landsearch.com/properties/brown-county/12345",
		},
		{
			"strips fbclid",
			"https://www.landwatch.com/property/999?fbclid=abc123",
			"https://www.landwatch.com/property/999",
		},
		{
			"keeps real params sorted",
			"https://example.com/p?b=2&a=1",
			"https://example.com/p?a=1&b=2",
		},
		{
			"drops fragment",
			"https://example.com/p#photos",
			"https://example.com/p",
		},
		{
			"trims trailing slash",
			"https://example.com/p/",
			"https://example.com/p",
		},
		{
			"lowercases scheme and host",
			"HTTPS://WWW.LandSearch.COM/properties/x/1",
			"https://www.landsearch.com/properties/x/1",
		},
		{
			"mixed tracking and real params",
			"https://example.com/p?gclid=x&page=2&utm_medium=cpc",
			"https://example.com/p?page=2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalURL(tt.input); got != tt.want {
				t.Errorf("CanonicalURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestListingIDStability(t *testing.T) {
	// The same page refetched with different tracking junk must produce
	// the same id across runs
	a := ListingID("landsearch", "https://www.landsearch.com/properties/brown-county/12345?utm_source=email")
	b := ListingID("landsearch", "https://www.landsearch.com/properties/brown-county/12345/")
	if a != b {
		t.Errorf("ids differ for the same canonical page: %s vs %s", a, b)
	}

	if len(a) != 32 {
		t.Errorf("id length = %d, want 32 hex chars", len(a))
	}
}

func TestListingIDScopedToSource(t *testing.T) {
	// The same parcel on two platforms is two listings
	a := ListingID("landsearch", "https://example.com/p/1")
	b := ListingID("landwatch", "https://example.com/p/1")
	if a == b {
		t.Error("ids must differ across sources for the same URL")
	}
}

package classify

import (
	"testing"
	"time"

	"land-tracker/internal/models"
)

var testCriteria = models.Criteria{
	AcreageMin: 11.0,
	AcreageMax: 50.0,
	PriceCap:   600000,
}

func listing(status models.ListingStatus, acreage *float64, price *int, everTop bool) models.Listing {
	return models.Listing{
		ID:           "abc",
		Title:        "Test parcel",
		Status:       status,
		Acreage:      acreage,
		Price:        price,
		EverTopMatch: everTop,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		listing models.Listing
		want    MatchClass
	}{
		{
			"available in range under cap",
			listing(models.StatusAvailable, floatPtr(40), intPtr(399000), false),
			TopMatch,
		},
		{
			"price exactly at cap",
			listing(models.StatusAvailable, floatPtr(20), intPtr(600000), false),
			TopMatch,
		},
		{
			"acreage exactly at bounds",
			listing(models.StatusAvailable, floatPtr(11), intPtr(100000), false),
			TopMatch,
		},
		{
			"missing price with unknown status",
			listing(models.StatusUnknown, floatPtr(20), nil, false),
			PossibleMatch,
		},
		{
			"missing price with available status",
			listing(models.StatusAvailable, floatPtr(20), nil, false),
			PossibleMatch,
		},
		{
			"over cap is not a possible match",
			listing(models.StatusAvailable, floatPtr(20), intPtr(750000), false),
			Found,
		},
		{
			"sold after having been a top match",
			listing(models.StatusSold, floatPtr(40), intPtr(399000), true),
			FormerTopMatch,
		},
		{
			"price raised past cap after top match",
			listing(models.StatusAvailable, floatPtr(40), intPtr(900000), true),
			FormerTopMatch,
		},
		{
			"possible match wins over former top match",
			listing(models.StatusAvailable, floatPtr(40), nil, true),
			PossibleMatch,
		},
		{
			"too small",
			listing(models.StatusAvailable, floatPtr(5), intPtr(100000), false),
			Found,
		},
		{
			"too large",
			listing(models.StatusAvailable, floatPtr(120), intPtr(100000), false),
			Found,
		},
		{
			"missing acreage never matches",
			listing(models.StatusAvailable, nil, intPtr(100000), false),
			Found,
		},
		{
			"pending is not available",
			listing(models.StatusPending, floatPtr(40), intPtr(399000), false),
			Found,
		},
		{
			"unknown status needs missing price for possible",
			listing(models.StatusUnknown, floatPtr(40), intPtr(399000), false),
			Found,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.listing, testCriteria); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyIsPure(t *testing.T) {
	l := listing(models.StatusAvailable, floatPtr(40), intPtr(399000), false)
	before := l

	for i := 0; i < 3; i++ {
		if got := Classify(l, testCriteria); got != TopMatch {
			t.Fatalf("call %d: Classify() = %q, want top_match", i, got)
		}
	}
	if l != before {
		t.Error("Classify mutated its input")
	}
}

func TestSortByPriority(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	found := listing(models.StatusSold, floatPtr(5), nil, false)
	found.ID = "found"
	found.FoundUTC = base.AddDate(0, 0, 3)

	former := listing(models.StatusSold, floatPtr(40), intPtr(399000), true)
	former.ID = "former"
	former.FoundUTC = base

	topOld := listing(models.StatusAvailable, floatPtr(40), intPtr(399000), true)
	topOld.ID = "top-old"
	topOld.FoundUTC = base.AddDate(0, 0, 1)

	topNew := listing(models.StatusAvailable, floatPtr(20), intPtr(299000), false)
	topNew.ID = "top-new"
	topNew.FoundUTC = base.AddDate(0, 0, 2)

	possible := listing(models.StatusUnknown, floatPtr(20), nil, false)
	possible.ID = "possible"
	possible.FoundUTC = base

	listings := []models.Listing{found, former, topOld, topNew, possible}
	SortByPriority(listings, testCriteria)

	wantOrder := []string{"top-new", "top-old", "possible", "former", "found"}
	for i, want := range wantOrder {
		if listings[i].ID != want {
			t.Errorf("position %d: got %s, want %s", i, listings[i].ID, want)
		}
	}
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

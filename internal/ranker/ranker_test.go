package ranker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/venkat-budati/medconnect/internal/geo"
	"github.com/venkat-budati/medconnect/internal/models"
)

// fakeGeocoder resolves addresses from a fixed map; unknown addresses fail.
type fakeGeocoder struct {
	points map[string]geo.Point
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (*geo.Point, error) {
	if p, ok := f.points[address]; ok {
		return &p, nil
	}
	return nil, errors.New("provider unavailable")
}

func testRanker(points map[string]geo.Point) *Ranker {
	return New(&fakeGeocoder{points: points}, slog.Default())
}

func medicine(id int64, name, pickup string, createdAt time.Time) models.Medicine {
	return models.Medicine{
		ID:            id,
		Name:          name,
		PickupAddress: pickup,
		Expiry:        createdAt.AddDate(1, 0, 0),
		CreatedAt:     createdAt,
	}
}

func TestRankWithoutAddressFallsBackToNewest(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candidates := []models.Medicine{
		medicine(1, "Aspirin", "somewhere", base),
		medicine(2, "Ibuprofen", "elsewhere", base.Add(time.Hour)),
	}

	r := testRanker(nil)
	listings := r.Rank(context.Background(), "", candidates, Options{Sort: SortDistance, MaxKm: 5})

	if len(listings) != 2 {
		t.Fatalf("Expected 2 listings (no radius filter without address), got %d", len(listings))
	}
	if listings[0].Medicine.ID != 2 {
		t.Errorf("Expected newest-first fallback, got medicine %d first", listings[0].Medicine.ID)
	}
	for _, l := range listings {
		if l.DistanceKm != nil {
			t.Errorf("Expected nil distance without requester address")
		}
		if l.DistanceLabel != "Distance unknown" {
			t.Errorf("Expected unknown distance label, got %q", l.DistanceLabel)
		}
	}
}

func TestRankSortsByDistanceUnknownLast(t *testing.T) {
	base := time.Now()
	points := map[string]geo.Point{
		"requester": {Lat: 0, Lng: 0},
		"near":      {Lat: 0, Lng: 0.01},
		"far":       {Lat: 1, Lng: 1},
	}
	candidates := []models.Medicine{
		medicine(1, "Far", "far", base),
		medicine(2, "Unknown", "nowhere", base),
		medicine(3, "Near", "near", base),
	}

	r := testRanker(points)
	listings := r.Rank(context.Background(), "requester", candidates, Options{Sort: SortDistance})

	if len(listings) != 3 {
		t.Fatalf("Expected 3 listings, got %d", len(listings))
	}
	if listings[0].Medicine.ID != 3 || listings[1].Medicine.ID != 1 || listings[2].Medicine.ID != 2 {
		t.Errorf("Expected order near, far, unknown; got %d, %d, %d",
			listings[0].Medicine.ID, listings[1].Medicine.ID, listings[2].Medicine.ID)
	}
	if listings[2].DistanceLabel != "Distance unknown" {
		t.Errorf("Unresolved listing should carry the unknown label")
	}
}

func TestRankRadiusFilterExcludesUnknownAndFar(t *testing.T) {
	base := time.Now()
	points := map[string]geo.Point{
		"requester": {Lat: 0, Lng: 0},
		"near":      {Lat: 0, Lng: 0.01}, // ~1.1 km
		"far":       {Lat: 2, Lng: 2},    // ~314 km
	}
	candidates := []models.Medicine{
		medicine(1, "Near", "near", base),
		medicine(2, "Far", "far", base),
		medicine(3, "Unknown", "nowhere", base),
	}

	r := testRanker(points)
	listings := r.Rank(context.Background(), "requester", candidates, Options{Sort: SortDistance, MaxKm: 10})

	if len(listings) != 1 {
		t.Fatalf("Expected only the near listing inside 10km, got %d", len(listings))
	}
	if listings[0].Medicine.ID != 1 {
		t.Errorf("Expected medicine 1, got %d", listings[0].Medicine.ID)
	}
}

func TestRankNoRadiusKeepsGeocodeFailures(t *testing.T) {
	base := time.Now()
	points := map[string]geo.Point{
		"requester": {Lat: 0, Lng: 0},
	}
	candidates := []models.Medicine{
		medicine(1, "Unknown", "nowhere", base),
	}

	r := testRanker(points)
	listings := r.Rank(context.Background(), "requester", candidates, Options{Sort: SortNewest})

	if len(listings) != 1 {
		t.Fatalf("Geocode failure must not drop listings without a radius filter, got %d", len(listings))
	}
	if listings[0].DistanceKm != nil {
		t.Errorf("Expected nil distance for failed geocode")
	}
}

func TestRankTruncatesAfterSorting(t *testing.T) {
	base := time.Now()
	var candidates []models.Medicine
	for i := 0; i < PageSize+5; i++ {
		candidates = append(candidates,
			medicine(int64(i+1), fmt.Sprintf("Med %02d", i), "somewhere", base.Add(time.Duration(i)*time.Minute)))
	}

	r := testRanker(nil)
	listings := r.Rank(context.Background(), "", candidates, Options{Sort: SortNewest})

	if len(listings) != PageSize {
		t.Fatalf("Expected page of %d, got %d", PageSize, len(listings))
	}
	// Newest overall must survive truncation, which proves sorting ran first.
	if listings[0].Medicine.ID != int64(PageSize+5) {
		t.Errorf("Expected newest medicine first, got %d", listings[0].Medicine.ID)
	}
}

func TestRankSortsByNameAndExpiry(t *testing.T) {
	base := time.Now()
	a := medicine(1, "zinc", "x", base)
	b := medicine(2, "Aspirin", "x", base)
	a.Expiry = base.AddDate(0, 1, 0)
	b.Expiry = base.AddDate(0, 2, 0)

	r := testRanker(nil)

	byName := r.Rank(context.Background(), "", []models.Medicine{a, b}, Options{Sort: SortName})
	if byName[0].Medicine.ID != 2 {
		t.Errorf("Expected case-insensitive name sort, got medicine %d first", byName[0].Medicine.ID)
	}

	byExpiry := r.Rank(context.Background(), "", []models.Medicine{b, a}, Options{Sort: SortExpiry})
	if byExpiry[0].Medicine.ID != 1 {
		t.Errorf("Expected soonest expiry first, got medicine %d", byExpiry[0].Medicine.ID)
	}
}

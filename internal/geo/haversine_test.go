package geo

import (
	"math"
	"testing"
)

func TestHaversineIdenticalPoints(t *testing.T) {
	p := Point{Lat: 51.5074, Lng: -0.1278}
	if d := HaversineKm(p, p); d != 0 {
		t.Errorf("Expected 0 distance for identical points, got %f", d)
	}
}

func TestHaversineAntipodalPoints(t *testing.T) {
	a := Point{Lat: 0, Lng: 0}
	b := Point{Lat: 0, Lng: 180}

	d := HaversineKm(a, b)
	expected := math.Pi * EarthRadiusKm
	if math.Abs(d-expected) > 1 {
		t.Errorf("Expected antipodal distance ~%f, got %f", expected, d)
	}
}

func TestHaversineKnownPair(t *testing.T) {
	london := Point{Lat: 51.5074, Lng: -0.1278}
	paris := Point{Lat: 48.8566, Lng: 2.3522}

	d := HaversineKm(london, paris)
	if d < 330 || d > 350 {
		t.Errorf("Expected London-Paris ~343km, got %f", d)
	}

	if rev := HaversineKm(paris, london); math.Abs(d-rev) > 1e-9 {
		t.Errorf("Distance should be symmetric: %f vs %f", d, rev)
	}
}

func TestFormatKm(t *testing.T) {
	tests := []struct {
		name     string
		km       *float64
		expected string
	}{
		{"unknown", nil, "Distance unknown"},
		{"meters", ptr(0.65), "650 m"},
		{"kilometers", ptr(3.42), "3.4 km"},
		{"round kilometers", ptr(12.0), "12 km"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatKm(tt.km); got != tt.expected {
				t.Errorf("FormatKm(%v) = %q, want %q", tt.km, got, tt.expected)
			}
		})
	}
}

func ptr(f float64) *float64 {
	return &f
}

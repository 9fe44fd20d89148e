package geo

import (
	"math"

	"github.com/shopspring/decimal"
)

// EarthRadiusKm is the mean earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// FormatKm renders a distance for display. Sub-kilometer distances show in
// meters; unknown distances get a stable label.
func FormatKm(km *float64) string {
	if km == nil {
		return "Distance unknown"
	}

	d := decimal.NewFromFloat(*km)
	if d.LessThan(decimal.NewFromInt(1)) {
		meters := d.Mul(decimal.NewFromInt(1000)).Round(0)
		return meters.String() + " m"
	}
	return d.Round(1).String() + " km"
}

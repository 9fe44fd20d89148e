// Package ranker turns a filtered candidate set of medicines into a ranked
// browse page: per-listing distance from the requester, optional radius
// filter, multi-key sort, fixed page truncation.
package ranker

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/venkat-budati/medconnect/internal/geo"
	"github.com/venkat-budati/medconnect/internal/models"
)

const PageSize = 20

type SortKey string

const (
	SortDistance SortKey = "distance"
	SortNewest   SortKey = "newest"
	SortOldest   SortKey = "oldest"
	SortExpiry   SortKey = "expiry"
	SortName     SortKey = "name"
)

func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortDistance, SortNewest, SortOldest, SortExpiry, SortName:
		return SortKey(s)
	default:
		return SortNewest
	}
}

// Options control ranking. MaxKm <= 0 means no radius limit.
type Options struct {
	Sort  SortKey
	MaxKm float64
}

type Listing struct {
	Medicine      models.Medicine `json:"medicine"`
	DistanceKm    *float64        `json:"distance_km"`
	DistanceLabel string          `json:"distance_label"`
}

type Ranker struct {
	geocoder geo.Geocoder
	logger   *slog.Logger
}

func New(geocoder geo.Geocoder, logger *slog.Logger) *Ranker {
	return &Ranker{geocoder: geocoder, logger: logger}
}

// Rank computes distances, filters, sorts, and truncates. Geocoding
// failures degrade to an unknown distance for that listing; they never fail
// the browse. Without a usable requester address, distance sorting and
// radius filtering are unavailable and the sort falls back to newest.
func (r *Ranker) Rank(ctx context.Context, requesterAddress string, candidates []models.Medicine, opts Options) []Listing {
	listings := make([]Listing, len(candidates))
	for i, m := range candidates {
		listings[i] = Listing{Medicine: m, DistanceLabel: geo.FormatKm(nil)}
	}

	origin := r.resolveOrigin(ctx, requesterAddress)
	if origin != nil {
		r.computeDistances(ctx, origin, listings)
		if opts.MaxKm > 0 {
			listings = filterByRadius(listings, opts.MaxKm)
		}
	} else if opts.Sort == SortDistance {
		opts.Sort = SortNewest
	}

	sortListings(listings, opts.Sort)

	if len(listings) > PageSize {
		listings = listings[:PageSize]
	}
	return listings
}

func (r *Ranker) resolveOrigin(ctx context.Context, address string) *geo.Point {
	if strings.TrimSpace(address) == "" {
		return nil
	}
	origin, err := r.geocoder.Geocode(ctx, address)
	if err != nil {
		r.logger.Warn("geocoding requester address failed", "error", err)
		return nil
	}
	return origin
}

// computeDistances geocodes pickup addresses concurrently. Each call is
// bounded by the geocoder's own timeout and the parent ctx, so one slow
// provider call cannot stall the whole page.
func (r *Ranker) computeDistances(ctx context.Context, origin *geo.Point, listings []Listing) {
	var wg sync.WaitGroup
	for i := range listings {
		wg.Add(1)
		go func(l *Listing) {
			defer wg.Done()

			point, err := r.geocoder.Geocode(ctx, l.Medicine.PickupAddress)
			if err != nil {
				r.logger.Warn("geocoding pickup address failed",
					"medicine_id", l.Medicine.ID, "error", err)
				return
			}
			if point == nil {
				return
			}

			km := geo.HaversineKm(*origin, *point)
			l.DistanceKm = &km
			l.DistanceLabel = geo.FormatKm(&km)
		}(&listings[i])
	}
	wg.Wait()
}

// filterByRadius drops listings beyond maxKm. Listings with unknown
// distance are excluded; they cannot prove they are in range.
func filterByRadius(listings []Listing, maxKm float64) []Listing {
	filtered := listings[:0]
	for _, l := range listings {
		if l.DistanceKm != nil && *l.DistanceKm <= maxKm {
			filtered = append(filtered, l)
		}
	}
	return filtered
}

func sortListings(listings []Listing, key SortKey) {
	switch key {
	case SortDistance:
		sort.SliceStable(listings, func(i, j int) bool {
			a, b := listings[i].DistanceKm, listings[j].DistanceKm
			if a == nil {
				return false
			}
			if b == nil {
				return true
			}
			return *a < *b
		})
	case SortOldest:
		sort.SliceStable(listings, func(i, j int) bool {
			return listings[i].Medicine.CreatedAt.Before(listings[j].Medicine.CreatedAt)
		})
	case SortExpiry:
		sort.SliceStable(listings, func(i, j int) bool {
			return listings[i].Medicine.Expiry.Before(listings[j].Medicine.Expiry)
		})
	case SortName:
		sort.SliceStable(listings, func(i, j int) bool {
			return strings.ToLower(listings[i].Medicine.Name) < strings.ToLower(listings[j].Medicine.Name)
		})
	default: // SortNewest
		sort.SliceStable(listings, func(i, j int) bool {
			return listings[i].Medicine.CreatedAt.After(listings[j].Medicine.CreatedAt)
		})
	}
}

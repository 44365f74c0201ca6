package spot

import (
	"sort"
	"strings"

	"parkease/internal/shared/geo"
)

// Apply filters and orders spots without touching the input slice.
// Input order is treated as newest first.
func Apply(spots []Spot, f Filter) []Spot {
	location := strings.ToLower(strings.TrimSpace(f.Location))
	category := strings.ToLower(strings.TrimSpace(f.Category))
	if category == "all" {
		category = ""
	}

	out := make([]Spot, 0, len(spots))
	for _, sp := range spots {
		if sp.PricePerHour < f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && sp.PricePerHour > *f.MaxPrice {
			continue
		}
		if category != "" && sp.Category != category {
			continue
		}
		if location != "" && !matchesLocation(sp, location) {
			continue
		}
		out = append(out, sp)
	}

	sortSpots(out, f)
	return out
}

func matchesLocation(sp Spot, needle string) bool {
	return strings.Contains(strings.ToLower(sp.City), needle) ||
		strings.Contains(strings.ToLower(sp.Address), needle) ||
		strings.Contains(strings.ToLower(sp.State), needle)
}

func sortSpots(spots []Spot, f Filter) {
	switch f.Sort {
	case SortPriceLow:
		sort.SliceStable(spots, func(i, j int) bool { return spots[i].PricePerHour < spots[j].PricePerHour })
	case SortPriceHigh:
		sort.SliceStable(spots, func(i, j int) bool { return spots[i].PricePerHour > spots[j].PricePerHour })
	case SortRating:
		sort.SliceStable(spots, func(i, j int) bool { return spots[i].RatingAvg > spots[j].RatingAvg })
	case SortDistance:
		if f.Lat == nil || f.Lng == nil {
			return
		}
		for i := range spots {
			d := geo.HaversineKm(*f.Lat, *f.Lng, spots[i].Latitude, spots[i].Longitude)
			spots[i].DistanceKm = &d
		}
		sort.SliceStable(spots, func(i, j int) bool { return *spots[i].DistanceKm < *spots[j].DistanceKm })
	}
}

// ValidSort reports whether s names a known ordering. Empty means newest.
func ValidSort(s string) bool {
	switch s {
	case "", SortNewest, SortPriceLow, SortPriceHigh, SortRating, SortDistance:
		return true
	}
	return false
}

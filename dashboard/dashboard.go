// Package dashboard merges the restaurant and map-search read paths into the
// aggregates shown on the dashboard.
package dashboard

import (
	"sort"
)

const DefaultTopN = 5

// Entry is one restaurant as the dashboard sees it, from either source.
type Entry struct {
	RestaurantID int64   `json:"restaurant_ID"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Region       string  `json:"region"`
	City         string  `json:"city"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Waiting      int     `json:"waiting"`
}

type CategoryTotal struct {
	Category string `json:"category"`
	Total    int    `json:"total_waiting"`
}

type RegionCity struct {
	Region string
	City   string
}

// Filter holds equality predicates; empty fields match everything.
type Filter struct {
	Region   string    `json:"region"`
	City     string    `json:"city"`
	Category string    `json:"category"`
	Bounds   []float64 `json:"bounds,omitempty"`
}

type Options struct {
	Regions      []string            `json:"regions"`
	RegionCities map[string][]string `json:"region_cities"`
	Categories   []string            `json:"categories"`
}

// TopRestaurants merges the sources and keeps the n entries with the most
// waiting teams. The sort is stable so earlier sources win ties.
func TopRestaurants(n int, sources ...[]Entry) []Entry {
	var all []Entry
	for _, src := range sources {
		all = append(all, src...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Waiting > all[j].Waiting
	})
	if len(all) > n {
		all = all[:n]
	}
	if all == nil {
		all = []Entry{}
	}
	return all
}

// TopCategories sums waiting per category across sources and keeps the n
// largest totals.
func TopCategories(n int, sources ...[]CategoryTotal) []CategoryTotal {
	totals := map[string]int{}
	for _, src := range sources {
		for _, ct := range src {
			if ct.Category == "" {
				continue
			}
			totals[ct.Category] += ct.Total
		}
	}

	list := make([]CategoryTotal, 0, len(totals))
	for category, total := range totals {
		list = append(list, CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Total != list[j].Total {
			return list[i].Total > list[j].Total
		}
		return list[i].Category < list[j].Category
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}

// BuildOptions collects the distinct, non-empty filter values.
func BuildOptions(pairs []RegionCity, categories []string) Options {
	regionSet := map[string]bool{}
	cities := map[string]map[string]bool{}
	for _, p := range pairs {
		if p.Region == "" {
			continue
		}
		regionSet[p.Region] = true
		if p.City == "" {
			continue
		}
		if cities[p.Region] == nil {
			cities[p.Region] = map[string]bool{}
		}
		cities[p.Region][p.City] = true
	}

	opts := Options{
		Regions:      sortedSet(regionSet),
		RegionCities: make(map[string][]string, len(cities)),
	}
	for region, set := range cities {
		opts.RegionCities[region] = sortedSet(set)
	}

	categorySet := map[string]bool{}
	for _, c := range categories {
		if c != "" {
			categorySet[c] = true
		}
	}
	opts.Categories = sortedSet(categorySet)

	return opts
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

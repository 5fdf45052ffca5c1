package store

import (
	"context"
	"fmt"

	"github.com/de7fp/restaurant-rag/dashboard"
	"github.com/de7fp/restaurant-rag/models"
)

func restaurantEntry(r models.Restaurant) dashboard.Entry {
	e := dashboard.Entry{
		RestaurantID: r.PlaceID,
		Name:         r.Name,
		Category:     r.Category,
		Region:       r.Region,
		City:         r.City,
		Waiting:      r.CurrentWaitingTeam,
	}
	if r.X != nil {
		e.X = *r.X
	}
	if r.Y != nil {
		e.Y = *r.Y
	}
	return e
}

func mapSearchEntry(m models.MapSearchHistory) dashboard.Entry {
	return dashboard.Entry{
		RestaurantID: m.RestaurantID,
		Name:         m.Name,
		Category:     m.Category,
		Region:       m.Region,
		City:         m.City,
		X:            m.X,
		Y:            m.Y,
		Waiting:      m.Waiting,
	}
}

func (p *Pg) TopWaitingRestaurants(ctx context.Context, n int) ([]dashboard.Entry, error) {
	var rows []models.Restaurant
	if err := p.db(ctx, KindRestaurant).Order("current_waiting_team DESC, id").Limit(n).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query top restaurants: %w", err)
	}

	entries := make([]dashboard.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, restaurantEntry(r))
	}
	return entries, nil
}

func (p *Pg) TopWaitingMapSearches(ctx context.Context, n int) ([]dashboard.Entry, error) {
	var rows []models.MapSearchHistory
	if err := p.db(ctx, KindMapSearch).Order("waiting DESC, id").Limit(n).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query top map searches: %w", err)
	}

	entries := make([]dashboard.Entry, 0, len(rows))
	for _, m := range rows {
		entries = append(entries, mapSearchEntry(m))
	}
	return entries, nil
}

func (p *Pg) CategoryWaitingTotals(ctx context.Context) ([]dashboard.CategoryTotal, error) {
	var totals []dashboard.CategoryTotal
	err := p.db(ctx, KindRestaurant).
		Model(&models.Restaurant{}).
		Select("category, SUM(current_waiting_team) AS total").
		Where("category <> ''").
		Group("category").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum restaurant categories: %w", err)
	}
	return totals, nil
}

func (p *Pg) MapCategoryWaitingTotals(ctx context.Context) ([]dashboard.CategoryTotal, error) {
	var totals []dashboard.CategoryTotal
	err := p.db(ctx, KindMapSearch).
		Model(&models.MapSearchHistory{}).
		Select("category, SUM(waiting) AS total").
		Where("category <> ''").
		Group("category").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum map search categories: %w", err)
	}
	return totals, nil
}

// FilterOptionSources returns every distinct region/city pair and category
// across restaurants and map searches.
func (p *Pg) FilterOptionSources(ctx context.Context) ([]dashboard.RegionCity, []string, error) {
	var pairs []dashboard.RegionCity
	var categories []string

	sources := []struct {
		kind  Kind
		model interface{}
	}{
		{KindRestaurant, &models.Restaurant{}},
		{KindMapSearch, &models.MapSearchHistory{}},
	}
	for _, src := range sources {
		var rc []dashboard.RegionCity
		if err := p.db(ctx, src.kind).Model(src.model).Distinct("region", "city").Scan(&rc).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to query regions: %w", err)
		}
		pairs = append(pairs, rc...)

		var cats []string
		if err := p.db(ctx, src.kind).Model(src.model).Distinct().Pluck("category", &cats).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to query categories: %w", err)
		}
		categories = append(categories, cats...)
	}

	return pairs, categories, nil
}

// FilterEntries applies the equality predicates to both sources. Restaurants
// without coordinates are left out since they cannot be drawn on the map.
func (p *Pg) FilterEntries(ctx context.Context, filter dashboard.Filter) ([]dashboard.Entry, error) {
	rq := p.db(ctx, KindRestaurant).Model(&models.Restaurant{})
	mq := p.db(ctx, KindMapSearch).Model(&models.MapSearchHistory{})
	if filter.Region != "" {
		rq = rq.Where("region = ?", filter.Region)
		mq = mq.Where("region = ?", filter.Region)
	}
	if filter.City != "" {
		rq = rq.Where("city = ?", filter.City)
		mq = mq.Where("city = ?", filter.City)
	}
	if filter.Category != "" {
		rq = rq.Where("category = ?", filter.Category)
		mq = mq.Where("category = ?", filter.Category)
	}

	var restaurants []models.Restaurant
	if err := rq.Order("id").Find(&restaurants).Error; err != nil {
		return nil, fmt.Errorf("failed to filter restaurants: %w", err)
	}
	var searches []models.MapSearchHistory
	if err := mq.Order("id").Find(&searches).Error; err != nil {
		return nil, fmt.Errorf("failed to filter map searches: %w", err)
	}

	entries := make([]dashboard.Entry, 0, len(restaurants)+len(searches))
	for _, r := range restaurants {
		if r.HasCoordinates() {
			entries = append(entries, restaurantEntry(r))
		}
	}
	for _, m := range searches {
		entries = append(entries, mapSearchEntry(m))
	}
	return entries, nil
}

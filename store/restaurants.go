package store

import (
	"context"
	"fmt"

	"github.com/de7fp/restaurant-rag/models"
	"github.com/pgvector/pgvector-go"
)

// NearestRestaurants returns up to k embedded restaurants ordered by ascending
// cosine distance to vector.
func (p *Pg) NearestRestaurants(ctx context.Context, vector []float32, k int) ([]models.Restaurant, error) {
	if k < 1 {
		return nil, nil
	}

	var restaurants []models.Restaurant
	err := p.db(ctx, KindRestaurant).
		Model(&models.Restaurant{}).
		Select("*, embedding <=> ? AS distance", pgvector.NewVector(vector)).
		Where("embedding IS NOT NULL").
		Order("distance, id").
		Limit(k).
		Find(&restaurants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query nearest restaurants: %w", err)
	}

	return restaurants, nil
}

// SimilarRestaurants returns the k restaurants closest to the given one,
// excluding itself.
func (p *Pg) SimilarRestaurants(ctx context.Context, placeID int64, k int) ([]models.Restaurant, error) {
	origin, err := p.GetRestaurant(ctx, placeID)
	if err != nil {
		return nil, err
	}
	if origin.Embedding == nil {
		return []models.Restaurant{}, nil
	}

	nearest, err := p.NearestRestaurants(ctx, origin.Embedding.Slice(), k+1)
	if err != nil {
		return nil, err
	}

	similar := make([]models.Restaurant, 0, k)
	for _, r := range nearest {
		if r.ID == origin.ID || len(similar) == k {
			continue
		}
		similar = append(similar, r)
	}

	return similar, nil
}

func (p *Pg) GetRestaurant(ctx context.Context, placeID int64) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := p.db(ctx, KindRestaurant).Where("place_id = ?", placeID).First(&restaurant).Error; err != nil {
		return nil, notFound(err)
	}

	return &restaurant, nil
}

func (p *Pg) GetRestaurantByID(ctx context.Context, id uint64) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := p.db(ctx, KindRestaurant).First(&restaurant, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}

	return &restaurant, nil
}

// RestaurantExists reports whether a record with the place id or the name is
// already stored.
func (p *Pg) RestaurantExists(ctx context.Context, placeID int64, name string) (bool, error) {
	var count int64
	err := p.db(ctx, KindRestaurant).
		Model(&models.Restaurant{}).
		Where("place_id = ? OR name = ?", placeID, name).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check restaurant existence: %w", err)
	}

	return count > 0, nil
}

func (p *Pg) CreateRestaurant(ctx context.Context, restaurant *models.Restaurant) error {
	if err := p.db(ctx, KindRestaurant).Create(restaurant).Error; err != nil {
		return fmt.Errorf("failed to create restaurant: %w", err)
	}

	return nil
}

// UpdateRestaurant saves every column; a nil embedding queues the record for
// re-embedding.
func (p *Pg) UpdateRestaurant(ctx context.Context, restaurant *models.Restaurant) error {
	res := p.db(ctx, KindRestaurant).Select("*").Omit("created_at").Where("id = ?", restaurant.ID).Updates(restaurant)
	if res.Error != nil {
		return fmt.Errorf("failed to update restaurant: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (p *Pg) DeleteRestaurant(ctx context.Context, placeID int64) error {
	res := p.db(ctx, KindRestaurant).Where("place_id = ?", placeID).Delete(&models.Restaurant{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete restaurant: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (p *Pg) ListRestaurants(ctx context.Context, page Page) ([]models.Restaurant, error) {
	var restaurants []models.Restaurant
	err := p.db(ctx, KindRestaurant).
		Order("rating DESC, id").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&restaurants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}

	return restaurants, nil
}

func (p *Pg) UpdateRestaurantVector(ctx context.Context, id uint64, description string, vector []float32) error {
	embedding := pgvector.NewVector(vector)
	return p.db(ctx, KindRestaurant).
		Model(&models.Restaurant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"description": description,
			"embedding":   embedding,
		}).Error
}

func (p *Pg) UnembeddedRestaurantIDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	if err := p.db(ctx, KindRestaurant).Model(&models.Restaurant{}).Where("embedding IS NULL").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to query unembedded restaurants: %w", err)
	}

	return ids, nil
}

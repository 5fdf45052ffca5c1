package main

import (
	"errors"
	"strings"

	"github.com/de7fp/restaurant-rag/models"
)

const (
	DefaultSimilarK      = 4
	MaxSimilarK          = 20
	DefaultWordCloudSize = 50
	wordCloudQueryWindow = 500
)

const (
	msgBadRequest = "잘못된 요청 형식입니다."
	msgNotFound   = "restaurant not found"
)

type ChatRequest struct {
	Message string `json:"message"`
}

// RestaurantRequest is the admin payload for creating or replacing a
// restaurant. Derived fields (wait time, region, description) are computed.
type RestaurantRequest struct {
	PlaceID            int64    `json:"restaurant_ID"`
	Name               string   `json:"name"`
	Address            string   `json:"address"`
	Category           string   `json:"category"`
	Phone              string   `json:"phone"`
	Rating             float64  `json:"rating"`
	ReviewCount        int      `json:"review_count"`
	BlogCount          int      `json:"blog_count"`
	ImgURL             string   `json:"img_url"`
	X                  *float64 `json:"x"`
	Y                  *float64 `json:"y"`
	Region             string   `json:"region"`
	City               string   `json:"city"`
	Location           string   `json:"location"`
	HourlyVisit        string   `json:"hourly_visit"`
	CurrentWaitingTeam int      `json:"waiting"`
}

func (r *RestaurantRequest) Validate() error {
	if r.PlaceID <= 0 {
		return errors.New("restaurant_ID must be a positive integer")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if r.Rating < 0 || r.Rating > 5 {
		return errors.New("rating must be between 0 and 5")
	}
	if r.CurrentWaitingTeam < 0 {
		return errors.New("waiting must not be negative")
	}
	return nil
}

// Apply copies the request onto m and clears the embedding so the record is
// picked up for embedding again.
func (r *RestaurantRequest) Apply(m *models.Restaurant) {
	m.PlaceID = r.PlaceID
	m.Name = strings.TrimSpace(r.Name)
	m.Address = r.Address
	m.Category = r.Category
	m.Tags = nil
	m.Phone = r.Phone
	m.Rating = r.Rating
	m.ReviewCount = r.ReviewCount
	m.BlogCount = r.BlogCount
	m.PlaceURL = ""
	m.ImgURL = r.ImgURL
	m.X = r.X
	m.Y = r.Y
	m.Region = r.Region
	m.City = r.City
	m.Location = r.Location
	m.HourlyVisit = r.HourlyVisit
	m.CurrentWaitingTeam = r.CurrentWaitingTeam
	m.Embedding = nil
	m.Normalize()
}

type MapSearchRequest struct {
	RestaurantID int64   `json:"restaurant_ID"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Region       string  `json:"region"`
	City         string  `json:"city"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Waiting      int     `json:"waiting"`
}

func (r *MapSearchRequest) Validate() error {
	if r.RestaurantID <= 0 {
		return errors.New("restaurant_ID must be a positive integer")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if r.Waiting < 0 {
		return errors.New("waiting must not be negative")
	}
	return nil
}

func (r *MapSearchRequest) ToModel() *models.MapSearchHistory {
	return &models.MapSearchHistory{
		RestaurantID: r.RestaurantID,
		Name:         strings.TrimSpace(r.Name),
		Category:     r.Category,
		Region:       r.Region,
		City:         r.City,
		X:            r.X,
		Y:            r.Y,
		Waiting:      r.Waiting,
	}
}

package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// WaitMinutesPerTeam is the estimated wait contributed by each waiting team.
const WaitMinutesPerTeam = 10

func WaitMinutes(teams int) int {
	if teams < 0 {
		teams = 0
	}
	return teams * WaitMinutesPerTeam
}

func PlaceURL(placeID int64) string {
	if placeID == 0 {
		return ""
	}
	return "https://place.map.kakao.com/" + strconv.FormatInt(placeID, 10)
}

// SplitAddress derives the dashboard region, city and short location from a
// lot address such as "서울 마포구 상수동 93-1".
func SplitAddress(address string) (region, city, location string) {
	parts := strings.Fields(address)
	if len(parts) > 0 {
		region = parts[0]
	}
	if len(parts) > 1 {
		city = parts[1]
	}
	if len(parts) > 2 {
		location = strings.Join(parts[1:3], " ")
	} else {
		location = address
	}
	return region, city, location
}

// CategoryTags splits a kakao category path ("음식점 > 한식 > 국밥") into its parts.
func CategoryTags(category string) pq.StringArray {
	var tags pq.StringArray
	for _, part := range strings.Split(category, ">") {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

type Restaurant struct {
	ID                   uint64           `gorm:"primaryKey" json:"id"`
	PlaceID              int64            `gorm:"uniqueIndex" json:"restaurant_ID"`
	Name                 string           `gorm:"size:100;index" json:"name"`
	Address              string           `gorm:"size:255" json:"address"`
	Category             string           `gorm:"size:100;index" json:"category"`
	Tags                 pq.StringArray   `gorm:"type:text[]" json:"tags"`
	Phone                string           `gorm:"size:50" json:"phone"`
	Rating               float64          `json:"rating"`
	ReviewCount          int              `json:"review_count"`
	BlogCount            int              `json:"blog_count"`
	PlaceURL             string           `json:"place_url"`
	ImgURL               string           `gorm:"size:500" json:"img_url"`
	X                    *float64         `json:"x"`
	Y                    *float64         `json:"y"`
	Region               string           `gorm:"size:20;index" json:"region"`
	City                 string           `gorm:"size:15" json:"city"`
	Location             string           `gorm:"size:50" json:"location"`
	HourlyVisit          string           `json:"hourly_visit,omitempty"`
	Description          string           `json:"description"`
	Embedding            *pgvector.Vector `gorm:"type:vector(768)" json:"-"`
	CurrentWaitingTeam   int              `json:"current_waiting_team"`
	EstimatedWaitingTime int              `json:"estimated_waiting_time"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`

	// Distance is only populated by similarity queries.
	Distance float64 `gorm:"->;-:migration" json:"distance,omitempty"`
}

func (r *Restaurant) TableName() string {
	return "restaurants"
}

// BeforeSave keeps the estimated wait a function of the waiting team count.
func (r *Restaurant) BeforeSave(tx *gorm.DB) error {
	r.EstimatedWaitingTime = WaitMinutes(r.CurrentWaitingTeam)
	return nil
}

// Normalize fills every derived field from the source fields.
func (r *Restaurant) Normalize() {
	r.EstimatedWaitingTime = WaitMinutes(r.CurrentWaitingTeam)
	if r.PlaceURL == "" {
		r.PlaceURL = PlaceURL(r.PlaceID)
	}
	if len(r.Tags) == 0 {
		r.Tags = CategoryTags(r.Category)
	}
	if r.Region == "" && r.Address != "" {
		region, city, location := SplitAddress(r.Address)
		r.Region = region
		if r.City == "" {
			r.City = city
		}
		if r.Location == "" {
			r.Location = location
		}
	}
	if r.Location == "" {
		r.Location = "Unknown"
	}
	r.Description = r.Describe()
}

func (r *Restaurant) HasCoordinates() bool {
	return r.X != nil && r.Y != nil && *r.X != 0 && *r.Y != 0
}

// FormatRating keeps one decimal for whole ratings so 4 reads as "4.0".
func FormatRating(r float64) string {
	if r == float64(int64(r)) {
		return strconv.FormatFloat(r, 'f', 1, 64)
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// Describe renders the text that gets embedded for the restaurant.
func (r *Restaurant) Describe() string {
	phone := r.Phone
	if phone == "" {
		phone = "없음"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "맛집 이름: %s, 카테고리: %s. ", r.Name, r.Category)
	fmt.Fprintf(&b, "현재 대기 팀: %d팀, 예상 대기시간: %d분. ", r.CurrentWaitingTeam, WaitMinutes(r.CurrentWaitingTeam))
	fmt.Fprintf(&b, "주소: %s, 전화번호: %s. ", r.Address, phone)
	fmt.Fprintf(&b, "평점: %s점.", FormatRating(r.Rating))
	if r.ReviewCount > 0 || r.BlogCount > 0 {
		fmt.Fprintf(&b, " 방문자 리뷰 %d개, 블로그 리뷰 %d개.", r.ReviewCount, r.BlogCount)
	}
	return b.String()
}

func (r *Restaurant) String() string {
	return fmt.Sprintf("%s (%s)", r.Name, strconv.FormatFloat(r.Rating, 'f', -1, 64))
}

type ChatHistory struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Fallback  bool      `json:"fallback"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (c *ChatHistory) TableName() string {
	return "chat_histories"
}

// MapSearchHistory is a denormalized snapshot used by the dashboard filters.
type MapSearchHistory struct {
	ID           uint64  `gorm:"primaryKey" json:"id"`
	RestaurantID int64   `gorm:"index" json:"restaurant_ID"`
	Name         string  `gorm:"size:200" json:"name"`
	Category     string  `gorm:"size:20" json:"category"`
	Region       string  `gorm:"size:20" json:"region"`
	City         string  `gorm:"size:15" json:"city"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Waiting      int     `json:"waiting"`
}

func (m *MapSearchHistory) TableName() string {
	return "map_search_histories"
}

func (m *MapSearchHistory) String() string {
	return fmt.Sprintf("%s (%s)", m.Name, m.Region)
}

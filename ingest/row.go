package ingest

import (
	"context"
	"strconv"
	"strings"

	"github.com/de7fp/restaurant-rag/models"
)

// Row is one restaurant as read from a source, before it is stored.
type Row struct {
	PlaceID     int64
	Name        string
	Category    string
	RoadAddress string
	LotAddress  string
	Phone       string
	Rating      float64
	ReviewCount int
	BlogCount   int
	ImgURL      string
	X           *float64
	Y           *float64
	HourlyVisit string
	Waiting     int
	// HasWaiting is false when the source joins real-time waiting data and
	// none exists for this row.
	HasWaiting bool
}

// Source yields the rows of one ingestion run.
type Source interface {
	Name() string
	Rows(ctx context.Context) ([]Row, error)
}

func (r Row) Valid() bool {
	return r.PlaceID != 0 && strings.TrimSpace(r.Name) != ""
}

// Restaurant converts the row into a model with all derived fields set.
func (r Row) Restaurant() *models.Restaurant {
	rest := &models.Restaurant{
		PlaceID:            r.PlaceID,
		Name:               strings.TrimSpace(r.Name),
		Address:            r.RoadAddress,
		Category:           r.Category,
		Phone:              r.Phone,
		Rating:             r.Rating,
		ReviewCount:        r.ReviewCount,
		BlogCount:          r.BlogCount,
		ImgURL:             r.ImgURL,
		X:                  r.X,
		Y:                  r.Y,
		HourlyVisit:        r.HourlyVisit,
		CurrentWaitingTeam: r.Waiting,
	}
	if rest.Address == "" {
		rest.Address = r.LotAddress
	}
	if r.LotAddress != "" {
		rest.Region, rest.City, rest.Location = models.SplitAddress(r.LotAddress)
	}
	rest.Normalize()
	return rest
}

func parseInt64(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseCount accepts "12" as well as "12.0", which spreadsheet exports produce.
func parseCount(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseCoord(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

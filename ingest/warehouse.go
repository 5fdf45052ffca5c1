package ingest

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const warehouseQuery = `
SELECT k.id, k.place_name, k.category_name, k.road_address_name,
       k.phone, k.rating, k.img_url, k.x, k.y,
       COALESCE(w.waiting, 0) AS waiting_count
FROM raw_data.kakao_crawl k
LEFT JOIN analytics.realtime_waiting w
    ON CAST(k.id AS VARCHAR) = w.id`

type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// WarehouseSource reads the crawl table joined with real-time waiting counts
// from the Redshift warehouse.
type WarehouseSource struct {
	db Querier
}

func NewWarehouseSource(db Querier) *WarehouseSource {
	return &WarehouseSource{db: db}
}

// OpenWarehouse connects through lib/pq; Redshift speaks the postgres protocol.
func OpenWarehouse(ctx context.Context, connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
	}
	return db, nil
}

func (s *WarehouseSource) Name() string {
	return "warehouse"
}

func (s *WarehouseSource) Rows(ctx context.Context) ([]Row, error) {
	rs, err := s.db.QueryContext(ctx, warehouseQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query warehouse: %w", err)
	}
	defer rs.Close()

	var rows []Row
	for rs.Next() {
		var id, name, category, address, phone, img, rating, x, y, waiting sql.NullString
		if err := rs.Scan(&id, &name, &category, &address, &phone, &rating, &img, &x, &y, &waiting); err != nil {
			return nil, fmt.Errorf("failed to scan warehouse row: %w", err)
		}

		rows = append(rows, Row{
			PlaceID:     parseInt64(id.String),
			Name:        name.String,
			Category:    category.String,
			RoadAddress: address.String,
			Phone:       phone.String,
			Rating:      parseFloat(rating.String),
			ImgURL:      img.String,
			X:           parseCoord(x.String),
			Y:           parseCoord(y.String),
			Waiting:     parseCount(waiting.String),
			HasWaiting:  true,
		})
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("failed to read warehouse rows: %w", err)
	}

	return rows, nil
}

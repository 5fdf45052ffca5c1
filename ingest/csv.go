package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSVSource reads a kakao crawl export. When WaitingPath is set the waiting
// column comes from that file, joined on id; otherwise the crawl file's own
// waiting column is used.
type CSVSource struct {
	CrawlPath   string
	WaitingPath string
}

func (s *CSVSource) Name() string {
	return "csv"
}

func (s *CSVSource) Rows(ctx context.Context) ([]Row, error) {
	records, err := readCSV(s.CrawlPath)
	if err != nil {
		return nil, err
	}

	var waiting map[int64]int
	if s.WaitingPath != "" {
		waiting, err = readWaiting(s.WaitingPath)
		if err != nil {
			return nil, err
		}
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row := Row{
			PlaceID:     parseInt64(rec["id"]),
			Name:        rec["place_name"],
			Category:    rec["category_name"],
			RoadAddress: rec["road_address_name"],
			LotAddress:  rec["address_name"],
			Phone:       rec["phone"],
			Rating:      parseFloat(rec["rating"]),
			ReviewCount: parseCount(rec["review_count"]),
			BlogCount:   parseCount(rec["blog_count"]),
			ImgURL:      rec["img_url"],
			X:           parseCoord(rec["x"]),
			Y:           parseCoord(rec["y"]),
			HourlyVisit: rec["hourly_visit"],
			HasWaiting:  true,
		}

		if waiting != nil {
			row.Waiting, row.HasWaiting = waiting[row.PlaceID]
		} else {
			row.Waiting = parseCount(rec["waiting"])
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// readCSV returns every record keyed by header name.
func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var records []map[string]string
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		rec := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(fields) {
				rec[name] = fields[i]
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

func readWaiting(path string) (map[int64]int, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	waiting := make(map[int64]int, len(records))
	for _, rec := range records {
		id := parseInt64(rec["id"])
		if id == 0 {
			continue
		}
		waiting[id] = parseCount(rec["waiting"])
	}
	return waiting, nil
}

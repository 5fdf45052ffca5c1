package main

import (
	"context"
	"errors"
	"sync"

	"github.com/de7fp/restaurant-rag/dashboard"
	"github.com/de7fp/restaurant-rag/models"
	"github.com/de7fp/restaurant-rag/rag"
	"github.com/de7fp/restaurant-rag/store"
)

type fakeStore struct {
	restaurants map[int64]*models.Restaurant
	similar     []models.Restaurant
	searches    []dashboard.Entry
	mapSearches []models.MapSearchHistory
	history     []models.ChatHistory
	created     []*models.Restaurant
	updated     []*models.Restaurant
	queries     []string
	failWith    error
	lastFilter  dashboard.Filter
	lastPage    store.Page
}

func newFakeStore() *fakeStore {
	x1, y1 := 126.92, 37.54
	x2, y2 := 127.03, 37.50
	return &fakeStore{
		restaurants: map[int64]*models.Restaurant{
			101: {ID: 1, PlaceID: 101, Name: "상수국밥", Category: "한식", Region: "서울", City: "마포구", X: &x1, Y: &y1, CurrentWaitingTeam: 4, EstimatedWaitingTime: 40},
			102: {ID: 2, PlaceID: 102, Name: "강남스시", Category: "일식", Region: "서울", City: "강남구", X: &x2, Y: &y2, CurrentWaitingTeam: 1, EstimatedWaitingTime: 10},
		},
		searches: []dashboard.Entry{
			{RestaurantID: 201, Name: "해운대횟집", Category: "일식", Region: "부산", City: "해운대구", X: 129.16, Y: 35.16, Waiting: 9},
		},
	}
}

func (f *fakeStore) GetRestaurant(_ context.Context, placeID int64) (*models.Restaurant, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	r, ok := f.restaurants[placeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (f *fakeStore) SimilarRestaurants(ctx context.Context, placeID int64, k int) ([]models.Restaurant, error) {
	if _, err := f.GetRestaurant(ctx, placeID); err != nil {
		return nil, err
	}
	if len(f.similar) > k {
		return f.similar[:k], nil
	}
	return f.similar, nil
}

func (f *fakeStore) ListRestaurants(_ context.Context, page store.Page) ([]models.Restaurant, error) {
	f.lastPage = page
	var out []models.Restaurant
	for _, id := range []int64{101, 102} {
		if r, ok := f.restaurants[id]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) RestaurantExists(_ context.Context, placeID int64, name string) (bool, error) {
	for _, r := range f.restaurants {
		if r.PlaceID == placeID || r.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateRestaurant(_ context.Context, r *models.Restaurant) error {
	r.ID = uint64(len(f.restaurants) + 1)
	f.restaurants[r.PlaceID] = r
	f.created = append(f.created, r)
	return nil
}

func (f *fakeStore) UpdateRestaurant(_ context.Context, r *models.Restaurant) error {
	f.restaurants[r.PlaceID] = r
	f.updated = append(f.updated, r)
	return nil
}

func (f *fakeStore) DeleteRestaurant(_ context.Context, placeID int64) error {
	if _, ok := f.restaurants[placeID]; !ok {
		return store.ErrNotFound
	}
	delete(f.restaurants, placeID)
	return nil
}

func (f *fakeStore) restaurantEntries() []dashboard.Entry {
	var out []dashboard.Entry
	for _, id := range []int64{101, 102} {
		r, ok := f.restaurants[id]
		if !ok {
			continue
		}
		out = append(out, dashboard.Entry{
			RestaurantID: r.PlaceID, Name: r.Name, Category: r.Category,
			Region: r.Region, City: r.City, X: *r.X, Y: *r.Y, Waiting: r.CurrentWaitingTeam,
		})
	}
	return out
}

func (f *fakeStore) TopWaitingRestaurants(_ context.Context, n int) ([]dashboard.Entry, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.restaurantEntries(), nil
}

func (f *fakeStore) TopWaitingMapSearches(_ context.Context, n int) ([]dashboard.Entry, error) {
	return f.searches, nil
}

func (f *fakeStore) CategoryWaitingTotals(context.Context) ([]dashboard.CategoryTotal, error) {
	return []dashboard.CategoryTotal{{Category: "한식", Total: 4}, {Category: "일식", Total: 1}}, nil
}

func (f *fakeStore) MapCategoryWaitingTotals(context.Context) ([]dashboard.CategoryTotal, error) {
	return []dashboard.CategoryTotal{{Category: "일식", Total: 9}}, nil
}

func (f *fakeStore) FilterOptionSources(context.Context) ([]dashboard.RegionCity, []string, error) {
	var pairs []dashboard.RegionCity
	var categories []string
	for _, e := range append(f.restaurantEntries(), f.searches...) {
		pairs = append(pairs, dashboard.RegionCity{Region: e.Region, City: e.City})
		categories = append(categories, e.Category)
	}
	return pairs, categories, nil
}

func (f *fakeStore) FilterEntries(_ context.Context, filter dashboard.Filter) ([]dashboard.Entry, error) {
	f.lastFilter = filter
	var out []dashboard.Entry
	for _, e := range append(f.restaurantEntries(), f.searches...) {
		if matchesFilter(filter, e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func matchesFilter(f dashboard.Filter, e dashboard.Entry) bool {
	return (f.Region == "" || e.Region == f.Region) &&
		(f.City == "" || e.City == f.City) &&
		(f.Category == "" || e.Category == f.Category)
}

func (f *fakeStore) ListChatHistory(_ context.Context, page store.Page) ([]models.ChatHistory, error) {
	f.lastPage = page
	return f.history, nil
}

func (f *fakeStore) CreateMapSearch(_ context.Context, m *models.MapSearchHistory) error {
	m.ID = uint64(len(f.mapSearches) + 1)
	f.mapSearches = append(f.mapSearches, *m)
	return nil
}

func (f *fakeStore) ListMapSearches(context.Context, store.Page) ([]models.MapSearchHistory, error) {
	return f.mapSearches, nil
}

func (f *fakeStore) DeleteMapSearch(_ context.Context, id uint64) error {
	for i, m := range f.mapSearches {
		if m.ID == id {
			f.mapSearches = append(f.mapSearches[:i], f.mapSearches[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) Ping(context.Context) error {
	return f.failWith
}

func (f *fakeStore) ChatQueries(_ context.Context, limit int) ([]string, error) {
	return f.queries, nil
}

type fakeChat struct {
	mu      sync.Mutex
	outcome rag.Outcome
	err     error
	got     []string
}

func (f *fakeChat) Answer(_ context.Context, message string) (rag.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, message)
	if message == "" {
		return rag.Outcome{}, &rag.Error{Kind: rag.KindInvalidRequest, Message: "메시지가 비어있습니다."}
	}
	return f.outcome, f.err
}

func (f *fakeChat) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.got...)
}

var errDatabase = errors.New("database is down")

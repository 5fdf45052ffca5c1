package main

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/de7fp/restaurant-rag/dashboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopRestaurantsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/dashboard/api/top-restaurants", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Top []dashboard.Entry `json:"top_restaurants"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Top, 3)
	assert.Equal(t, int64(201), body.Top[0].RestaurantID)
	assert.Equal(t, int64(101), body.Top[1].RestaurantID)
	assert.Equal(t, int64(102), body.Top[2].RestaurantID)
}

func TestTopRestaurantsStoreFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.failWith = errDatabase

	rec := env.do(http.MethodGet, "/dashboard/api/top-restaurants", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTopCategoriesEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/dashboard/api/top-categories", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"top_categories":[
		{"category":"일식","total_waiting":10},
		{"category":"한식","total_waiting":4}
	]}`, rec.Body.String())
}

func TestFilterOptionsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/dashboard/api/filter-options", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var opts dashboard.Options
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opts))
	assert.Equal(t, []string{"부산", "서울"}, opts.Regions)
	assert.Equal(t, []string{"강남구", "마포구"}, opts.RegionCities["서울"])
	assert.Equal(t, []string{"일식", "한식"}, opts.Categories)
}

func TestFilterRestaurants(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/dashboard/api/filter-restaurants", `{"category":"일식"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Restaurants []dashboard.Entry `json:"restaurants"`
		Count       int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "일식", env.store.lastFilter.Category)

	rec = env.do(http.MethodPost, "/dashboard/api/filter-restaurants", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Count)
}

func TestFilterRestaurantsWithinBounds(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/dashboard/api/filter-restaurants", `{"bounds":[126.9,37.5,127.0,37.6]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Restaurants []dashboard.Entry `json:"restaurants"`
		Count       int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, int64(101), body.Restaurants[0].RestaurantID)
}

func TestFilterRestaurantsEmptyResult(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/dashboard/api/filter-restaurants", `{"region":"제주"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"restaurants":[],"count":0}`, rec.Body.String())
}

func TestFilterRestaurantsBadInput(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/dashboard/api/filter-restaurants", `{"region":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgBadRequest, decode(t, rec)["error"])

	rec = env.do(http.MethodPost, "/dashboard/api/filter-restaurants", `{"bounds":[1,2,3]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/dashboard/api/filter-restaurants.geojson", `{"bounds":[5,5,1,1]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFilterRestaurantsGeoJSON(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/dashboard/api/filter-restaurants.geojson", `{"region":"부산"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID         string                 `json:"id"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "201", fc.Features[0].ID)
	assert.Equal(t, "해운대횟집", fc.Features[0].Properties["name"])
}

func TestWordCloudEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.queries = []string{"강남 맛집 추천", "홍대 맛집", "강남 파스타"}

	rec := env.do(http.MethodGet, "/dashboard/api/wordcloud?limit=2", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"words":[{"text":"강남","count":2},{"text":"맛집","count":2}]}`, rec.Body.String())
}

func TestWordCloudEmptyHistory(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/dashboard/api/wordcloud", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"words":[]}`, rec.Body.String())
}

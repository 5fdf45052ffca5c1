package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/de7fp/restaurant-rag/config"
	"github.com/de7fp/restaurant-rag/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminCreateRestaurant(t *testing.T) {
	env := newTestEnv(t, nil)
	x, y := 126.99, 37.57
	body := jsonBody(t, RestaurantRequest{
		PlaceID:            300,
		Name:               "종로냉면",
		Address:            "서울 종로구 관철동 1",
		Category:           "음식점 > 한식 > 냉면",
		Rating:             4,
		X:                  &x,
		Y:                  &y,
		CurrentWaitingTeam: 2,
	})

	rec := env.do(http.MethodPost, "/admin/restaurants", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, env.store.created, 1)
	created := env.store.created[0]
	assert.Equal(t, int64(300), created.PlaceID)
	assert.Equal(t, 20, created.EstimatedWaitingTime)
	assert.Equal(t, "종로구", created.City)
	assert.Nil(t, created.Embedding)

	var got models.Restaurant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "종로냉면", got.Name)
}

func TestAdminCreateRestaurantConflict(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/admin/restaurants", `{"restaurant_ID":999,"name":"상수국밥"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, env.store.created)
}

func TestAdminCreateRestaurantInvalid(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/admin/restaurants", `{"restaurant_ID":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name is required", decode(t, rec)["error"])

	rec = env.do(http.MethodPost, "/admin/restaurants", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgBadRequest, decode(t, rec)["error"])
}

func TestAdminUpdateRestaurant(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPut, "/admin/restaurants/101", `{"name":"상수국밥 본점","waiting":7}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, env.store.updated, 1)
	updated := env.store.updated[0]
	assert.Equal(t, int64(101), updated.PlaceID)
	assert.Equal(t, "상수국밥 본점", updated.Name)
	assert.Equal(t, 70, updated.EstimatedWaitingTime)
	assert.Equal(t, uint64(1), updated.ID)
}

func TestAdminUpdateRestaurantNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPut, "/admin/restaurants/999", `{"name":"없는집"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"restaurant not found"}`, rec.Body.String())
}

func TestAdminDeleteRestaurant(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodDelete, "/admin/restaurants/102", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, env.store.restaurants, int64(102))

	rec = env.do(http.MethodDelete, "/admin/restaurants/102", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminListRestaurantsPaging(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/admin/restaurants?page=3&size=10", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, env.store.lastPage.Number)
	assert.Equal(t, 10, env.store.lastPage.Size)

	var body struct {
		Restaurants []models.Restaurant `json:"restaurants"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Restaurants, 2)
}

func TestAdminMapSearches(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/admin/map-searches",
		`{"restaurant_ID":400,"name":"을지로 노가리","category":"술집","region":"서울","city":"중구","x":126.99,"y":37.56,"waiting":5}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, env.store.mapSearches, 1)
	assert.Equal(t, 5, env.store.mapSearches[0].Waiting)

	rec = env.do(http.MethodGet, "/admin/map-searches", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		MapSearches []models.MapSearchHistory `json:"map_searches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.MapSearches, 1)

	rec = env.do(http.MethodDelete, "/admin/map-searches/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodDelete, "/admin/map-searches/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"map search not found"}`, rec.Body.String())

	rec = env.do(http.MethodDelete, "/admin/map-searches/zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/admin/map-searches", `{"restaurant_ID":1,"name":"a","waiting":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminChatHistory(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.history = []models.ChatHistory{{ID: 1, Query: "홍대 맛집", Answer: "상수국밥", Fallback: false}}

	rec := env.do(http.MethodGet, "/admin/chat-history", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		History []models.ChatHistory `json:"chat_history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.History, 1)
	assert.Equal(t, "홍대 맛집", body.History[0].Query)
}

func TestAdminBasicAuth(t *testing.T) {
	cfg := &config.Config{Admin: config.Admin{User: "admin", Password: "s3cret"}}
	env := newTestEnv(t, cfg)

	rec := env.do(http.MethodGet, "/admin/restaurants", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/restaurants", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/restaurants", nil)
	req.SetBasicAuth("admin", "s3cret")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/restaurants/101", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

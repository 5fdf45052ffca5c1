package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/de7fp/restaurant-rag/dashboard"
	"github.com/de7fp/restaurant-rag/logger"
	"github.com/de7fp/restaurant-rag/models"
	"github.com/de7fp/restaurant-rag/rag"
	"github.com/de7fp/restaurant-rag/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Store interface {
	GetRestaurant(ctx context.Context, placeID int64) (*models.Restaurant, error)
	SimilarRestaurants(ctx context.Context, placeID int64, k int) ([]models.Restaurant, error)
	ListRestaurants(ctx context.Context, page store.Page) ([]models.Restaurant, error)
	RestaurantExists(ctx context.Context, placeID int64, name string) (bool, error)
	CreateRestaurant(ctx context.Context, restaurant *models.Restaurant) error
	UpdateRestaurant(ctx context.Context, restaurant *models.Restaurant) error
	DeleteRestaurant(ctx context.Context, placeID int64) error

	TopWaitingRestaurants(ctx context.Context, n int) ([]dashboard.Entry, error)
	TopWaitingMapSearches(ctx context.Context, n int) ([]dashboard.Entry, error)
	CategoryWaitingTotals(ctx context.Context) ([]dashboard.CategoryTotal, error)
	MapCategoryWaitingTotals(ctx context.Context) ([]dashboard.CategoryTotal, error)
	FilterOptionSources(ctx context.Context) ([]dashboard.RegionCity, []string, error)
	FilterEntries(ctx context.Context, filter dashboard.Filter) ([]dashboard.Entry, error)

	CreateMapSearch(ctx context.Context, m *models.MapSearchHistory) error
	ListMapSearches(ctx context.Context, page store.Page) ([]models.MapSearchHistory, error)
	DeleteMapSearch(ctx context.Context, id uint64) error

	Ping(ctx context.Context) error
}

type Answerer interface {
	Answer(ctx context.Context, message string) (rag.Outcome, error)
}

// History is read back from the same sink the chat pipeline writes to, so
// the word cloud and the admin listing follow history.driver.
type History interface {
	rag.QueryLister
	ListChatHistory(ctx context.Context, page store.Page) ([]models.ChatHistory, error)
}

type Handler struct {
	store   Store
	chat    Answerer
	history History
}

func NewHandler(store Store, chat Answerer, history History) *Handler {
	return &Handler{
		store:   store,
		chat:    chat,
		history: history,
	}
}

func abortWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func internalError(c *gin.Context, err error) {
	logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	abortWithError(c, http.StatusInternalServerError, err)
}

// restaurantError maps store errors of the restaurant endpoints.
func restaurantError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return
	}
	internalError(c, err)
}

func placeIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid restaurant id"})
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func pageQuery(c *gin.Context) store.Page {
	return store.Page{Number: intQuery(c, "page", 1), Size: intQuery(c, "size", 0)}
}

func chatStatus(err error) int {
	var rerr *rag.Error
	if errors.As(err, &rerr) && rerr.Kind == rag.KindInvalidRequest {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadRequest})
		return
	}

	out, err := h.chat.Answer(c.Request.Context(), req.Message)
	if err != nil {
		c.JSON(chatStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, out.Reply)
}

func (h *Handler) GetRestaurant(c *gin.Context) {
	id, ok := placeIDParam(c)
	if !ok {
		return
	}

	restaurant, err := h.store.GetRestaurant(c.Request.Context(), id)
	if err != nil {
		restaurantError(c, err)
		return
	}

	c.JSON(http.StatusOK, restaurant)
}

func (h *Handler) GetRestaurantName(c *gin.Context) {
	id, ok := placeIDParam(c)
	if !ok {
		return
	}

	restaurant, err := h.store.GetRestaurant(c.Request.Context(), id)
	if err != nil {
		restaurantError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"name": restaurant.Name})
}

func (h *Handler) SimilarRestaurants(c *gin.Context) {
	id, ok := placeIDParam(c)
	if !ok {
		return
	}

	k := intQuery(c, "k", DefaultSimilarK)
	if k < 1 || k > MaxSimilarK {
		c.JSON(http.StatusBadRequest, gin.H{"error": "k must be between 1 and 20"})
		return
	}

	similar, err := h.store.SimilarRestaurants(c.Request.Context(), id, k)
	if err != nil {
		restaurantError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"restaurants": similar})
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

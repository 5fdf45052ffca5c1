package main

import (
	"encoding/json"
	"net/http"

	"github.com/de7fp/restaurant-rag/dashboard"
	"github.com/gin-gonic/gin"
)

func (h *Handler) TopRestaurants(c *gin.Context) {
	ctx := c.Request.Context()

	restaurants, err := h.store.TopWaitingRestaurants(ctx, dashboard.DefaultTopN)
	if err != nil {
		internalError(c, err)
		return
	}
	searches, err := h.store.TopWaitingMapSearches(ctx, dashboard.DefaultTopN)
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"top_restaurants": dashboard.TopRestaurants(dashboard.DefaultTopN, restaurants, searches)})
}

func (h *Handler) TopCategories(c *gin.Context) {
	ctx := c.Request.Context()

	restaurants, err := h.store.CategoryWaitingTotals(ctx)
	if err != nil {
		internalError(c, err)
		return
	}
	searches, err := h.store.MapCategoryWaitingTotals(ctx)
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"top_categories": dashboard.TopCategories(dashboard.DefaultTopN, restaurants, searches)})
}

func (h *Handler) FilterOptions(c *gin.Context) {
	pairs, categories, err := h.store.FilterOptionSources(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard.BuildOptions(pairs, categories))
}

// filteredEntries binds the filter body and applies it, including the
// optional viewport. It writes the error response itself.
func (h *Handler) filteredEntries(c *gin.Context) ([]dashboard.Entry, bool) {
	var filter dashboard.Filter
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgBadRequest})
			return nil, false
		}
	}

	bounds, err := dashboard.ParseBounds(filter.Bounds)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return nil, false
	}

	entries, err := h.store.FilterEntries(c.Request.Context(), filter)
	if err != nil {
		internalError(c, err)
		return nil, false
	}

	entries = dashboard.WithinBounds(entries, bounds)
	if entries == nil {
		entries = []dashboard.Entry{}
	}
	return entries, true
}

func (h *Handler) FilterRestaurants(c *gin.Context) {
	entries, ok := h.filteredEntries(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"restaurants": entries, "count": len(entries)})
}

func (h *Handler) FilterRestaurantsGeoJSON(c *gin.Context) {
	entries, ok := h.filteredEntries(c)
	if !ok {
		return
	}

	data, err := json.Marshal(dashboard.FeatureCollection(entries))
	if err != nil {
		internalError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/geo+json", data)
}

func (h *Handler) WordCloud(c *gin.Context) {
	limit := intQuery(c, "limit", DefaultWordCloudSize)
	if limit < 1 {
		limit = DefaultWordCloudSize
	}

	queries, err := h.history.ChatQueries(c.Request.Context(), wordCloudQueryWindow)
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"words": dashboard.WordCloud(queries, limit)})
}

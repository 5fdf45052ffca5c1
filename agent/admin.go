package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/de7fp/restaurant-rag/models"
	"github.com/de7fp/restaurant-rag/store"
	"github.com/gin-gonic/gin"
)

func (h *Handler) ListRestaurants(c *gin.Context) {
	restaurants, err := h.store.ListRestaurants(c.Request.Context(), pageQuery(c))
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"restaurants": restaurants})
}

// CreateRestaurant stores the record without an embedding; the CDC listener
// queues it for the embedder.
func (h *Handler) CreateRestaurant(c *gin.Context) {
	var req RestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadRequest})
		return
	}
	if err := req.Validate(); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	exists, err := h.store.RestaurantExists(ctx, req.PlaceID, req.Name)
	if err != nil {
		internalError(c, err)
		return
	}
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "restaurant already exists"})
		return
	}

	var restaurant models.Restaurant
	req.Apply(&restaurant)
	if err := h.store.CreateRestaurant(ctx, &restaurant); err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, restaurant)
}

func (h *Handler) UpdateRestaurant(c *gin.Context) {
	id, ok := placeIDParam(c)
	if !ok {
		return
	}

	var req RestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadRequest})
		return
	}
	if req.PlaceID == 0 {
		req.PlaceID = id
	}
	if err := req.Validate(); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	restaurant, err := h.store.GetRestaurant(ctx, id)
	if err != nil {
		restaurantError(c, err)
		return
	}

	req.Apply(restaurant)
	if err := h.store.UpdateRestaurant(ctx, restaurant); err != nil {
		restaurantError(c, err)
		return
	}

	c.JSON(http.StatusOK, restaurant)
}

func (h *Handler) DeleteRestaurant(c *gin.Context) {
	id, ok := placeIDParam(c)
	if !ok {
		return
	}

	if err := h.store.DeleteRestaurant(c.Request.Context(), id); err != nil {
		restaurantError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "restaurant deleted successfully"})
}

func (h *Handler) ListMapSearches(c *gin.Context) {
	searches, err := h.store.ListMapSearches(c.Request.Context(), pageQuery(c))
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"map_searches": searches})
}

func (h *Handler) CreateMapSearch(c *gin.Context) {
	var req MapSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadRequest})
		return
	}
	if err := req.Validate(); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	search := req.ToModel()
	if err := h.store.CreateMapSearch(c.Request.Context(), search); err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, search)
}

func (h *Handler) DeleteMapSearch(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid map search id"})
		return
	}

	if err := h.store.DeleteMapSearch(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "map search not found"})
			return
		}
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "map search deleted successfully"})
}

func (h *Handler) ListChatHistory(c *gin.Context) {
	history, err := h.history.ListChatHistory(c.Request.Context(), pageQuery(c))
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chat_history": history})
}

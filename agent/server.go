package main

import (
	"github.com/de7fp/restaurant-rag/config"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Agent struct {
	config   *config.Config
	handler  *Handler
	upgrader websocket.Upgrader
}

func NewAgent(cfg *config.Config, handler *Handler) *Agent {
	return &Agent{
		config:   cfg,
		handler:  handler,
		upgrader: newUpgrader(),
	}
}

func (a *Agent) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog())

	h := a.handler

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/ragchat", h.Chat)
	api.GET("/restaurants/:id", h.GetRestaurant)
	api.GET("/restaurants/:id/name", h.GetRestaurantName)
	api.GET("/restaurants/:id/similar", h.SimilarRestaurants)

	r.GET("/ws/chat", a.ChatSocket)

	dash := r.Group("/dashboard/api")
	dash.GET("/top-restaurants", h.TopRestaurants)
	dash.GET("/top-categories", h.TopCategories)
	dash.GET("/filter-options", h.FilterOptions)
	dash.POST("/filter-restaurants", h.FilterRestaurants)
	dash.POST("/filter-restaurants.geojson", h.FilterRestaurantsGeoJSON)
	dash.GET("/wordcloud", h.WordCloud)

	admin := r.Group("/admin")
	if a.config.Admin.User != "" {
		admin.Use(gin.BasicAuth(gin.Accounts{a.config.Admin.User: a.config.Admin.Password}))
	}
	admin.GET("/restaurants", h.ListRestaurants)
	admin.POST("/restaurants", h.CreateRestaurant)
	admin.GET("/restaurants/:id", h.GetRestaurant)
	admin.PUT("/restaurants/:id", h.UpdateRestaurant)
	admin.DELETE("/restaurants/:id", h.DeleteRestaurant)
	admin.GET("/map-searches", h.ListMapSearches)
	admin.POST("/map-searches", h.CreateMapSearch)
	admin.DELETE("/map-searches/:id", h.DeleteMapSearch)
	admin.GET("/chat-history", h.ListChatHistory)

	return r
}

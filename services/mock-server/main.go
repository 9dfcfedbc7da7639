package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stoik/trustlayer/internal/logging"
	"github.com/stoik/trustlayer/internal/models"
	"github.com/stoik/trustlayer/services/mock-server/internal/mock"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}
	logger := logging.New(os.Getenv("LOG_LEVEL"), "text")
	slog.SetDefault(logger)

	addr := fmt.Sprintf(":%s", port)
	logger.Info("starting mock provider API", "addr", addr)
	if err := http.ListenAndServe(addr, newRouter(mock.NewStore())); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newRouter(store *mock.Store) *gin.Engine {
	r := gin.Default()

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider endpoints
	for _, p := range mock.Providers {
		g := r.Group("/" + p)
		{
			g.GET("/threads", handleListThreads(store, p))
			g.GET("/threads/:thread_id", handleGetThread(store, p))
		}
	}

	// Admin endpoints for testing
	admin := r.Group("/admin/:provider")
	{
		admin.POST("/threads", handlePutThread(store))
		admin.POST("/threads/add", handleAddThreads(store))
	}
	return r
}

func handleListThreads(store *mock.Store, provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"threads": store.ThreadIDs(provider)})
	}
}

func handleGetThread(store *mock.Store, provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok, err := store.GetThread(provider, c.Param("thread_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

func handlePutThread(store *mock.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var e models.StoredEmail
		if err := c.ShouldBindJSON(&e); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, err := store.PutThread(c.Param("provider"), e)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Debug("stored thread", "provider", c.Param("provider"), "thread_id", id)
		c.JSON(http.StatusCreated, gin.H{"thread_id": id})
	}
}

func handleAddThreads(store *mock.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			NumThreads int `json:"numThreads"`
		}

		// Try JSON body first
		if err := c.ShouldBindJSON(&req); err != nil {
			// Fall back to query parameter
			if num, err := strconv.Atoi(c.DefaultQuery("numThreads", "1")); err == nil {
				req.NumThreads = num
			} else {
				req.NumThreads = 1
			}
		}
		if req.NumThreads < 1 {
			req.NumThreads = 1
		}

		ids, err := store.AddThreads(c.Param("provider"), req.NumThreads)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"added":   len(ids),
			"threads": ids,
			"message": fmt.Sprintf("Added %d thread(s)", len(ids)),
		})
	}
}

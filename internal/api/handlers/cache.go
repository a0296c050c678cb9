package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/astro-snapshot-go/internal/services"
)

// CacheAdmin is the snapshot cache surface exposed for monitoring.
type CacheAdmin interface {
	Stats() *services.CacheMetrics
	ResetStats()
	Purge() int
}

// CacheHandler handles cache monitoring and analytics endpoints
type CacheHandler struct {
	cache CacheAdmin
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cache CacheAdmin) *CacheHandler {
	return &CacheHandler{cache: cache}
}

// GetCacheStats returns per-tier hit/miss statistics
// @Summary Get cache statistics
// @Tags cache
// @Produce json
// @Success 200 {object} services.CacheMetrics
// @Router /api/v1/cache/stats [get]
func (h *CacheHandler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.cache.Stats(),
	})
}

// ResetCacheStats resets all cache statistics
// @Summary Reset cache statistics
// @Tags cache
// @Produce json
// @Router /api/v1/cache/stats/reset [post]
func (h *CacheHandler) ResetCacheStats(c *gin.Context) {
	h.cache.ResetStats()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Cache statistics reset successfully",
	})
}

// PurgeCache drops every in-process snapshot. Persisted snapshots remain.
// @Summary Purge in-process cache
// @Tags cache
// @Produce json
// @Router /api/v1/cache/purge [post]
func (h *CacheHandler) PurgeCache(c *gin.Context) {
	removed := h.cache.Purge()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"purged": removed,
		},
	})
}

package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hejmattias/kolsync/services"
)

type AssetController struct {
	Assets *services.AssetService // nil when S3 is not configured
}

// constructor
func NewAssetController(as *services.AssetService) *AssetController {
	return &AssetController{Assets: as}
}

// POST /v1/assets (raw bytes)
func (ac *AssetController) Upload(c *gin.Context) {
	if ac.Assets == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "asset storage not configured"})
		return
	}
	data, err := c.GetRawData()
	if err != nil || len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty body"})
		return
	}
	key, err := ac.Assets.Upload(c.Request.Context(), data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"assetKey": key})
}

// GET /v1/assets/:key
func (ac *AssetController) Download(c *gin.Context) {
	if ac.Assets == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "asset storage not configured"})
		return
	}
	data, err := ac.Assets.Download(c.Request.Context(), c.Param("key"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}

package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hejmattias/kolsync/models"
	"github.com/hejmattias/kolsync/services"
)

type RecordController struct {
	Records *services.RecordService
}

// constructor
func NewRecordController(rs *services.RecordService) *RecordController {
	return &RecordController{Records: rs}
}

// GET /v1/records?type=FoodItemRecord&limit=100&cursor=
func (rc *RecordController) List(c *gin.Context) {
	recordType := c.Query("type")
	if recordType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type is required"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	page, err := rc.Records.Query(recordType, c.Query("cursor"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, page)
}

// PUT /v1/records
func (rc *RecordController) Save(c *gin.Context) {
	var rec models.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	tag, err := rc.Records.Save(&rec, c.GetString("deviceID"))
	if errors.Is(err, services.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.SaveResult{ChangeTag: tag})
}

// DELETE /v1/records/:type/:id
func (rc *RecordController) Delete(c *gin.Context) {
	err := rc.Records.Delete(c.Param("type"), c.Param("id"), c.GetString("deviceID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /v1/records/delete
func (rc *RecordController) DeleteBatch(c *gin.Context) {
	var req models.BatchDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if err := rc.Records.DeleteBatch(req.Type, req.IDs, c.GetString("deviceID")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hejmattias/kolsync/models"
	"github.com/hejmattias/kolsync/services"
)

type SubscriptionController struct {
	Subs *services.SubscriptionService
}

// constructor
func NewSubscriptionController(ss *services.SubscriptionService) *SubscriptionController {
	return &SubscriptionController{Subs: ss}
}

// GET /v1/subscriptions/:id
func (sc *SubscriptionController) Get(c *gin.Context) {
	sub, err := sc.Subs.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if sub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}
	c.JSON(http.StatusOK, models.SubscriptionInfo{
		ID:         sub.SubscriptionID,
		RecordType: sub.RecordType,
		Silent:     sub.Silent,
	})
}

// PUT /v1/subscriptions/:id
func (sc *SubscriptionController) Put(c *gin.Context) {
	var info models.SubscriptionInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	info.ID = c.Param("id")
	if info.RecordType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recordType is required"})
		return
	}
	if err := sc.Subs.Ensure(info); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

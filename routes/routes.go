package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/hejmattias/kolsync/controllers"
	"github.com/hejmattias/kolsync/middlewares"
)

func SetupRouter(
	rc *controllers.RecordController,
	sc *controllers.SubscriptionController,
	ac *controllers.AssetController,
	nc *controllers.NotifyController,
	dc *controllers.DeviceController,
) *gin.Engine {
	r := gin.Default()

	v1 := r.Group("/v1")
	v1.Use(middlewares.AuthMiddleware())
	{
		v1.GET("/records", rc.List)
		v1.PUT("/records", rc.Save)
		v1.DELETE("/records/:type/:id", rc.Delete)
		v1.POST("/records/delete", rc.DeleteBatch)

		v1.GET("/subscriptions/:id", sc.Get)
		v1.PUT("/subscriptions/:id", sc.Put)

		v1.POST("/assets", ac.Upload)
		v1.GET("/assets/:key", ac.Download)

		v1.GET("/changes/ws", nc.ChangesWS)

		v1.POST("/devices", dc.Register)
	}

	return r
}

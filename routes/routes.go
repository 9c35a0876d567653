package routes

import (
	"github.com/gin-gonic/gin"

	"diary/controllers"
	"diary/middlewares"
)

func SetupRouter(dc *controllers.DiaryController) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.RequestID())
	r.Use(middlewares.Logger())
	r.Use(middlewares.CORS())
	r.Use(gin.Recovery())

	r.GET("/", dc.Index)

	// Omi からの webhook
	r.POST("/webhook", dc.HandleWebhook)

	// 日記の取得
	r.GET("/diary/:date", dc.GetDiary)

	r.GET("/health", dc.Health)
	r.GET("/test", dc.TestConnection)

	return r
}

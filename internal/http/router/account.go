package router

import (
	"github.com/gin-gonic/gin"

	"deflect.app/relay/internal/http/handler"
)

func AccountRouter(router *gin.RouterGroup, handler *handler.AccountHandler) {
	router.GET("/:id/policy", handler.GetPolicy)
	router.PUT("/:id/policy", handler.PutPolicy)
	router.POST("/:id/analysis", handler.RequestAnalysis)
	router.GET("/:id/insights", handler.Insights)
}

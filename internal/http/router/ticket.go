package router

import (
	"github.com/gin-gonic/gin"

	"deflect.app/relay/internal/http/handler"
)

func TicketRouter(router *gin.RouterGroup, handler *handler.TicketHandler) {
	router.POST("", handler.Create)
	router.GET("/:id", handler.Get)
}

package router

import (
	"github.com/gin-gonic/gin"

	"deflect.app/relay/common/metrics"
	"deflect.app/relay/internal/http/handler"
	"deflect.app/relay/internal/service"
)

type RouterConfig struct {
	TraceHeader string
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		ticketHandler := handler.NewTicketHandler(services.Tickets(), cfg.TraceHeader)
		TicketRouter(v1.Group("/tickets"), ticketHandler)

		accountHandler := handler.NewAccountHandler(services.Policies(), services.Analysis())
		AccountRouter(v1.Group("/accounts"), accountHandler)
	}
}

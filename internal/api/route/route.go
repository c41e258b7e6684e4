package route

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inkwell-app/inkwell/internal/api/middleware"
	"github.com/inkwell-app/inkwell/internal/app"
	"github.com/inkwell-app/inkwell/internal/logger"
)

func SetupRoutes(r *gin.Engine, appCtx *app.App) {
	r.Use(middleware.HoneybadgerMiddleware(logger.Logger))
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "UP",
		})
	})

	api := r.Group("/api")
	api.Use(middleware.CORSMiddleware(appCtx.Config.Server.CORSAllowedOrigins))
	api.Use(middleware.RequestTimeout(appCtx.Config.Server.RequestTimeout))
	api.Use(appCtx.Auth.Middleware())

	NewEntryRouter(api, appCtx)
	NewSessionRouter(api, appCtx)
}

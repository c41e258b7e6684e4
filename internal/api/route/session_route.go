package route

import (
	"github.com/gin-gonic/gin"

	"github.com/inkwell-app/inkwell/internal/api/controller"
	"github.com/inkwell-app/inkwell/internal/app"
)

func NewSessionRouter(group *gin.RouterGroup, appCtx *app.App) {
	sc := controller.NewSessionController(appCtx.Sessions)

	group.POST("sessions", sc.Open)
	group.GET("sessions/:id", sc.Status)
	group.PATCH("sessions/:id", sc.Update)
	group.POST("sessions/:id/draft", sc.Draft)
	group.POST("sessions/:id/submit", sc.Submit)
	group.DELETE("sessions/:id", sc.Close)
}

package route

import (
	"github.com/gin-gonic/gin"

	"github.com/inkwell-app/inkwell/internal/api/controller"
	"github.com/inkwell-app/inkwell/internal/app"
)

func NewEntryRouter(group *gin.RouterGroup, appCtx *app.App) {
	ec := controller.NewEntryController(appCtx.Store)

	group.GET("entries", ec.List)
	group.GET("entry/:id", ec.Get)
	group.DELETE("entry/:id", ec.Delete)
}

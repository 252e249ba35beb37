package internal

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
)

// logAction writes an audit row; failures are logged and never fail the
// request.
func (a *App) logAction(ctx context.Context, actorID *int, action, details string) {
	if err := a.Store.LogAction(ctx, actorID, action, details); err != nil {
		a.Logger.Warn("audit log failed", "action", action, "error", err)
	}
}

func (a *App) logActor(c *gin.Context, action, details string) {
	id := uid(c)
	a.logAction(c.Request.Context(), &id, action, details)
}

func idDetail(key string, id int) string {
	return key + "=" + strconv.Itoa(id)
}

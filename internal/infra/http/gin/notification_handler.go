package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"carrental/internal/app/commands"
	"carrental/internal/app/dto"
	notificationsapp "carrental/internal/app/handlers/notifications"
	"carrental/internal/app/queries"
)

type NotificationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h NotificationHandler) List(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	result, err := queries.Ask[notificationsapp.ListNotificationsQuery, dto.NotificationCollection](c.Request.Context(), h.Queries, notificationsapp.ListNotificationsQuery{Viewer: user})
	if err != nil {
		logFailure(h.Logger, "notifications query failed", err, "user_id", user.ID)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h NotificationHandler) MarkRead(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	cmd := notificationsapp.MarkReadCommand{Actor: user, NotificationID: c.Param("id")}
	if _, err := commands.Dispatch[notificationsapp.MarkReadCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		logFailure(h.Logger, "mark notification read failed", err, "user_id", user.ID, "notification_id", cmd.NotificationID)
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

var _ NotificationHTTP = NotificationHandler{}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/agencyflow/internal/errs"
	notificationdomain "github.com/smallbiznis/agencyflow/internal/notification/domain"
	"github.com/smallbiznis/agencyflow/pkg/db/pagination"
)

func (s *Server) ListNotifications(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	unreadOnly, err := parseOptionalBool(c.Query("unread_only"))
	if err != nil {
		AbortWithError(c, errs.NewValidation("unread_only", "invalid_bool", "unread_only must be a boolean"))
		return
	}

	resp, err := s.notificationSvc.List(c.Request.Context(), notificationdomain.ListRequest{
		Pagination: page,
		TenantID:   tenantID(c),
		UserID:     *actorID(c),
		UnreadOnly: unreadOnly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":         resp.Notifications,
		"unread_count": resp.UnreadCount,
		"page_info":    resp.PageInfo,
	})
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.notificationSvc.MarkRead(c.Request.Context(), tenantID(c), *actorID(c), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) MarkAllNotificationsRead(c *gin.Context) {
	updated, err := s.notificationSvc.MarkAllRead(c.Request.Context(), tenantID(c), *actorID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/NordCoder/safecode-crm/internal/domain/notification"
	pg "github.com/NordCoder/safecode-crm/internal/repository/postgres"
	"github.com/gin-gonic/gin"
)

const (
	defaultPage  = 1
	defaultLimit = 20
)

type listQuery struct {
	UnreadOnly bool `form:"unread_only"`
	Page       *int `form:"page" binding:"omitempty,min=1,max=1000000"`
	Limit      *int `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (q listQuery) filter() notification.ListFilter {
	f := notification.ListFilter{UnreadOnly: q.UnreadOnly, Page: defaultPage, Limit: defaultLimit}
	if q.Page != nil {
		f.Page = *q.Page
	}
	if q.Limit != nil {
		f.Limit = *q.Limit
	}
	return f
}

type listResponse struct {
	Items       []*notification.View `json:"items"`
	Total       int                  `json:"total"`
	UnreadCount int                  `json:"unread_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
}

func (s *Server) listNotifications(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badInput(c, err)
		return
	}
	f := q.filter()

	page, err := s.notifications.ListForRecipient(c.Request.Context(), currentUser(c).ID, f)
	if err != nil {
		s.fail(c, err)
		return
	}

	items := page.Items
	if items == nil {
		items = []*notification.View{}
	}
	c.JSON(http.StatusOK, listResponse{
		Items:       items,
		Total:       page.Total,
		UnreadCount: page.UnreadCount,
		Page:        f.Page,
		Limit:       f.Limit,
	})
}

// markRead answers 404 for rows owned by other recipients, never 403.
func (s *Server) markRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	v, err := s.notifications.MarkRead(c.Request.Context(), id, currentUser(c).ID)
	if errors.Is(err, pg.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tinylinker/internal/analytics"
	"tinylinker/internal/storage"
)

// handleClicksBySource reports click counts grouped by recorded target
// value across every link in the store.
func (s *Server) handleClicksBySource(c *gin.Context) {
	links, err := s.repo.ListLinks(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Error("Link listing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sources": analytics.BySource(links, nil)})
}

// handleClicksByDay reports a day-of-week histogram of all clicks.
func (s *Server) handleClicksByDay(c *gin.Context) {
	links, err := s.repo.ListLinks(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Error("Link listing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"days": analytics.ByDayOfWeek(links)})
}

// handleUserTotalClicks reports per-link click totals for one account's
// links, plus the overall sum.
func (s *Server) handleUserTotalClicks(c *gin.Context) {
	ctx := c.Request.Context()

	account, err := s.repo.GetAccount(ctx, c.Param("userId"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	if err != nil {
		s.log.WithError(err).Error("Account lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}

	links, err := s.repo.ListLinksByIDs(ctx, account.LinkIDs)
	if err != nil {
		s.log.WithError(err).Error("Link listing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      account.ID,
		"links":        analytics.TotalsByLink(links),
		"total_clicks": analytics.SumTotals(links),
	})
}

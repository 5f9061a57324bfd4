package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tinylinker/internal/analytics"
	"tinylinker/internal/domain"
	"tinylinker/internal/shortcode"
	"tinylinker/internal/storage"
)

type targetValueInput struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type createLinkRequest struct {
	URL             string             `json:"url" binding:"required,url"`
	Title           string             `json:"title"`
	TargetParamName string             `json:"target_param_name"`
	TargetValues    []targetValueInput `json:"target_values"`
}

// updateLinkRequest uses pointers so absent fields leave the link untouched.
type updateLinkRequest struct {
	URL             *string             `json:"url"`
	Title           *string             `json:"title"`
	TargetParamName *string             `json:"target_param_name"`
	TargetValues    *[]targetValueInput `json:"target_values"`
}

type linkResponse struct {
	ID              string               `json:"id"`
	ShortURL        string               `json:"short_url"`
	OriginalURL     string               `json:"original_url"`
	Title           string               `json:"title"`
	CreatedAt       time.Time            `json:"created_at"`
	TargetParamName string               `json:"target_param_name"`
	TargetValues    []domain.TargetValue `json:"target_values"`
	TotalClicks     int                  `json:"total_clicks"`
}

func (s *Server) toLinkResponse(link *domain.Link) linkResponse {
	return linkResponse{
		ID:              link.ID,
		ShortURL:        s.cfg.BaseURL + "/" + link.ID,
		OriginalURL:     link.OriginalURL,
		Title:           link.Title,
		CreatedAt:       link.CreatedAt,
		TargetParamName: link.TargetParamName,
		TargetValues:    link.TargetValues,
		TotalClicks:     len(link.Clicks),
	}
}

func (s *Server) toLinkResponses(links []domain.Link) []linkResponse {
	out := make([]linkResponse, 0, len(links))
	for i := range links {
		out = append(out, s.toLinkResponse(&links[i]))
	}
	return out
}

func buildTargetValues(inputs []targetValueInput) ([]domain.TargetValue, error) {
	values := make([]domain.TargetValue, 0, len(inputs))
	for _, in := range inputs {
		id, err := shortcode.Generate()
		if err != nil {
			return nil, err
		}
		values = append(values, domain.TargetValue{ID: id, Name: in.Name, Value: in.Value})
	}
	return values, nil
}

func (s *Server) handleCreateLink(c *gin.Context) {
	var req createLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	targets, err := buildTargetValues(req.TargetValues)
	if err != nil {
		s.log.WithError(err).Error("Target id generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}
	if err := domain.ValidateTargets(req.TargetParamName, targets); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	id, err := s.freeShortCode(ctx)
	if err != nil {
		s.log.WithError(err).Error("Short code generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}

	link := &domain.Link{
		ID:              id,
		OriginalURL:     req.URL,
		Title:           req.Title,
		CreatedAt:       time.Now().UTC(),
		TargetParamName: req.TargetParamName,
		TargetValues:    targets,
	}

	if err := s.repo.CreateLink(ctx, link); err != nil {
		s.log.WithError(err).Error("Link creation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}

	// The link must end up attached to its owner; undo creation rather than
	// leave an orphan behind.
	if err := s.repo.AddLinkToAccount(ctx, currentAccountID(c), link.ID); err != nil {
		s.log.WithError(err).Error("Link ownership update failed")
		if delErr := s.repo.DeleteLink(ctx, link.ID); delErr != nil {
			s.log.WithError(delErr).Error("Cleanup of orphaned link failed")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}

	if s.preview != nil && link.Title == "" {
		go s.fillTitle(link.ID, link.OriginalURL)
	}

	c.JSON(http.StatusCreated, s.toLinkResponse(link))
}

// freeShortCode generates a code not yet taken by an existing link.
func (s *Server) freeShortCode(ctx context.Context) (string, error) {
	for i := 0; i < 5; i++ {
		id, err := shortcode.Generate()
		if err != nil {
			return "", err
		}
		_, err = s.repo.GetLink(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("could not find a free short code")
}

// fillTitle scrapes the destination page title in the background. Failures
// only cost the title.
func (s *Server) fillTitle(linkID, url string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	title, err := s.preview.ScrapeTitle(ctx, url)
	if err != nil || title == "" {
		if err != nil {
			s.log.WithError(err).WithField("link_id", linkID).Warn("Title scrape failed")
		}
		return
	}
	if err := s.repo.UpdateLinkTitle(ctx, linkID, title); err != nil {
		s.log.WithError(err).WithField("link_id", linkID).Warn("Title update failed")
	}
}

func (s *Server) handleListLinks(c *gin.Context) {
	ctx := c.Request.Context()

	account, err := s.repo.GetAccount(ctx, currentAccountID(c))
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

	c.JSON(http.StatusOK, gin.H{"links": s.toLinkResponses(links)})
}

func (s *Server) handleGetLink(c *gin.Context) {
	link, err := s.repo.GetLink(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
		return
	}
	if err != nil {
		s.log.WithError(err).Error("Link lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}

	c.JSON(http.StatusOK, s.toLinkResponse(link))
}

func (s *Server) handleUpdateLink(c *gin.Context) {
	var req updateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")

	link, err := s.repo.GetLink(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
		return
	}
	if err != nil {
		s.log.WithError(err).Error("Link lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}

	if req.TargetParamName != nil || req.TargetValues != nil {
		paramName := link.TargetParamName
		if req.TargetParamName != nil {
			paramName = *req.TargetParamName
		}
		values := link.TargetValues
		if req.TargetValues != nil {
			values, err = buildTargetValues(*req.TargetValues)
			if err != nil {
				s.log.WithError(err).Error("Target id generation failed")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
				return
			}
		}
		if err := domain.ValidateTargets(paramName, values); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if link, err = s.repo.UpdateLinkTargets(ctx, id, paramName, values); err != nil {
			s.log.WithError(err).Error("Target update failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
			return
		}
	}

	if req.URL != nil {
		if link, err = s.repo.UpdateLinkURL(ctx, id, *req.URL); err != nil {
			s.log.WithError(err).Error("URL update failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
			return
		}
	}

	if req.Title != nil {
		if err = s.repo.UpdateLinkTitle(ctx, id, *req.Title); err != nil {
			s.log.WithError(err).Error("Title update failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
			return
		}
		link.Title = *req.Title
	}

	c.JSON(http.StatusOK, s.toLinkResponse(link))
}

func (s *Server) handleDeleteLink(c *gin.Context) {
	err := s.repo.DeleteLink(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
		return
	}
	if err != nil {
		s.log.WithError(err).Error("Link deletion failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (s *Server) handleLinkStats(c *gin.Context) {
	link, err := s.repo.GetLink(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
		return
	}
	if err != nil {
		s.log.WithError(err).Error("Link lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"link_id":      link.ID,
		"total_clicks": len(link.Clicks),
		"targets":      analytics.ByTarget(link),
	})
}

func (s *Server) handleRedirect(c *gin.Context) {
	ctx := c.Request.Context()

	link, err := s.repo.GetLink(ctx, c.Param("shortCode"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
		return
	}
	if err != nil {
		s.log.WithError(err).Error("Link lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}

	_, err = s.recorder.Record(ctx, link, c.Request.URL.Query(), c.ClientIP(), time.Now())
	if err != nil {
		s.log.WithError(err).Error("Click recording failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}

	c.Redirect(http.StatusFound, link.OriginalURL)
}

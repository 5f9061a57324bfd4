package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tinylinker/internal/auth"
	"tinylinker/internal/domain"
	"tinylinker/internal/storage"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// accountResponse is the public shape of an account; the password hash never
// leaves the API.
type accountResponse struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	LinkIDs []string `json:"link_ids"`
}

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:      a.ID,
		Name:    a.Name,
		Email:   a.Email,
		LinkIDs: a.LinkIDs,
	}
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := s.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if errors.Is(err, storage.ErrEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}
	if err != nil {
		s.log.WithError(err).Error("Registration failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}

	token, err := s.auth.IssueToken(account)
	if err != nil {
		s.log.WithError(err).Error("Token signing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":  toAccountResponse(account),
		"token": token,
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := s.auth.FindByCredentials(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if err != nil {
		s.log.WithError(err).Error("Login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}

	token, err := s.auth.IssueToken(account)
	if err != nil {
		s.log.WithError(err).Error("Token signing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  toAccountResponse(account),
		"token": token,
	})
}

func (s *Server) handleProfile(c *gin.Context) {
	account, err := s.repo.GetAccount(c.Request.Context(), currentAccountID(c))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	if err != nil {
		s.log.WithError(err).Error("Profile lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
		return
	}

	c.JSON(http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleUserLinks(c *gin.Context) {
	ctx := c.Request.Context()

	account, err := s.repo.GetAccount(ctx, c.Param("id"))
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

	c.JSON(http.StatusOK, gin.H{"links": s.toLinkResponses(links)})
}

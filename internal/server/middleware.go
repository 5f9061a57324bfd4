package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const accountIDKey = "account_id"

// requireAuth validates the bearer token and stores the account id on the
// request context.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		accountID, err := s.auth.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(accountIDKey, accountID)
		c.Next()
	}
}

func currentAccountID(c *gin.Context) string {
	return c.GetString(accountIDKey)
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/telemedhq/telemed-api/internal/auth"
	"github.com/telemedhq/telemed-api/internal/models"
	"github.com/telemedhq/telemed-api/internal/store"
)

const (
	claimsKey  = "authClaims"
	accountKey = "authAccount"
)

// AccountLoader resolves a token's id against the collection named by its role.
type AccountLoader interface {
	FindAccountByID(ctx context.Context, role models.Role, id string) (*models.Account, error)
}

// Authenticate verifies the Bearer token and loads the account it refers to,
// attaching both claims and account to the request context.
func Authenticate(tokens *auth.TokenManager, accounts AccountLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Token missing"})
			return
		}

		claims, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid or expired token"})
			return
		}

		account, err := accounts.FindAccountByID(c.Request.Context(), claims.Role, claims.UserID)
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal Server Error"})
			return
		}

		c.Set(claimsKey, claims)
		c.Set(accountKey, account)
		c.Next()
	}
}

// RequireRole rejects requests whose decoded role does not match the route's.
// It must run after Authenticate since it reads the decoded claims.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok || claims.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Insufficient role permissions"})
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the decoded token claims set by Authenticate.
func ClaimsFrom(c *gin.Context) (*auth.Claims, bool) {
	val, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := val.(*auth.Claims)
	return claims, ok
}

// AccountFrom returns the resolved account set by Authenticate.
func AccountFrom(c *gin.Context) (*models.Account, bool) {
	val, ok := c.Get(accountKey)
	if !ok {
		return nil, false
	}
	account, ok := val.(*models.Account)
	return account, ok
}

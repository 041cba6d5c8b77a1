package middleware

import (
	"bookstore/services"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ctxClaims = "claims"
	ctxToken  = "token"
)

// TokenVerifier resolves a bearer token to its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*services.Claims, error)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		claims, err := verifier.Verify(ctx, tokenString)
		if err != nil {
			var svcErr *services.Error
			if errors.As(err, &svcErr) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": svcErr.Message})
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
			return
		}

		c.Set(ctxClaims, claims)
		c.Set(ctxToken, tokenString)
		c.Next()
	}
}

func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil || !claims.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Not authorized as an admin"})
			return
		}
		c.Next()
	}
}

// CurrentClaims returns the claims stored by AuthMiddleware, or nil.
func CurrentClaims(c *gin.Context) *services.Claims {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*services.Claims)
	return claims
}

func CurrentUserID(c *gin.Context) primitive.ObjectID {
	if claims := CurrentClaims(c); claims != nil {
		return claims.UserID
	}
	return primitive.NilObjectID
}

func CurrentToken(c *gin.Context) string {
	return c.GetString(ctxToken)
}

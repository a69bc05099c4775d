package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextUserID is the gin context key holding the authenticated user id.
// Roles are never taken from the token; the engine resolves them.
const ContextUserID = "user_id"

var (
	errNoToken        = errors.New("authorization header missing")
	errMalformedToken = errors.New("bearer token malformed")
)

// AuthMiddleware requires a valid bearer token.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return authenticate(secret, true)
}

// OptionalAuth accepts anonymous requests but rejects invalid tokens.
func OptionalAuth(secret []byte) gin.HandlerFunc {
	return authenticate(secret, false)
}

func authenticate(secret []byte, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "JWT secret not configured"})
			return
		}

		claims, err := parseBearer(c.GetHeader("Authorization"), secret)
		switch {
		case errors.Is(err, errNoToken) && !required:
			c.Next()
			return
		case errors.Is(err, errNoToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		userID := userIDFromClaims(claims)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

func parseBearer(header string, secret []byte) (jwt.MapClaims, error) {
	if header == "" {
		return nil, errNoToken
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == header || strings.TrimSpace(tokenString) == "" {
		return nil, errMalformedToken
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// userIDFromClaims accepts the numeric user_id claim issued by the account
// service, or a string subject.
func userIDFromClaims(claims jwt.MapClaims) string {
	switch v := claims["user_id"].(type) {
	case float64:
		if v > 0 {
			return strconv.FormatUint(uint64(v), 10)
		}
	case string:
		return strings.TrimSpace(v)
	}
	if sub, err := claims.GetSubject(); err == nil {
		return strings.TrimSpace(sub)
	}
	return ""
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

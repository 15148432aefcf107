package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin  = "ADMIN"
	RoleCamera = "CAMERA"

	authorizationHeader = "Authorization"
	bearerType          = "Bearer"
	userIDKey           = "userID"
	userRoleKey         = "userRole"
)

// AuthMiddleware validates HS256 bearer tokens issued by the operator portal.
func AuthMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		fields := strings.Fields(c.GetHeader(authorizationHeader))
		if len(fields) != 2 || !strings.EqualFold(fields[0], bearerType) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("missing or malformed authorization header"))
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(fields[1], claims, func(*jwt.Token) (interface{}, error) {
			if len(key) == 0 {
				return nil, errors.New("jwt secret not configured")
			}
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("invalid or expired token"))
			return
		}

		sub, _ := claims.GetSubject()
		role, _ := claims["role"].(string)
		c.Set(userIDKey, sub)
		c.Set(userRoleKey, role)
		c.Next()
	}
}

func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(userRoleKey)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, errorResponse("insufficient role"))
	}
}

package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

// UserAuth validates bearer tokens and injects the caller's userId and
// role into the context.
func UserAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c, secret)
		if !ok {
			return
		}

		userIDValue, ok := claims["userId"].(string)
		if !ok || strings.TrimSpace(userIDValue) == "" {
			log.Println("[AUTH] [ERROR] userId claim missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized", "data": nil})
			return
		}

		userID, err := primitive.ObjectIDFromHex(userIDValue)
		if err != nil {
			log.Println("[AUTH] [ERROR] invalid userId claim")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized", "data": nil})
			return
		}

		role, _ := claims["role"].(string)
		if !models.Role(role).Valid() {
			role = string(models.RoleUser)
		}

		c.Set("userId", userID)
		c.Set("role", models.Role(role))
		c.Next()
	}
}

// RequireRole allows only callers whose token carries one of the given
// roles. Must run after UserAuth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleValue, ok := c.Get("role")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized", "data": nil})
			return
		}

		role, ok := roleValue.(models.Role)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized", "data": nil})
			return
		}

		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "forbidden", "data": nil})
	}
}

// AdminAuth is UserAuth plus an admin role check, as one middleware for
// route-group wiring.
func AdminAuth(secret string) gin.HandlerFunc {
	authenticate := UserAuth(secret)
	authorize := RequireRole(models.RoleAdmin)
	return func(c *gin.Context) {
		authenticate(c)
		if c.IsAborted() {
			return
		}
		authorize(c)
	}
}

func parseBearer(c *gin.Context, secret string) (jwt.MapClaims, bool) {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if raw == "" {
		log.Println("[AUTH] [ERROR] missing token")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing token", "data": nil})
		return nil, false
	}

	parts := strings.Split(raw, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		log.Println("[AUTH] [ERROR] invalid token format")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token", "data": nil})
		return nil, false
	}

	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		log.Println("[AUTH] [ERROR] token validation failed:", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized", "data": nil})
		return nil, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		log.Println("[AUTH] [ERROR] token claims invalid")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized", "data": nil})
		return nil, false
	}
	return claims, true
}

package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ProfessorAuth enforces bearer JWT tokens with the professor role. When
// disabled it is a no-op, leaving the endpoints open.
func ProfessorAuth(signingKey, issuer string, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.Role != RoleProfessor {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "professor role required"})
			return
		}
		c.Set("claims", claims)
		c.Next()
	}
}

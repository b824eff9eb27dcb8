package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/kswpuk/portal-api/config"
)

// Portal groups carried in the JWT. They mirror the directory groups the
// identity provider assigns, so a member may hold several at once.
const (
	GroupMembers   = "MEMBERS"
	GroupEvents    = "EVENTS"
	GroupCommittee = "COMMITTEE"
	GroupMoney     = "MONEY"
	GroupPortal    = "PORTAL"
	GroupStandard  = "STANDARD"
)

// AuthMiddleware validates the bearer token and stores the caller's
// membership number and groups in the request context.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		tokenStr := parts[1]
		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTAccessSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			return
		}

		membershipNumber, ok := claims["membership_number"].(string)
		if !ok || membershipNumber == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "membership_number missing in token"})
			return
		}

		groups := parseGroups(claims["groups"])
		if len(groups) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no portal groups in token"})
			return
		}

		c.Set("membership_number", membershipNumber)
		c.Set("groups", groups)
		c.Set("claims", claims)

		c.Next()
	}
}

// parseGroups accepts either a JSON array or a comma separated string, since
// the identity provider has emitted both shapes over the years.
func parseGroups(raw interface{}) []string {
	var groups []string
	switch v := raw.(type) {
	case []interface{}:
		for _, g := range v {
			if s, ok := g.(string); ok && s != "" {
				groups = append(groups, s)
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				groups = append(groups, s)
			}
		}
	}
	return groups
}

// CallerMembershipNumber retrieves the authenticated membership number.
func CallerMembershipNumber(c *gin.Context) string {
	if v, exists := c.Get("membership_number"); exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// CallerGroups retrieves the authenticated caller's portal groups.
func CallerGroups(c *gin.Context) []string {
	if v, exists := c.Get("groups"); exists {
		if groups, ok := v.([]string); ok {
			return groups
		}
	}
	return nil
}

// CallerInGroup reports whether the caller holds the given group.
func CallerInGroup(c *gin.Context, group string) bool {
	for _, g := range CallerGroups(c) {
		if g == group {
			return true
		}
	}
	return false
}

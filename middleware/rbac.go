package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireGroup allows the request through when the caller holds any of the
// listed portal groups. PORTAL admins always pass.
func RequireGroup(allowedGroups ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		groups := CallerGroups(c)
		if len(groups) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		if CallerInGroup(c, GroupPortal) {
			c.Next()
			return
		}

		for _, allowed := range allowedGroups {
			if CallerInGroup(c, allowed) {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unauthorized"})
	}
}

// RequireSelfOrGroup allows a member to act on their own record, identified
// by the named path parameter, and otherwise falls back to a group check.
// This covers routes like GET /members/:membershipNumber where members may
// read themselves but only the membership coordinators may read anyone.
func RequireSelfOrGroup(param string, allowedGroups ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := CallerMembershipNumber(c)
		if caller == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		if c.Param(param) == caller {
			c.Next()
			return
		}

		if CallerInGroup(c, GroupPortal) {
			c.Next()
			return
		}

		for _, allowed := range allowedGroups {
			if CallerInGroup(c, allowed) {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unauthorized"})
	}
}

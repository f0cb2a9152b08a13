package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/exam-portal/internal/access"
	"github.com/stemsi/exam-portal/internal/metrics"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/response"
)

// Guard admits requests whose session role is in allowed. Anonymous callers
// are redirected to the login page and callers with another role to the
// unauthorized page, both replacing the history entry.
func Guard(allowed ...model.Role) gin.HandlerFunc {
	roles := model.RoleSet(allowed)
	return func(c *gin.Context) {
		identity := GetIdentity(c)
		d := access.Decide(identity, roles)

		switch {
		case d.IsRender():
			metrics.GateDecision("render")
			c.Next()
		case d.Path == access.LoginPath:
			metrics.GateDecision("login")
			response.AbortRedirect(c, http.StatusUnauthorized, authFailure(c), d.Path, d.Replace)
		default:
			metrics.GateDecision("unauthorized")
			response.AbortRedirect(c, http.StatusForbidden, response.ErrForbidden, d.Path, d.Replace)
		}
	}
}

// RestrictRoles turns away callers whose role is in restricted, sending them
// to alt. Anonymous callers pass.
func RestrictRoles(alt string, restricted ...model.Role) gin.HandlerFunc {
	roles := model.RoleSet(restricted)
	return func(c *gin.Context) {
		d := access.RestrictedRedirect(GetIdentity(c), roles, alt)
		if d.IsRender() {
			c.Next()
			return
		}
		metrics.GateDecision("restricted")
		response.AbortRedirect(c, http.StatusConflict, response.ErrAlreadyAuthenticated, d.Path, d.Replace)
	}
}

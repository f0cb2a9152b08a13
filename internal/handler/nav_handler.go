package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/exam-portal/internal/access"
	"github.com/stemsi/exam-portal/internal/metrics"
	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/response"
)

// NavHandler serves the route table decisions to the SPA shell.
type NavHandler struct {
	routes []model.RouteDescriptor
}

// NewNavHandler creates a new NavHandler over routes.
func NewNavHandler(routes []model.RouteDescriptor) *NavHandler {
	return &NavHandler{routes: routes}
}

// Navigation godoc
// GET /api/v1/nav
// Returns the primary navigation entries visible to the caller.
func (h *NavHandler) Navigation(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"identity": middleware.GetIdentity(c),
		"entries":  access.Navigation(h.routes, middleware.GetIdentity(c)),
	})
}

// Resolve godoc
// GET /api/v1/routes/resolve?path=/exam/take/42
// Matches a shell path and returns whether to render it or where to redirect.
// The decision is always returned with 200; it is an instruction, not an error.
func (h *NavHandler) Resolve(c *gin.Context) {
	path := strings.TrimSpace(c.Query("path"))
	if path == "" || !strings.HasPrefix(path, "/") {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"path": "path must be an absolute shell path",
		})
		return
	}

	res := access.Resolve(h.routes, path, middleware.GetIdentity(c))
	metrics.GateDecision(outcomeLabel(res.Decision))
	response.Success(c, http.StatusOK, res)
}

func outcomeLabel(d access.Decision) string {
	switch {
	case d.IsRender():
		return "render"
	case d.Path == access.LoginPath:
		return "login"
	case d.Path == access.UnauthorizedPath:
		return "unauthorized"
	default:
		return "restricted"
	}
}

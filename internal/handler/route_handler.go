package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soundwalk/service-tour/internal/application"
	"github.com/soundwalk/service-tour/internal/domain/tour"
	"github.com/soundwalk/service-tour/internal/platform/response"
)

// RouteHandler serves the route catalogue.
type RouteHandler struct {
	service *application.RouteService
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(service *application.RouteService) *RouteHandler {
	return &RouteHandler{service: service}
}

// RegisterRoutes registers catalogue routes on the given router group.
func (h *RouteHandler) RegisterRoutes(r *gin.RouterGroup) {
	routes := r.Group("/api/v1/routes")
	{
		routes.GET("", h.ListRoutes)
		routes.GET("/:id", h.GetRoute)
		routes.POST("/:id/reorder", h.SuggestOrder)
	}
}

// ListRoutes handles GET /api/v1/routes.
func (h *RouteHandler) ListRoutes(c *gin.Context) {
	page, limit := parsePagination(c)
	result, err := h.service.ListRoutes(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Data, result.Total, result.Page, result.Limit)
}

// GetRoute handles GET /api/v1/routes/:id. The id may also be a slug.
func (h *RouteHandler) GetRoute(c *gin.Context) {
	var (
		result *application.RouteDTO
		err    error
	)
	if id, parseErr := uuid.Parse(c.Param("id")); parseErr == nil {
		result, err = h.service.GetRoute(c.Request.Context(), id)
	} else {
		result, err = h.service.GetRouteBySlug(c.Request.Context(), c.Param("id"))
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// SuggestOrder handles POST /api/v1/routes/:id/reorder.
func (h *RouteHandler) SuggestOrder(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid route ID")
		return
	}

	var pos tour.Position
	if err := c.ShouldBindJSON(&pos); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SuggestOrder(c.Request.Context(), routeID, pos)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

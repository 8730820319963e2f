package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soundwalk/service-tour/internal/application"
	"github.com/soundwalk/service-tour/internal/platform/response"
)

// AdminHandler exposes operator views of live tours and recorded trips.
type AdminHandler struct {
	service *application.TourService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service *application.TourService) *AdminHandler {
	return &AdminHandler{service: service}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/api/v1/admin")
	{
		admin.GET("/tours", h.ListTours)
		admin.GET("/leases", h.ListLeases)
		admin.GET("/trips", h.ListTrips)
		admin.GET("/trips/:id", h.GetTrip)
	}
}

// ListTours handles GET /api/v1/admin/tours.
func (h *AdminHandler) ListTours(c *gin.Context) {
	response.Success(c, h.service.ActiveTours())
}

// ListLeases handles GET /api/v1/admin/leases.
func (h *AdminHandler) ListLeases(c *gin.Context) {
	response.Success(c, h.service.ActiveLeases())
}

// ListTrips handles GET /api/v1/admin/trips?walker=.
func (h *AdminHandler) ListTrips(c *gin.Context) {
	page, limit := parsePagination(c)
	result, err := h.service.ListTrips(c.Request.Context(), c.Query("walker"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Data, result.Total, result.Page, result.Limit)
}

// GetTrip handles GET /api/v1/admin/trips/:id.
func (h *AdminHandler) GetTrip(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid trip ID")
		return
	}
	result, err := h.service.GetTrip(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

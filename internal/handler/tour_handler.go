package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soundwalk/service-tour/internal/application"
	"github.com/soundwalk/service-tour/internal/domain/tour"
	"github.com/soundwalk/service-tour/internal/platform/response"
)

// keepAliveInterval spaces SSE comments that keep idle proxies from closing the stream.
const keepAliveInterval = 15 * time.Second

// TourHandler handles HTTP requests for live tours.
type TourHandler struct {
	service *application.TourService
}

// NewTourHandler creates a new TourHandler.
func NewTourHandler(service *application.TourService) *TourHandler {
	return &TourHandler{service: service}
}

// RegisterRoutes registers all tour routes on the given router group.
func (h *TourHandler) RegisterRoutes(r *gin.RouterGroup) {
	tours := r.Group("/api/v1/tours")
	{
		tours.POST("", h.StartTour)
		tours.GET("/:id", h.GetTour)
		tours.DELETE("/:id", h.EndTour)
		tours.POST("/:id/locations", h.PushLocation)
		tours.POST("/:id/stops/:stopId/visit", h.MarkVisited)
		tours.POST("/:id/playback/:action", h.Playback)
		tours.PUT("/:id/device", h.UpdateDevice)
		tours.GET("/:id/events", h.Events)
	}
}

// StartTour handles POST /api/v1/tours.
func (h *TourHandler) StartTour(c *gin.Context) {
	var req application.StartTourRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.StartTour(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// GetTour handles GET /api/v1/tours/:id.
func (h *TourHandler) GetTour(c *gin.Context) {
	id, ok := tourID(c)
	if !ok {
		return
	}
	result, err := h.service.GetTour(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// EndTour handles DELETE /api/v1/tours/:id.
func (h *TourHandler) EndTour(c *gin.Context) {
	id, ok := tourID(c)
	if !ok {
		return
	}
	result, err := h.service.EndTour(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// PushLocation handles POST /api/v1/tours/:id/locations.
func (h *TourHandler) PushLocation(c *gin.Context) {
	id, ok := tourID(c)
	if !ok {
		return
	}
	var pos tour.Position
	if err := c.ShouldBindJSON(&pos); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.service.PushLocation(id, pos); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// MarkVisited handles POST /api/v1/tours/:id/stops/:stopId/visit.
func (h *TourHandler) MarkVisited(c *gin.Context) {
	id, ok := tourID(c)
	if !ok {
		return
	}
	visited, err := h.service.MarkVisited(id, c.Param("stopId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"stop_id": c.Param("stopId"), "newly_visited": visited})
}

// Playback handles POST /api/v1/tours/:id/playback/:action.
func (h *TourHandler) Playback(c *gin.Context) {
	id, ok := tourID(c)
	if !ok {
		return
	}
	action := application.PlaybackAction(c.Param("action"))
	changed, err := h.service.Playback(id, action)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"action": action, "changed": changed})
}

// UpdateDevice handles PUT /api/v1/tours/:id/device.
func (h *TourHandler) UpdateDevice(c *gin.Context) {
	id, ok := tourID(c)
	if !ok {
		return
	}
	var req application.DeviceStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.service.UpdateDevice(id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Events handles GET /api/v1/tours/:id/events, a server-sent event stream of
// "session" and "playback" snapshots that ends when the tour ends.
func (h *TourHandler) Events(c *gin.Context) {
	id, ok := tourID(c)
	if !ok {
		return
	}
	watch, err := h.service.Watch(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer watch.Cancel()

	sessions, queue := watch.Session, watch.Queue
	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case snap, open := <-sessions:
			if !open {
				return false
			}
			c.SSEvent("session", snap)
		case snap, open := <-queue:
			if !open {
				queue = nil
				return true
			}
			c.SSEvent("playback", snap)
		case <-keepAlive.C:
			_, _ = io.WriteString(w, ": keep-alive\n\n")
		}
		return true
	})
}

func tourID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid tour ID")
		return uuid.Nil, false
	}
	return id, true
}

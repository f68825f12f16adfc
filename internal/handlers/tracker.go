package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/organizer/internal/services/tracker"
)

// TrackerHandler serves the caller's finance tracker
type TrackerHandler struct{}

func NewTrackerHandler() *TrackerHandler {
	return &TrackerHandler{}
}

type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterRoutes registers the tracker routes
func (h *TrackerHandler) RegisterRoutes(g *echo.Group) {
	trackers := g.Group("/tracker")
	trackers.GET("", h.Get)
	trackers.POST("", h.Save)
	trackers.DELETE("", h.Delete)
	trackers.POST("/downloaded", h.Downloaded)
}

// Get handles GET /tracker
func (h *TrackerHandler) Get(c echo.Context) error {
	svc, err := resolve[*tracker.Service](c)
	if err != nil {
		return err
	}

	t, err := svc.Get(c.Request().Context())
	if err != nil {
		return err
	}
	return SuccessResponse(c, t)
}

// Save handles POST /tracker. The whole body is stored as the tracker blob.
func (h *TrackerHandler) Save(c echo.Context) error {
	var data map[string]any
	if err := c.Bind(&data); err != nil {
		return BadRequest("invalid request body")
	}

	svc, err := resolve[*tracker.Service](c)
	if err != nil {
		return err
	}

	t, created, err := svc.Save(c.Request().Context(), data)
	if err != nil {
		return err
	}

	if created {
		return CreatedResponse(c, t)
	}
	return SuccessResponse(c, t)
}

// Delete handles DELETE /tracker
func (h *TrackerHandler) Delete(c echo.Context) error {
	svc, err := resolve[*tracker.Service](c)
	if err != nil {
		return err
	}

	if err := svc.Delete(c.Request().Context()); err != nil {
		return err
	}
	return SuccessResponse(c, MessageResponse{Message: "Finance data deleted successfully."})
}

// Downloaded handles POST /tracker/downloaded
func (h *TrackerHandler) Downloaded(c echo.Context) error {
	svc, err := resolve[*tracker.Service](c)
	if err != nil {
		return err
	}

	if err := svc.Downloaded(c.Request().Context()); err != nil {
		return err
	}
	return SuccessResponse(c, MessageResponse{Message: "Finance data downloaded successfully."})
}

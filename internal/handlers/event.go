// internal/handlers/event.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sampledhq/sampled-backend/internal/services"
	"github.com/sampledhq/sampled-backend/internal/utils"
)

type EventHandler struct {
	eventService *services.EventService
}

func NewEventHandler(eventService *services.EventService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
	}
}

// GET /events?type=license.minted
// Read-only feed for off-chain indexers.
func (h *EventHandler) GetEvents(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	eventType := c.Query("type")

	events, total, err := h.eventService.GetEvents(eventType, params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch events")
		return
	}

	result := utils.CreatePaginationResult(events, total, params)
	utils.PaginatedResponse(c, result)
}

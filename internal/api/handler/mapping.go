package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/gridport/internal/domain"
	"github.com/timmy/gridport/internal/service"
)

// MappingHandler proposes and adjusts column mappings.
type MappingHandler struct {
	importService *service.ImportService
}

// NewMappingHandler creates a new mapping handler.
// Parameters:
//   - importService: import orchestration service.
// Returns:
//   - *MappingHandler: initialized handler.
func NewMappingHandler(importService *service.ImportService) *MappingHandler {
	return &MappingHandler{importService: importService}
}

// ProposeRequest carries the header and the target field candidates.
type ProposeRequest struct {
	Header     []string `json:"header" binding:"required"`
	Candidates []string `json:"candidates"`
}

// Propose handles POST /api/v1/mappings/propose.
func (h *MappingHandler) Propose(c *gin.Context) {
	var req ProposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	mappings := h.importService.ProposeMapping(req.Header, req.Candidates)
	c.JSON(http.StatusOK, gin.H{
		"mappings": mappings,
	})
}

// AdjustRequest carries the current mapping and the operator's changes.
type AdjustRequest struct {
	Mappings []domain.ColumnMapping  `json:"mappings" binding:"required"`
	Changes  []service.MappingChange `json:"changes" binding:"required"`
}

// Adjust handles POST /api/v1/mappings/adjust. Conflict eviction is applied
// server-side so the client never sees two columns on one target.
func (h *MappingHandler) Adjust(c *gin.Context) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	mappings := h.importService.AdjustMapping(req.Mappings, req.Changes)
	c.JSON(http.StatusOK, gin.H{
		"mappings": mappings,
	})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/gridport/internal/domain"
	"github.com/timmy/gridport/internal/service"
)

// ImportHandler starts runs and exposes their progress and results.
type ImportHandler struct {
	registry *service.Registry
}

// NewImportHandler creates a new import handler.
// Parameters:
//   - registry: run registry backing progress polling.
// Returns:
//   - *ImportHandler: initialized handler.
func NewImportHandler(registry *service.Registry) *ImportHandler {
	return &ImportHandler{registry: registry}
}

// StartRequest describes one import run to launch.
type StartRequest struct {
	RecordID  string                 `json:"record_id" binding:"required"`
	TableName string                 `json:"table_name"`
	Mappings  []domain.ColumnMapping `json:"mappings"`
}

// Start handles POST /api/v1/imports. The run executes in the background;
// the client polls progress with the returned run ID.
func (h *ImportHandler) Start(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	runID := h.registry.Start(&service.RunRequest{
		RecordID:  req.RecordID,
		TableName: req.TableName,
		Mapping:   req.Mappings,
	})

	c.JSON(http.StatusAccepted, gin.H{
		"run_id": runID,
	})
}

// Progress handles GET /api/v1/imports/:id.
func (h *ImportHandler) Progress(c *gin.Context) {
	state, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Unknown run",
		})
		return
	}
	c.JSON(http.StatusOK, state)
}

// Result handles GET /api/v1/imports/:id/result. Answers 409 while the run
// is still in flight.
func (h *ImportHandler) Result(c *gin.Context) {
	state, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Unknown run",
		})
		return
	}
	if state.Status == service.RunStatusRunning {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Run still in progress",
		})
		return
	}
	c.JSON(http.StatusOK, state)
}

// Cancel handles DELETE /api/v1/imports/:id.
func (h *ImportHandler) Cancel(c *gin.Context) {
	if !h.registry.Cancel(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Unknown run",
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status": "cancelling",
	})
}

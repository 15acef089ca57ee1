package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/gridport/internal/domain"
	"github.com/timmy/gridport/internal/service"
)

// maxUploadBytes caps a single file upload. Large files still import fine;
// this is a request-size guard, not an import limit.
const maxUploadBytes = 64 << 20

// UploadHandler handles source file intake.
type UploadHandler struct {
	importService *service.ImportService
}

// NewUploadHandler creates a new upload handler.
// Parameters:
//   - importService: import orchestration service.
// Returns:
//   - *UploadHandler: initialized handler.
func NewUploadHandler(importService *service.ImportService) *UploadHandler {
	return &UploadHandler{importService: importService}
}

// Upload handles POST /api/v1/uploads. Accepts a multipart form with a
// single "file" part and returns the session record the import will run
// against.
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing file: " + err.Error(),
		})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "File too large",
		})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unreadable file: " + err.Error(),
		})
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unreadable file: " + err.Error(),
		})
		return
	}

	record, err := h.importService.Upload(c.Request.Context(), &domain.SourceFile{
		Name:     fileHeader.Filename,
		Size:     fileHeader.Size,
		MIMEType: fileHeader.Header.Get("Content-Type"),
		Content:  string(content),
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Upload failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"record_id":         record.RecordID,
		"file_name":         record.FileName,
		"total_lines":       record.TotalLines,
		"requires_reupload": record.RequiresReupload,
	})
}

// GetSession handles GET /api/v1/uploads/:id.
func (h *UploadHandler) GetSession(c *gin.Context) {
	record, err := h.importService.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load session: " + err.Error(),
		})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Unknown upload",
		})
		return
	}
	c.JSON(http.StatusOK, record)
}

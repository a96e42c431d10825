// Package handlers wires the core (upload.Planner, upload.Writer,
// status.Reporter) into gin.Context handlers, the same way the original
// handlers.go wired storage.* into its own upload endpoints.
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rorocorp/uploadcore/auth"
	"github.com/rorocorp/uploadcore/model"
	"github.com/rorocorp/uploadcore/status"
	"github.com/rorocorp/uploadcore/upload"
	"github.com/rorocorp/uploadcore/uploaderr"
)

type Handlers struct {
	Planner  *upload.Planner
	Writer   *upload.Writer
	Reporter *status.Reporter
}

type submitMetadataRequest struct {
	Filename  string `json:"filename"`
	TotalSize int64  `json:"total_size"`
	Checksum  string `json:"checksum"`
}

// SubmitMetadata is POST /submit_metadata.
func (h *Handlers) SubmitMetadata(c *gin.Context) {
	var req submitMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, uploaderr.Wrap(uploaderr.InvalidArgument, "INVALID_BODY", "malformed JSON body", err))
		return
	}

	plan, err := h.Planner.RegisterFile(c.Request.Context(), req.Filename, req.TotalSize, req.Checksum)
	if err != nil {
		fail(c, err)
		return
	}
	if userID, exists := c.Get("userid"); exists {
		if uid, ok := userID.(string); ok {
			auth.RecordFileOwnership(uid, plan.FileID)
		}
	}
	ok(c, 200, plan)
}

// UploadChunk is POST /upload.
func (h *Handlers) UploadChunk(c *gin.Context) {
	fileID := c.GetHeader("X-File-ID")
	if fileID == "" {
		fail(c, uploaderr.New(uploaderr.InvalidArgument, "MISSING_FILE_ID", "X-File-ID header is required"))
		return
	}
	startOffsetStr := c.GetHeader("X-Start-Offset")
	startOffset, err := strconv.ParseInt(startOffsetStr, 10, 64)
	if err != nil {
		fail(c, uploaderr.New(uploaderr.InvalidArgument, "MISSING_START_OFFSET", "X-Start-Offset header must be a decimal integer"))
		return
	}
	contentLength := c.Request.ContentLength
	if contentLength < 0 {
		fail(c, uploaderr.New(uploaderr.InvalidArgument, "MISSING_CONTENT_LENGTH", "Content-Length is required"))
		return
	}
	contentRange := c.GetHeader("Content-Range")

	result, err := h.Writer.UploadChunk(c.Request.Context(), fileID, startOffset, contentLength, contentRange, c.Request.Body)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, 200, result)
}

// FileStatus is GET /upload_status/:file_id.
func (h *Handlers) FileStatus(c *gin.Context) {
	fileID := c.Param("file_id")
	if fileID == "" {
		fail(c, uploaderr.New(uploaderr.InvalidArgument, "MISSING_FILE_ID", "file_id path parameter is required"))
		return
	}
	view, err := h.Reporter.FileStatus(c.Request.Context(), fileID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(200, view)
}

// ListFiles is GET /uploaded_files.
func (h *Handlers) ListFiles(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	sortBy := c.DefaultQuery("sort_by", "id")
	order := c.DefaultQuery("order", "asc")

	var statusFilter *model.Status
	if sv := c.Query("status"); sv != "" {
		if n, err := strconv.Atoi(sv); err == nil {
			s := model.Status(n)
			statusFilter = &s
		}
	}

	total, rows, err := h.Reporter.ListFiles(c.Request.Context(), page, pageSize, statusFilter, sortBy, order)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, 200, gin.H{"total_files": total, "files": rows})
}

// Health is a plain liveness endpoint.
func Health(c *gin.Context) {
	c.String(200, "OK")
}

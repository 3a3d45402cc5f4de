package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/estivenmendezr98/TAREAS/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	maxFilesPerUpload = 10
	multipartMemory   = 8 << 20
)

type EvidenceHandler struct {
	db              *gorm.DB
	evidenceService services.EvidenceService
	maxBody         int64
}

// NewEvidenceHandler caps a whole upload request at maxFilesPerUpload files
// of maxFileSize each.
func NewEvidenceHandler(db *gorm.DB, evidenceService services.EvidenceService, maxFileSize int64) *EvidenceHandler {
	var maxBody int64
	if maxFileSize > 0 {
		maxBody = maxFileSize*maxFilesPerUpload + 1<<20
	}
	return &EvidenceHandler{db: db, evidenceService: evidenceService, maxBody: maxBody}
}

// UploadEvidence accepts multipart files under the "files" field.
func (h *EvidenceHandler) UploadEvidence(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if h.maxBody > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}

	headers := c.Request.MultipartForm.File["files"]
	if len(headers) > maxFilesPerUpload {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many files"})
		return
	}
	uploads := make([]services.Upload, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		uploads = append(uploads, services.Upload{
			Name: fh.Filename,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}

	ctx := c.Request.Context()
	records, err := h.evidenceService.UploadEvidence(ctx, h.db.WithContext(ctx), owner, taskID, uploads)
	if err != nil {
		handleError(c, "task", err)
		return
	}
	c.JSON(http.StatusCreated, records)
}

func (h *EvidenceHandler) DeleteEvidence(c *gin.Context) {
	owner, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.evidenceService.DeleteEvidence(h.db.WithContext(c.Request.Context()), owner, id); err != nil {
		handleError(c, "evidence", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Evidence deleted"})
}

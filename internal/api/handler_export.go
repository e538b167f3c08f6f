package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"newsletter-finder/internal/export"
)

// DownloadResults handles POST /download-results: the posted rows as a CSV attachment.
func (h *Handler) DownloadResults(c *gin.Context) {
	var records []export.Record
	if err := c.ShouldBindJSON(&records); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	data, err := export.ToCSV(records)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

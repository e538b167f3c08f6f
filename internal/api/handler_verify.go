package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"newsletter-finder/internal/verify"
)

// BatchIDHeader carries the verification log batch of a POST /verify response.
const BatchIDHeader = "X-Batch-Id"

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Verify handles POST /verify: checks every URL of an uploaded CSV file.
func (h *Handler) Verify(c *gin.Context) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Uploaded file is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if fileHeader.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not open uploaded file: " + err.Error()})
		return
	}
	defer f.Close()

	urls, err := verify.ReadURLs(f)
	if err != nil {
		if errors.Is(err, verify.ErrNoURLColumn) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read CSV: " + err.Error()})
		return
	}

	results, batchID := h.verifier.VerifyAll(c.Request.Context(), urls)
	if batchID != "" {
		c.Header(BatchIDHeader, batchID)
	}
	c.JSON(http.StatusOK, results)
}

// GetVerifications handles GET /api/verifications: the most recent logged checks.
func (h *Handler) GetVerifications(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "verification log is not configured"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	rows, err := h.store.RecentVerifications(c.Request.Context(), limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve verifications"})
		return
	}
	c.JSON(http.StatusOK, toVerificationResponses(rows))
}

// GetVerificationBatch handles GET /api/verifications/:batch_id.
func (h *Handler) GetVerificationBatch(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "verification log is not configured"})
		return
	}

	rows, err := h.store.BatchVerifications(c.Request.Context(), c.Param("batch_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve verification batch"})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
		return
	}
	c.JSON(http.StatusOK, toVerificationResponses(rows))
}

package api

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"newsletter-finder/internal/search"
)

type searchRequest struct {
	Country  string `json:"country"`
	City     string `json:"city"`
	Category string `json:"category"`
	Page     *int   `json:"page"`
	SearchID string `json:"search_id"`
}

// Search handles POST /search: one page of a caller-continued search.
func (h *Handler) Search(c *gin.Context) {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No data provided"})
		return
	}

	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No data provided"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	page := 1
	if req.Page != nil {
		page = *req.Page
	}

	query := search.Query{Country: req.Country, City: req.City, Category: req.Category}
	state := search.State{SearchID: req.SearchID, CurrentPage: page}

	result, _, err := h.session.FetchNextPage(c.Request.Context(), state, query)
	if err != nil {
		var validationErr *search.ValidationError
		switch {
		case errors.As(err, &validationErr):
			log.Printf("search rejected: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
		case errors.Is(err, search.ErrUpstream):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		case errors.Is(err, search.ErrInvalidResponse):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid JSON in API response"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

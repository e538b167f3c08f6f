package api

import (
	"time"

	"newsletter-finder/internal/model"
)

// verificationResponse is the API shape of a logged check.
type verificationResponse struct {
	BatchID       string    `json:"batchId"`
	URL           string    `json:"url"`
	IsActive      bool      `json:"isActive"`
	HasNewsletter bool      `json:"hasNewsletter"`
	HasRSS        bool      `json:"hasRSS"`
	CheckedAt     time.Time `json:"lastChecked"`
	Error         string    `json:"error,omitempty"`
}

func toVerificationResponses(rows []model.Verification) []verificationResponse {
	responses := make([]verificationResponse, 0, len(rows))
	for _, r := range rows {
		responses = append(responses, verificationResponse{
			BatchID:       r.BatchID,
			URL:           r.URL,
			IsActive:      r.IsActive,
			HasNewsletter: r.HasNewsletter,
			HasRSS:        r.HasRSS,
			CheckedAt:     r.CheckedAt,
			Error:         r.Error,
		})
	}
	return responses
}

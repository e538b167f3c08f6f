package api

import (
	"newsletter-finder/internal/search"
	"newsletter-finder/internal/store"
	"newsletter-finder/internal/verify"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	session  *search.Session
	verifier *verify.Verifier
	store    store.Store // nil when the verification log is disabled
	maxBytes int64
}

// NewHandler creates a new API handler.
func NewHandler(session *search.Session, verifier *verify.Verifier, s store.Store, maxUploadBytes int64) *Handler {
	return &Handler{
		session:  session,
		verifier: verifier,
		store:    s,
		maxBytes: maxUploadBytes,
	}
}

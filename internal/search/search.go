package search

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"newsletter-finder/internal/llm"
	"newsletter-finder/internal/parse"
)

// TitleNotAvailable is reported for shops the upstream answer did not name.
const TitleNotAvailable = parse.TitleNotAvailable

// searchIDLayout gives one identifier per second; two first-page requests in
// the same second share an ID.
const searchIDLayout = "20060102150405"

var (
	// ErrUpstream marks a page whose upstream call failed.
	ErrUpstream = errors.New("upstream request failed")
	// ErrInvalidResponse marks a page whose upstream answer could not be parsed.
	ErrInvalidResponse = errors.New("invalid response format")
)

// Query is what the caller is looking for.
type Query struct {
	Country  string `json:"country"`
	City     string `json:"city"`
	Category string `json:"category"`
}

// State carries the continuation values the caller echoes back on every call.
type State struct {
	SearchID    string
	CurrentPage int
	Complete    bool
	Progress    int
}

// ShopResult is one discovered shop. HasNewsletter is "Yes" or "No".
type ShopResult struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	HasNewsletter string `json:"hasNewsletter"`
}

// Page is the outcome of one FetchNextPage call.
type Page struct {
	Results      []ShopResult `json:"results"`
	TotalResults int          `json:"total_results"`
	CurrentPage  int          `json:"current_page"`
	HasMore      bool         `json:"has_more"`
	Progress     int          `json:"progress"`
	SearchID     string       `json:"search_id"`
}

// ValidationError reports caller input rejected before any upstream call.
type ValidationError struct {
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return "Missing required fields: " + strings.Join(e.Missing, ", ")
	}
	return e.Reason
}

// Validate reports which query fields are empty.
func (q Query) Validate() error {
	var missing []string
	if strings.TrimSpace(q.Country) == "" {
		missing = append(missing, "country")
	}
	if strings.TrimSpace(q.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(q.Category) == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Session composes a PageFetcher with the answer parser. It keeps no state
// between calls; everything it needs comes in through State.
type Session struct {
	fetcher   *PageFetcher
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewSession creates a session runner on top of the given upstream answerer.
func NewSession(answerer llm.Answerer) *Session {
	return &Session{
		fetcher:   NewPageFetcher(answerer),
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

// FetchNextPage fetches state.CurrentPage for q. The returned state is not advanced;
// the caller bumps CurrentPage before asking again while Page.HasMore is true.
func (s *Session) FetchNextPage(ctx context.Context, state State, q Query) (Page, State, error) {
	if err := q.Validate(); err != nil {
		return Page{}, state, err
	}
	if state.CurrentPage < 1 {
		return Page{}, state, &ValidationError{Reason: fmt.Sprintf("page must be at least 1, got %d", state.CurrentPage)}
	}
	if state.SearchID == "" {
		state.SearchID = s.now().Format(searchIDLayout)
	}

	raw, err := s.fetcher.FetchPage(ctx, q, state.CurrentPage)
	if err != nil {
		log.Printf("search %s: page %d upstream error: %v", state.SearchID, state.CurrentPage, err)
		return Page{}, state, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	answer, err := parse.ParsePage(raw, state.CurrentPage)
	if err != nil {
		var parseErr *parse.ParseError
		if errors.As(err, &parseErr) {
			log.Printf("search %s: page %d unparseable answer: %v\nContent: %s", state.SearchID, state.CurrentPage, err, parseErr.Payload)
		}
		return Page{}, state, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	results := make([]ShopResult, 0, len(answer.Results))
	for _, entry := range answer.Results {
		results = append(results, s.toShopResult(entry))
	}

	state.Complete = answer.SearchComplete
	state.Progress = answer.SearchProgress

	page := Page{
		Results:      results,
		TotalResults: answer.TotalFound,
		CurrentPage:  answer.CurrentPage,
		HasMore:      !answer.SearchComplete,
		Progress:     answer.SearchProgress,
		SearchID:     state.SearchID,
	}
	log.Printf("search %s: page %d returned %d results (progress %d%%, complete=%t)",
		state.SearchID, state.CurrentPage, len(results), page.Progress, state.Complete)
	return page, state, nil
}

func (s *Session) toShopResult(entry parse.PageEntry) ShopResult {
	title := strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(entry.Title)))

	newsletter := "No"
	if entry.HasNewsletter {
		newsletter = "Yes"
	}

	return ShopResult{
		URL:           entry.URL,
		Title:         title,
		HasNewsletter: newsletter,
	}
}

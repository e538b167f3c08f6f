package parse

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	taggedFence = "```json"
	plainFence  = "```"
)

// TitleNotAvailable stands in for a shop whose entry carries no title.
const TitleNotAvailable = "Shop name not available"

// ParseError reports an upstream answer that could not be decoded into the expected shape.
type ParseError struct {
	Payload string // text that failed to decode, after fence extraction
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid answer format: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExtractPayload pulls the JSON payload out of a free-form answer.
// A "```json" fence wins over a plain "```" fence; with no fence the trimmed text is used.
// An unterminated fence runs to the end of the text.
func ExtractPayload(raw string) string {
	s := strings.TrimSpace(raw)
	if _, after, ok := strings.Cut(s, taggedFence); ok {
		body, _, _ := strings.Cut(after, plainFence)
		return strings.TrimSpace(body)
	}
	if _, after, ok := strings.Cut(s, plainFence); ok {
		body, _, _ := strings.Cut(after, plainFence)
		return strings.TrimSpace(body)
	}
	return s
}

// PageEntry is one shop as reported by the upstream answer.
// Title is TitleNotAvailable when the answer omitted it; an explicit "" is kept.
type PageEntry struct {
	URL           string
	Title         string
	HasNewsletter bool
}

// PageAnswer is the structured form of one search page answer.
type PageAnswer struct {
	TotalFound     int
	CurrentPage    int
	SearchComplete bool
	SearchProgress int
	Results        []PageEntry
}

type pageWire struct {
	TotalFound     *int        `json:"total_found"`
	CurrentPage    *int        `json:"current_page"`
	SearchComplete *Bool       `json:"search_complete"`
	SearchProgress *int        `json:"search_progress"`
	Results        []entryWire `json:"results"`
}

type entryWire struct {
	URL   *string `json:"url"`
	Title *string `json:"title"`
	// Raw so that an explicit null (false) can be told apart from an absent field (true).
	HasNewsletter json.RawMessage `json:"hasNewsletter"`
}

// ParsePage decodes a search page answer. Absent fields take their defaults:
// total_found 0, current_page requestedPage, search_complete false,
// search_progress 0, results empty. An entry without hasNewsletter counts as having one.
func ParsePage(raw string, requestedPage int) (PageAnswer, error) {
	payload := ExtractPayload(raw)

	var wire pageWire
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return PageAnswer{}, &ParseError{Payload: payload, Err: err}
	}

	answer := PageAnswer{
		CurrentPage: requestedPage,
		Results:     make([]PageEntry, 0, len(wire.Results)),
	}
	if wire.TotalFound != nil {
		answer.TotalFound = *wire.TotalFound
	}
	if wire.CurrentPage != nil {
		answer.CurrentPage = *wire.CurrentPage
	}
	if wire.SearchComplete != nil {
		answer.SearchComplete = bool(*wire.SearchComplete)
	}
	if wire.SearchProgress != nil {
		answer.SearchProgress = clamp(*wire.SearchProgress, 0, 100)
	}

	for i, e := range wire.Results {
		entry := PageEntry{Title: TitleNotAvailable, HasNewsletter: true}
		if e.URL != nil {
			entry.URL = strings.TrimSpace(*e.URL)
		}
		if e.Title != nil {
			entry.Title = strings.TrimSpace(*e.Title)
		}
		if e.HasNewsletter != nil {
			var b Bool
			if err := json.Unmarshal(e.HasNewsletter, &b); err != nil {
				return PageAnswer{}, &ParseError{Payload: payload, Err: fmt.Errorf("results[%d].hasNewsletter: %w", i, err)}
			}
			entry.HasNewsletter = bool(b)
		}
		answer.Results = append(answer.Results, entry)
	}
	return answer, nil
}

// VerificationAnswer holds the three signals for one checked website.
type VerificationAnswer struct {
	IsActive      bool
	HasNewsletter bool
	HasRSS        bool
	// Heuristic is set when the answer was not valid JSON and the flags
	// come from keyword presence in the raw text.
	Heuristic bool
}

type verificationWire struct {
	IsActive      *Bool `json:"isActive"`
	HasNewsletter *Bool `json:"hasNewsletter"`
	HasRSS        *Bool `json:"hasRSS"`
}

// ParseVerification decodes a per-URL verification answer. It never fails:
// when the payload is not a JSON object each flag is set if its keyword
// ("active", "newsletter", "rss") appears anywhere in raw, case-insensitively.
func ParseVerification(raw string) VerificationAnswer {
	payload := ExtractPayload(raw)

	var wire verificationWire
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		lower := strings.ToLower(raw)
		return VerificationAnswer{
			IsActive:      strings.Contains(lower, "active"),
			HasNewsletter: strings.Contains(lower, "newsletter"),
			HasRSS:        strings.Contains(lower, "rss"),
			Heuristic:     true,
		}
	}

	return VerificationAnswer{
		IsActive:      wire.IsActive.value(),
		HasNewsletter: wire.HasNewsletter.value(),
		HasRSS:        wire.HasRSS.value(),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

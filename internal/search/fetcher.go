package search

import (
	"context"
	"fmt"

	"newsletter-finder/internal/llm"
)

// PageFetcher asks the upstream service for one page of a search.
//
// The prompt is the only continuation mechanism: earlier results are not sent
// back, so the service may repeat a URL on a later page.
type PageFetcher struct {
	answerer llm.Answerer
}

// NewPageFetcher creates a fetcher using answerer for every page.
func NewPageFetcher(answerer llm.Answerer) *PageFetcher {
	return &PageFetcher{answerer: answerer}
}

// FetchPage returns the raw upstream answer for page of q. One attempt, no retry.
func (f *PageFetcher) FetchPage(ctx context.Context, q Query, page int) (string, error) {
	return f.answerer.Answer(ctx, BuildPagePrompt(q, page))
}

// BuildPagePrompt renders the discovery prompt for one page.
func BuildPagePrompt(q Query, page int) string {
	return fmt.Sprintf(`Find as many online shops as possible in %[1]s, %[2]s that sell %[3]s and have newsletter signup.
Search progress: Page %[4]d
Return only the data in this exact JSON format without any additional text:
{
    "total_found": <estimated_total>,
    "current_page": %[4]d,
    "search_complete": <true/false>,
    "search_progress": <0-100>,
    "results": [
        {"url": "<shop_url>", "title": "<shop_name>", "hasNewsletter": true},
        ...
    ]
}
Continue searching and return unique results. Estimate total available results.`, q.City, q.Country, q.Category, page)
}

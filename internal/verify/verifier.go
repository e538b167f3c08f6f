package verify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"newsletter-finder/internal/llm"
	"newsletter-finder/internal/model"
	"newsletter-finder/internal/parse"
)

// Result is the verification outcome for one URL. Error is set when the
// upstream call failed, in which case every flag is false.
type Result struct {
	URL           string    `json:"url"`
	IsActive      bool      `json:"isActive"`
	HasNewsletter bool      `json:"hasNewsletter"`
	HasRSS        bool      `json:"hasRSS"`
	CheckedAt     time.Time `json:"lastChecked"`
	Error         string    `json:"error,omitempty"`
}

// Recorder persists a finished batch and returns its batch ID.
type Recorder interface {
	SaveVerifications(ctx context.Context, records []model.Verification) (string, error)
}

// Verifier checks a list of URLs with a bounded pool of workers.
type Verifier struct {
	answerer llm.Answerer
	size     int
	recorder Recorder
	now      func() time.Time
}

// NewVerifier creates a verifier running at most size upstream calls at once.
// recorder may be nil.
func NewVerifier(answerer llm.Answerer, size int, recorder Recorder) *Verifier {
	if size <= 0 {
		size = 1
	}
	return &Verifier{
		answerer: answerer,
		size:     size,
		recorder: recorder,
		now:      time.Now,
	}
}

// VerifyAll returns exactly one result per input URL, in input order.
// A failing URL is reported in its own result and never aborts the batch.
// batchID names the recorded batch; it is empty when nothing was recorded.
func (v *Verifier) VerifyAll(ctx context.Context, urls []string) (results []Result, batchID string) {
	results = make([]Result, len(urls))
	if len(urls) == 0 {
		return results, ""
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := min(v.size, len(urls))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				// Each worker only ever writes its own slot.
				results[idx] = v.verifyOne(ctx, urls[idx])
			}
		}()
	}

	for i := range urls {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results, v.record(ctx, results)
}

func (v *Verifier) verifyOne(ctx context.Context, url string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("verify %s: recovered from panic: %v", url, r)
			res = v.failed(url, fmt.Errorf("panic: %v", r))
		}
	}()

	content, err := v.answerer.Answer(ctx, BuildPrompt(url))
	if err != nil {
		log.Printf("verify %s: %v", url, err)
		return v.failed(url, err)
	}

	answer := parse.ParseVerification(content)
	if answer.Heuristic {
		log.Printf("verify %s: answer was not JSON, using keyword fallback", url)
	}

	return Result{
		URL:           url,
		IsActive:      answer.IsActive,
		HasNewsletter: answer.HasNewsletter,
		HasRSS:        answer.HasRSS,
		CheckedAt:     v.now().UTC(),
	}
}

func (v *Verifier) failed(url string, err error) Result {
	return Result{
		URL:       url,
		CheckedAt: v.now().UTC(),
		Error:     err.Error(),
	}
}

func (v *Verifier) record(ctx context.Context, results []Result) string {
	if v.recorder == nil {
		return ""
	}

	records := make([]model.Verification, len(results))
	for i, r := range results {
		records[i] = model.Verification{
			URL:           r.URL,
			IsActive:      r.IsActive,
			HasNewsletter: r.HasNewsletter,
			HasRSS:        r.HasRSS,
			Error:         r.Error,
			CheckedAt:     r.CheckedAt,
		}
	}

	batchID, err := v.recorder.SaveVerifications(ctx, records)
	if err != nil {
		log.Printf("Warning: could not record verification batch of %d urls: %v", len(records), err)
		return ""
	}
	log.Printf("Recorded verification batch %s (%d urls)", batchID, len(records))
	return batchID
}

// BuildPrompt renders the verification prompt for one URL.
func BuildPrompt(url string) string {
	return fmt.Sprintf("Check if the website %s is active and has a newsletter signup or RSS feed. "+
		"Return result in JSON format with fields: isActive (true/false), hasNewsletter (true/false), hasRSS (true/false)", url)
}

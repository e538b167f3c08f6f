package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"newsletter-finder/config"
	"newsletter-finder/internal/api"
	"newsletter-finder/internal/db"
	"newsletter-finder/internal/llm"
	"newsletter-finder/internal/model"
	"newsletter-finder/internal/search"
	"newsletter-finder/internal/store"
	"newsletter-finder/internal/verify"
)

// chatReply wraps content the way the chat completion endpoint does.
func chatReply(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
}

// TestSearchVerifyExportFlow drives a two-page search, verifies the found
// shops, checks the verification log and exports the rows.
func TestSearchVerifyExportFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// --- Test Setup ---

	// 1. In-memory SQLite for the verification log.
	testDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	// 2. Fake upstream chat completion service.
	var searchCalls, verifyCalls int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Messages []llm.Message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) != 1 {
			t.Errorf("bad upstream request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		prompt := req.Messages[0].Content

		switch {
		case strings.Contains(prompt, "Search progress: Page 1"):
			atomic.AddInt32(&searchCalls, 1)
			chatReply(w, "Sure! Here are the shops:\n```json\n"+`{"total_found": 3, "current_page": 1, "search_complete": false, "search_progress": 60,
				"results": [{"url": "https://tea-one.example", "title": "Tea One", "hasNewsletter": true},
				            {"url": "https://tea-two.example", "hasNewsletter": false}]}`+"\n```")
		case strings.Contains(prompt, "Search progress: Page 2"):
			atomic.AddInt32(&searchCalls, 1)
			chatReply(w, `{"total_found": 3, "current_page": 2, "search_complete": true, "search_progress": 100,
				"results": [{"url": "https://tea-three.example", "title": "Tea Three"}]}`)
		case strings.Contains(prompt, "https://tea-two.example"):
			atomic.AddInt32(&verifyCalls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		case strings.HasPrefix(prompt, "Check if the website"):
			atomic.AddInt32(&verifyCalls, 1)
			chatReply(w, `{"isActive": true, "hasNewsletter": true, "hasRSS": false}`)
		default:
			t.Errorf("unexpected prompt: %s", prompt)
		}
	}))
	defer upstream.Close()

	// 3. Wire the application the way main does.
	cfg := &config.Config{
		Upstream: config.UpstreamConfig{URL: upstream.URL, APIKey: "test-key", Model: "test-model"},
		Verifier: config.VerifierConfig{Concurrency: 2},
	}
	cfg.ApplyDefaults()

	client := llm.NewClient(cfg.Upstream)
	appStore := store.NewGormStore(testDB)
	handler := api.NewHandler(
		search.NewSession(client),
		verify.NewVerifier(client, cfg.Verifier.Concurrency, appStore),
		appStore,
		int64(cfg.Server.MaxUploadMB)<<20,
	)
	router := api.NewRouter(cfg.Server, handler)

	postJSON := func(path string, body any) *httptest.ResponseRecorder {
		payload, _ := json.Marshal(body)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	// --- Phase 1: paginate until the search reports completion ---
	var collected []search.ShopResult
	t.Run("Phase 1: Paginate search", func(t *testing.T) {
		searchID := ""
		page := 1
		for {
			w := postJSON("/search", map[string]any{
				"country": "Japan", "city": "Kyoto", "category": "tea", "page": page, "search_id": searchID,
			})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var resp search.Page
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			if searchID == "" {
				searchID = resp.SearchID
				assert.NotEmpty(t, searchID)
			}
			assert.Equal(t, searchID, resp.SearchID, "search id must stay stable across pages")
			assert.Equal(t, page, resp.CurrentPage)

			collected = append(collected, resp.Results...)
			if !resp.HasMore {
				assert.Equal(t, 100, resp.Progress)
				break
			}
			page++
			require.LessOrEqual(t, page, 5, "search never completed")
		}

		assert.Equal(t, int32(2), atomic.LoadInt32(&searchCalls))
		assert.Equal(t, []search.ShopResult{
			{URL: "https://tea-one.example", Title: "Tea One", HasNewsletter: "Yes"},
			{URL: "https://tea-two.example", Title: search.TitleNotAvailable, HasNewsletter: "No"},
			{URL: "https://tea-three.example", Title: "Tea Three", HasNewsletter: "Yes"},
		}, collected)
	})

	// --- Phase 2: verify the collected URLs from an uploaded CSV ---
	t.Run("Phase 2: Verify upload", func(t *testing.T) {
		var csvBody strings.Builder
		csvBody.WriteString("title,URL\n")
		for _, r := range collected {
			fmt.Fprintf(&csvBody, "%s,%s\n", r.Title, r.URL)
		}

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", "shops.csv")
		require.NoError(t, err)
		part.Write([]byte(csvBody.String()))
		require.NoError(t, mw.Close())

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/verify", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.NotEmpty(t, w.Header().Get(api.BatchIDHeader))

		var results []verify.Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
		require.Len(t, results, 3)
		for i, r := range results {
			assert.Equal(t, collected[i].URL, r.URL)
			assert.WithinDuration(t, time.Now(), r.CheckedAt, 10*time.Second)
		}
		assert.True(t, results[0].IsActive)
		assert.NotEmpty(t, results[1].Error)
		assert.False(t, results[1].IsActive || results[1].HasNewsletter || results[1].HasRSS)
		assert.True(t, results[2].HasNewsletter)
		assert.Equal(t, int32(3), atomic.LoadInt32(&verifyCalls))
	})

	// --- Phase 3: the batch is in the verification log ---
	t.Run("Phase 3: Verification log", func(t *testing.T) {
		var count int64
		testDB.Model(&model.Verification{}).Count(&count)
		assert.Equal(t, int64(3), count)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/verifications?limit=10", nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var logged []struct {
			BatchID string `json:"batchId"`
			URL     string `json:"url"`
			Error   string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logged))
		require.Len(t, logged, 3)

		w = httptest.NewRecorder()
		req, _ = http.NewRequest(http.MethodGet, "/api/verifications/"+logged[0].BatchID, nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var batch []struct {
			URL string `json:"url"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &batch))
		require.Len(t, batch, 3)
		for i, r := range batch {
			assert.Equal(t, collected[i].URL, r.URL, "a batch keeps its input order")
		}
	})

	// --- Phase 4: export what was collected ---
	t.Run("Phase 4: Export", func(t *testing.T) {
		w := postJSON("/download-results", collected)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "newsletter_search_results.csv")

		lines := strings.Split(strings.TrimRight(w.Body.String(), "\r\n"), "\r\n")
		require.Len(t, lines, 4)
		assert.Equal(t, "url,logo,title,hasNewsletter", lines[0])
		assert.Equal(t, "https://tea-two.example,,Shop name not available,No", lines[2])
	})
}

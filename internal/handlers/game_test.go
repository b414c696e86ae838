package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/freud-of-the-dark/internal/games"
	"github.com/jwebster45206/freud-of-the-dark/pkg/character"
	"github.com/jwebster45206/freud-of-the-dark/pkg/conversation"
	"github.com/jwebster45206/freud-of-the-dark/pkg/snippet"
	"github.com/jwebster45206/freud-of-the-dark/pkg/textfilter"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePublisher) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, name)
	return nil
}

func (f *fakePublisher) PublishDelivery(_ context.Context, _ uuid.UUID, _ conversation.Delivery) error {
	return f.record("delivered")
}

func (f *fakePublisher) PublishExhausted(_ context.Context, _ uuid.UUID, _, _ string) error {
	return f.record("exhausted")
}

func (f *fakePublisher) PublishInsight(_ context.Context, _ uuid.UUID, _, _ string, _ conversation.InsightResult) error {
	return f.record("insight")
}

func (f *fakePublisher) PublishSessionStarted(_ context.Context, _ uuid.UUID) error {
	return f.record("session")
}

func (f *fakePublisher) PublishSessionCompleted(_ context.Context, _, _ uuid.UUID, _ int) error {
	return f.record("completed")
}

func (f *fakePublisher) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func newTestGameHandler(t *testing.T, catalog *snippet.Catalog, opts ...conversation.Option) (*GameHandler, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	registry := games.NewRegistry(catalog, 7, testLogger(), opts...)
	return NewGameHandler(registry, pub, textfilter.New(textfilter.RatingPG), testLogger()), pub
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

func createGame(t *testing.T, h http.Handler) uuid.UUID {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/v1/games", "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[GameResponse](t, rr).ID
}

func TestGameHandler_CreateAndGet(t *testing.T) {
	h, _ := newTestGameHandler(t, snippet.Builtin())

	rr := do(t, h, http.MethodPost, "/v1/games", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	created := decode[GameResponse](t, rr)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Nil(t, created.SessionID)
	assert.Equal(t, []string{"Getting Started"}, created.Topics)
	require.Len(t, created.Characters, 2)
	assert.Equal(t, character.FinnID, created.Characters[0].ID)
	assert.Equal(t, character.ZaraID, created.Characters[1].ID)
	assert.Equal(t, 35, created.Relationship.Attributes[character.Trust])

	rr = do(t, h, http.MethodGet, "/v1/games/"+created.ID.String(), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, created.ID, decode[GameResponse](t, rr).ID)

	rr = do(t, h, http.MethodGet, "/v1/games/"+created.ID.String()+"/topics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"Getting Started"}, decode[map[string][]string](t, rr)["topics"])
}

func TestGameHandler_Routing(t *testing.T) {
	h, _ := newTestGameHandler(t, snippet.Builtin())
	id := createGame(t, h)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"list games not allowed", http.MethodGet, "/v1/games", http.StatusMethodNotAllowed},
		{"invalid id", http.MethodGet, "/v1/games/not-a-uuid", http.StatusBadRequest},
		{"unknown game", http.MethodGet, "/v1/games/" + uuid.NewString(), http.StatusNotFound},
		{"unknown action", http.MethodGet, "/v1/games/" + id.String() + "/hoard", http.StatusNotFound},
		{"wrong method", http.MethodGet, "/v1/games/" + id.String() + "/deliver", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.method, tt.path, "")
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rr).Error)
		})
	}
}

func TestGameHandler_Delete(t *testing.T) {
	h, _ := newTestGameHandler(t, snippet.Builtin())
	id := createGame(t, h)

	rr := do(t, h, http.MethodDelete, "/v1/games/"+id.String(), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodGet, "/v1/games/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGameHandler_DeliverThenFallback(t *testing.T) {
	h, pub := newTestGameHandler(t, snippet.Builtin())
	id := createGame(t, h)
	path := "/v1/games/" + id.String()

	rr := do(t, h, http.MethodGet, path+"/snippets?character=zara&topic=Getting+Started", "")
	require.Equal(t, http.StatusOK, rr.Code)
	available := decode[map[string][]SnippetView](t, rr)["snippets"]
	require.Len(t, available, 1)
	assert.Equal(t, "builtin_zara_001", available[0].ID)

	rr = do(t, h, http.MethodPost, path+"/deliver", `{"character_id":"zara","topic":"Getting Started"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	first := decode[DeliverResponse](t, rr)
	require.NotNil(t, first.Delivery)
	assert.False(t, first.NoContent)
	assert.Equal(t, "builtin_zara_001", first.Delivery.Snippet.ID)
	assert.Equal(t, 0, first.Delivery.Remaining)

	rr = do(t, h, http.MethodGet, path+"/snippets?character=zara&topic=Getting+Started", "")
	assert.Empty(t, decode[map[string][]SnippetView](t, rr)["snippets"])

	rr = do(t, h, http.MethodPost, path+"/deliver", `{"character_id":"zara","topic":"Getting Started"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	second := decode[DeliverResponse](t, rr)
	require.NotNil(t, second.Delivery)
	assert.True(t, second.Delivery.Snippet.Fallback)
	assert.Equal(t, 2, second.Delivery.Interactions)

	assert.Equal(t, []string{"session", "delivered", "delivered"}, pub.recorded())
}

func TestGameHandler_DeliverHidesAuthoredCategories(t *testing.T) {
	h, _ := newTestGameHandler(t, snippet.Builtin())
	path := "/v1/games/" + createGame(t, h).String()

	rr := do(t, h, http.MethodGet, path+"/snippets?character=zara&topic=Getting+Started", "")
	require.Equal(t, http.StatusOK, rr.Code)
	listing := rr.Body.String()
	assert.Contains(t, listing, "builtin_zara_001")
	assert.NotContains(t, listing, `"categories"`)
	assert.NotContains(t, listing, `"score"`)

	rr = do(t, h, http.MethodPost, path+"/deliver", `{"character_id":"zara","topic":"Getting Started"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	delivered, ok := body["delivery"]["snippet"].(map[string]any)
	require.True(t, ok, rr.Body.String())
	assert.Equal(t, "builtin_zara_001", delivered["id"])
	assert.NotContains(t, delivered, "categories")
	assert.NotContains(t, delivered, "relationship_requirements")
	assert.NotContains(t, delivered, "tier")
	assert.NotContains(t, rr.Body.String(), `"score"`)
}

func TestGameHandler_SessionCap(t *testing.T) {
	h, pub := newTestGameHandler(t, snippet.Builtin(), conversation.WithMaxDeliveries(2))
	path := "/v1/games/" + createGame(t, h).String()
	deliver := `{"character_id":"zara","topic":"Getting Started"}`

	rr := do(t, h, http.MethodPost, path+"/deliver", deliver)
	require.Equal(t, http.StatusOK, rr.Code)
	first := decode[DeliverResponse](t, rr).Delivery
	require.NotNil(t, first)
	assert.Equal(t, 1, first.Interactions)
	assert.Equal(t, 2, first.MaxInteractions)
	assert.False(t, first.SessionComplete)

	rr = do(t, h, http.MethodPost, path+"/deliver", `{"character_id":"finn","topic":"Getting Started"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	second := decode[DeliverResponse](t, rr).Delivery
	require.NotNil(t, second)
	assert.True(t, second.SessionComplete)

	rr = do(t, h, http.MethodPost, path+"/deliver", deliver)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, decode[ErrorResponse](t, rr).Error, "Session complete")

	rr = do(t, h, http.MethodGet, path, "")
	assert.True(t, decode[GameResponse](t, rr).SessionComplete)

	// Notes stay reviewable and categorizable.
	rr = do(t, h, http.MethodPost, path+"/categorize", `{"snippet_id":"builtin_zara_001","category":"Projection","polarity":"negative"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, h, http.MethodGet, path+"/notes", "")
	assert.Len(t, decode[NotesResponse](t, rr).Notes, 2)

	do(t, h, http.MethodPost, path+"/session", "")
	rr = do(t, h, http.MethodPost, path+"/deliver", deliver)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode[DeliverResponse](t, rr).Delivery.Interactions)

	assert.Equal(t, []string{"session", "delivered", "delivered", "completed", "session", "delivered"}, pub.recorded())
}

func TestGameHandler_ConcurrentFirstDeliveriesStartOneSession(t *testing.T) {
	h, pub := newTestGameHandler(t, snippet.Builtin())
	path := "/v1/games/" + createGame(t, h).String() + "/deliver"

	var wg sync.WaitGroup
	for i := range 10 {
		speaker := character.ZaraID
		if i%2 == 1 {
			speaker = character.FinnID
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			rr := do(t, h, http.MethodPost, path, `{"character_id":"`+speaker+`","topic":"Getting Started"}`)
			assert.Equal(t, http.StatusOK, rr.Code)
		}()
	}
	wg.Wait()

	started := 0
	for _, e := range pub.recorded() {
		if e == "session" {
			started++
		}
	}
	assert.Equal(t, 1, started)
	assert.Len(t, pub.recorded(), 11)
}

func TestGameHandler_DeliverErrors(t *testing.T) {
	h, _ := newTestGameHandler(t, snippet.Builtin())
	path := "/v1/games/" + createGame(t, h).String() + "/deliver"

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing topic", `{"character_id":"zara"}`, http.StatusBadRequest},
		{"unknown character", `{"character_id":"smaug","topic":"Getting Started"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, path, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
}

func TestGameHandler_DeliverNoContent(t *testing.T) {
	catalog, err := snippet.Parse([]byte(`{
		"Quiet": {
			"zara": [{"id": "q1", "text": "Hm.", "tier": 1}]
		}
	}`), snippet.FormatJSON)
	require.NoError(t, err)

	h, pub := newTestGameHandler(t, catalog)
	path := "/v1/games/" + createGame(t, h).String() + "/deliver"

	rr := do(t, h, http.MethodPost, path, `{"character_id":"finn","topic":"Quiet"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[DeliverResponse](t, rr)
	assert.True(t, resp.NoContent)
	assert.Nil(t, resp.Delivery)
	assert.NotEmpty(t, resp.Reason)
	assert.Equal(t, []string{"exhausted"}, pub.recorded())
}

func TestGameHandler_CategorizeAndInsight(t *testing.T) {
	h, _ := newTestGameHandler(t, snippet.Builtin())
	id := createGame(t, h)
	path := "/v1/games/" + id.String()

	rr := do(t, h, http.MethodPost, path+"/deliver", `{"character_id":"zara","topic":"Getting Started"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	// Proposing before categorizing is a business failure, not an HTTP error.
	rr = do(t, h, http.MethodPost, path+"/insight", `{"snippet_id":"builtin_zara_001","category":"Projection","polarity":"negative"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	result := decode[conversation.InsightResult](t, rr)
	assert.False(t, result.Success)
	assert.Equal(t, conversation.ReasonCategoryNotAssigned, result.Reason)

	rr = do(t, h, http.MethodPost, path+"/categorize", `{"snippet_id":"builtin_zara_001","category":"Projection","polarity":"Negative"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, h, http.MethodPost, path+"/insight", `{"snippet_id":"builtin_zara_001","category":"Projection","polarity":"negative"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	result = decode[conversation.InsightResult](t, rr)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, character.Projection, result.Attribute)

	rr = do(t, h, http.MethodPost, path+"/insight", `{"snippet_id":"builtin_zara_001","category":"Projection","polarity":"negative"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	result = decode[conversation.InsightResult](t, rr)
	assert.False(t, result.Success)
	assert.Equal(t, conversation.ReasonAlreadyUsed, result.Reason)

	rr = do(t, h, http.MethodPost, path+"/categorize", `{"snippet_id":"builtin_zara_001","category":"Projection","polarity":"positive"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodGet, path+"/characters", "")
	require.Equal(t, http.StatusOK, rr.Code)
	cast := decode[struct {
		Characters   []*character.Character  `json:"characters"`
		Relationship *character.Relationship `json:"relationship"`
	}](t, rr)
	require.Len(t, cast.Characters, 2)
	assert.Equal(t, 6, cast.Characters[1].Attributes[character.Projection])
	assert.Equal(t, 35, cast.Relationship.Attributes[character.Trust])
}

func TestGameHandler_CategoryErrors(t *testing.T) {
	h, _ := newTestGameHandler(t, snippet.Builtin())
	path := "/v1/games/" + createGame(t, h).String()

	tests := []struct {
		name   string
		action string
		body   string
		status int
	}{
		{"categorize unknown snippet", "categorize", `{"snippet_id":"nope","category":"Projection","polarity":"negative"}`, http.StatusNotFound},
		{"categorize bad polarity", "categorize", `{"snippet_id":"builtin_zara_001","category":"Projection","polarity":"sideways"}`, http.StatusBadRequest},
		{"categorize missing category", "categorize", `{"snippet_id":"builtin_zara_001","polarity":"negative"}`, http.StatusBadRequest},
		{"insight unknown snippet", "insight", `{"snippet_id":"nope","category":"Projection","polarity":"negative"}`, http.StatusNotFound},
		{"insight bad json", "insight", `not json`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, path+"/"+tt.action, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
}

func TestGameHandler_InsightInvalidPolarity(t *testing.T) {
	h, _ := newTestGameHandler(t, snippet.Builtin())
	path := "/v1/games/" + createGame(t, h).String()

	rr := do(t, h, http.MethodPost, path+"/categorize", `{"snippet_id":"builtin_finn_001","category":"Validation Seeking","polarity":"negative"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodPost, path+"/insight", `{"snippet_id":"builtin_finn_001","category":"Validation Seeking","polarity":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGameHandler_NotesAndNewSession(t *testing.T) {
	h, pub := newTestGameHandler(t, snippet.Builtin())
	path := "/v1/games/" + createGame(t, h).String()

	rr := do(t, h, http.MethodGet, path+"/notes", "")
	require.Equal(t, http.StatusOK, rr.Code)
	notes := decode[NotesResponse](t, rr)
	assert.Nil(t, notes.SessionID)
	assert.Empty(t, notes.Notes)

	do(t, h, http.MethodPost, path+"/deliver", `{"character_id":"finn","topic":"Getting Started"}`)
	do(t, h, http.MethodPost, path+"/deliver", `{"character_id":"zara","topic":"Getting Started"}`)

	rr = do(t, h, http.MethodGet, path+"/notes", "")
	notes = decode[NotesResponse](t, rr)
	require.NotNil(t, notes.SessionID)
	require.Len(t, notes.Notes, 2)
	assert.Equal(t, "builtin_finn_001", notes.Notes[0].SnippetID)
	assert.Equal(t, "builtin_zara_001", notes.Notes[1].SnippetID)
	firstSession := *notes.SessionID

	rr = do(t, h, http.MethodPost, path+"/session", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, decode[GameResponse](t, rr).SessionID)

	rr = do(t, h, http.MethodGet, path+"/notes", "")
	assert.Empty(t, decode[NotesResponse](t, rr).Notes)

	// The new session makes the snippet deliverable again.
	rr = do(t, h, http.MethodPost, path+"/deliver", `{"character_id":"zara","topic":"Getting Started"}`)
	resp := decode[DeliverResponse](t, rr)
	require.NotNil(t, resp.Delivery)
	assert.Equal(t, "builtin_zara_001", resp.Delivery.Snippet.ID)
	assert.NotEqual(t, firstSession, resp.Delivery.SessionID)

	assert.Equal(t, []string{"session", "delivered", "delivered", "session", "delivered"}, pub.recorded())
}

func TestGameHandler_FiltersText(t *testing.T) {
	catalog, err := snippet.Parse([]byte(`{
		"Heated": {
			"zara": [{"id": "h1", "text": "Damn it, Finn.", "tier": 1}],
			"noMore": {"zara": "Zara says nothing.", "finn": "Finn says nothing."}
		}
	}`), snippet.FormatJSON)
	require.NoError(t, err)

	h, _ := newTestGameHandler(t, catalog)
	path := "/v1/games/" + createGame(t, h).String()

	rr := do(t, h, http.MethodPost, path+"/deliver", `{"character_id":"zara","topic":"Heated"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[DeliverResponse](t, rr)
	require.NotNil(t, resp.Delivery)
	assert.Equal(t, "Dang it, Finn.", resp.Delivery.Snippet.Text)
	assert.Equal(t, "Dang it, Finn.", resp.Delivery.Note.Text)

	rr = do(t, h, http.MethodGet, path+"/notes", "")
	notes := decode[NotesResponse](t, rr)
	require.Len(t, notes.Notes, 1)
	assert.Equal(t, "Dang it, Finn.", notes.Notes[0].Text)
}

func TestGameHandler_NilPublisher(t *testing.T) {
	registry := games.NewRegistry(snippet.Builtin(), 0, testLogger())
	h := NewGameHandler(registry, nil, nil, testLogger())
	path := "/v1/games/" + createGame(t, h).String()

	rr := do(t, h, http.MethodPost, path+"/deliver", `{"character_id":"zara","topic":"Getting Started"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
}

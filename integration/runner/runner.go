package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/freud-of-the-dark/internal/handlers"
	"github.com/jwebster45206/freud-of-the-dark/pkg/character"
	"github.com/jwebster45206/freud-of-the-dark/pkg/conversation"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner plays scripted suites against a running freud-of-the-dark API.
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
}

func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 30 * time.Second},
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite reads a YAML suite.
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := yaml.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse YAML in %s: %w", filename, err)
	}
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return suite, nil
}

// DiscoverTestFiles returns the sorted suite files in dir.
func DiscoverTestFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// RunSuite creates a game and runs every step against it.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Name:    suite.Name,
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	var game handlers.GameResponse
	if _, err := r.call(ctx, http.MethodPost, "/v1/games", nil, http.StatusCreated, &game); err != nil {
		result.Error = fmt.Errorf("failed to create game: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.GameID = game.ID

	var last string
	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)

		stepStart := time.Now()
		err := r.runStep(ctx, game.ID, step, &last)
		stepResult := TestResult{
			StepName: step.Name,
			Success:  err == nil,
			Error:    err,
			Duration: time.Since(stepStart),
		}
		result.Results = append(result.Results, stepResult)

		if err != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, err)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i+1, step.Name, err)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}
		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) runStep(ctx context.Context, gameID uuid.UUID, step TestStep, last *string) error {
	base := "/v1/games/" + gameID.String()
	exp := step.Expect

	status := http.StatusOK
	if exp.Status != nil {
		status = *exp.Status
	}

	snippetID := step.SnippetID
	if snippetID == LastDelivered {
		if *last == "" {
			return fmt.Errorf("%s used before any delivery", LastDelivered)
		}
		snippetID = *last
	}

	switch step.Action {
	case ActionDeliver:
		var resp handlers.DeliverResponse
		body := handlers.DeliverRequest{CharacterID: step.Character, Topic: step.Topic}
		ok, err := r.call(ctx, http.MethodPost, base+"/deliver", body, status, &resp)
		if err != nil || !ok {
			return err
		}
		if resp.Delivery != nil {
			*last = resp.Delivery.Snippet.ID
		}
		if err := checkDelivery(exp, resp); err != nil {
			return err
		}

	case ActionCategorize:
		body := handlers.CategoryRequest{SnippetID: snippetID, Category: step.Category, Polarity: step.Polarity}
		if _, err := r.call(ctx, http.MethodPost, base+"/categorize", body, status, nil); err != nil {
			return err
		}

	case ActionInsight:
		var resp conversation.InsightResult
		body := handlers.CategoryRequest{SnippetID: snippetID, Category: step.Category, Polarity: step.Polarity}
		ok, err := r.call(ctx, http.MethodPost, base+"/insight", body, status, &resp)
		if err != nil || !ok {
			return err
		}
		if err := checkInsight(exp, resp); err != nil {
			return err
		}

	case ActionNotes:
		// Checked below.

	case ActionNewSession:
		if _, err := r.call(ctx, http.MethodPost, base+"/session", nil, status, nil); err != nil {
			return err
		}
		*last = ""

	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}

	return r.checkState(ctx, base, exp)
}

func checkDelivery(exp Expectations, resp handlers.DeliverResponse) error {
	if exp.NoContent != nil && resp.NoContent != *exp.NoContent {
		return fmt.Errorf("expected no_content %t, got %t", *exp.NoContent, resp.NoContent)
	}
	if resp.Delivery == nil {
		if exp.SnippetID != "" || len(exp.SnippetIn) > 0 || exp.Fallback != nil || exp.SessionComplete != nil {
			return fmt.Errorf("expected a delivery, got none (%s)", resp.Reason)
		}
		return nil
	}

	got := resp.Delivery.Snippet
	if exp.SnippetID != "" && got.ID != exp.SnippetID {
		return fmt.Errorf("expected snippet %s, got %s", exp.SnippetID, got.ID)
	}
	if len(exp.SnippetIn) > 0 && !slices.Contains(exp.SnippetIn, got.ID) {
		return fmt.Errorf("expected snippet in %v, got %s", exp.SnippetIn, got.ID)
	}
	if exp.Fallback != nil && got.Fallback != *exp.Fallback {
		return fmt.Errorf("expected fallback %t, got %t (%s)", *exp.Fallback, got.Fallback, got.ID)
	}
	if exp.SessionComplete != nil && resp.Delivery.SessionComplete != *exp.SessionComplete {
		return fmt.Errorf("expected session_complete %t, got %t after %d interactions",
			*exp.SessionComplete, resp.Delivery.SessionComplete, resp.Delivery.Interactions)
	}
	return nil
}

func checkInsight(exp Expectations, resp conversation.InsightResult) error {
	if exp.Success != nil && resp.Success != *exp.Success {
		return fmt.Errorf("expected success %t, got %t (reason %q)", *exp.Success, resp.Success, resp.Reason)
	}
	if exp.Reason != "" && resp.Reason != exp.Reason {
		return fmt.Errorf("expected reason %q, got %q", exp.Reason, resp.Reason)
	}
	if exp.Score != nil && resp.Score != *exp.Score {
		return fmt.Errorf("expected score %d, got %d", *exp.Score, resp.Score)
	}
	return nil
}

// checkState reads back notes and characters when the step expects them.
func (r *Runner) checkState(ctx context.Context, base string, exp Expectations) error {
	if exp.Notes != nil {
		var notes handlers.NotesResponse
		if _, err := r.call(ctx, http.MethodGet, base+"/notes", nil, http.StatusOK, &notes); err != nil {
			return err
		}
		if len(notes.Notes) != *exp.Notes {
			return fmt.Errorf("expected %d notes, got %d", *exp.Notes, len(notes.Notes))
		}
	}

	if len(exp.Tiers) == 0 && len(exp.Attributes) == 0 {
		return nil
	}

	var cast struct {
		Characters []*character.Character `json:"characters"`
	}
	if _, err := r.call(ctx, http.MethodGet, base+"/characters", nil, http.StatusOK, &cast); err != nil {
		return err
	}
	byID := make(map[string]*character.Character, len(cast.Characters))
	for _, c := range cast.Characters {
		byID[c.ID] = c
	}

	for id, tier := range exp.Tiers {
		c, ok := byID[id]
		if !ok {
			return fmt.Errorf("expected character %s to exist", id)
		}
		if c.CurrentTier != tier {
			return fmt.Errorf("expected %s at tier %d, got %d", id, tier, c.CurrentTier)
		}
	}
	for id, attrs := range exp.Attributes {
		c, ok := byID[id]
		if !ok {
			return fmt.Errorf("expected character %s to exist", id)
		}
		for attr, want := range attrs {
			if got := c.Attributes[character.Attribute(attr)]; got != want {
				return fmt.Errorf("expected %s %s to be %d, got %d", id, attr, want, got)
			}
		}
	}
	return nil
}

// call performs one request. It reports false without error when the
// expected status is not 2xx and matched, so callers skip body checks.
func (r *Runner) call(ctx context.Context, method, path string, body any, wantStatus int, out any) (bool, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != wantStatus {
		return false, fmt.Errorf("%s %s returned %d, expected %d: %s", method, path, resp.StatusCode, wantStatus, strings.TrimSpace(string(respBody)))
	}
	if wantStatus >= 300 {
		return false, nil
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return false, fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
		}
	}
	return true, nil
}

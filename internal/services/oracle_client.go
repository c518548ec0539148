package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/referral-backend/internal/apperr"
	"github.com/careloop/referral-backend/internal/config"
	"github.com/careloop/referral-backend/internal/logger"
	"github.com/careloop/referral-backend/internal/types"
	"github.com/careloop/referral-backend/internal/utils"
)

// ClientProfile is the slice of client data forwarded to the ranking
// oracle. It carries display fields only, never internal row state.
type ClientProfile struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	DateOfBirth string    `json:"date_of_birth,omitempty"`
	Contact     string    `json:"contact,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

type RankedResourceID struct {
	ResourceID string `json:"resource_id"`
	Reason     string `json:"reason"`
}

type RankResult struct {
	Ranking   []RankedResourceID `json:"ranking"`
	Rationale string             `json:"rationale"`
}

// RankingOracle is the external recommendation service. It may be slow and
// it may fail; callers surface failures as OracleUnavailable.
type RankingOracle interface {
	Rank(ctx context.Context, profile ClientProfile, category types.Category, candidates []*types.ResourceRecord) (*RankResult, error)
	Converse(ctx context.Context, profile ClientProfile, candidates []types.RankedCandidate, transcript []types.MatchTurn, message string) (string, error)
}

type oracleClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	temp       float64
	httpClient *http.Client

	maxRetries int
}

// NewOracleClient builds the OpenAI-compatible ranking client. Retries are
// deliberately bounded to a single attempt by default: a slow oracle is
// surfaced to the caller rather than silently hammered.
func NewOracleClient(log *logger.Logger, cfg config.OracleConfig) (RankingOracle, error) {
	apiKey := utils.GetEnv("ORACLE_API_KEY", "", nil)
	if apiKey == "" {
		return nil, fmt.Errorf("missing ORACLE_API_KEY")
	}
	baseURL := utils.GetEnv("ORACLE_BASE_URL", "https://api.openai.com", log)
	model := cfg.Model
	if v := utils.GetEnv("ORACLE_MODEL", "", log); v != "" {
		model = v
	}
	timeoutSec := utils.GetEnvAsInt("ORACLE_TIMEOUT_SECONDS", 60, log)
	maxRetries := utils.GetEnvAsInt("ORACLE_MAX_RETRIES", 1, log)

	return &oracleClient{
		log:        log.With("service", "OracleClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		temp:       cfg.Temperature,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type oracleHTTPError struct {
	StatusCode int
	Body       string
}

func (e *oracleHTTPError) Error() string {
	return fmt.Sprintf("oracle http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var httpErr *oracleHTTPError
	if errors.As(err, &httpErr) {
		return isRetryableHTTP(httpErr.StatusCode)
	}
	return false
}

func jitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	v := low + rand.Float64()*(2*delta)
	return time.Duration(v * float64(time.Second))
}

func (c *oracleClient) doOnce(ctx context.Context, path string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, &oracleHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

func (c *oracleClient) do(ctx context.Context, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("oracle decode error: %w", uErr)
			}
			return nil
		}
		if !isRetryableErr(err) || attempt == c.maxRetries {
			return err
		}

		sleepFor := jitterSleep(backoff)
		c.log.Warn("Oracle request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

type responsesRequest struct {
	Model string `json:"model"`
	Input []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"input"`
	Text *struct {
		Format map[string]any `json:"format"`
	} `json:"text,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func (r *responsesResponse) outputText() string {
	var b strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" {
				b.WriteString(c.Text)
			}
		}
	}
	return b.String()
}

func (c *oracleClient) newRequest(messages [][2]string) responsesRequest {
	req := responsesRequest{Model: c.model, Temperature: c.temp}
	for _, m := range messages {
		req.Input = append(req.Input, struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{Role: m[0], Content: m[1]})
	}
	return req
}

const rankSystemPrompt = `You are a resource matching assistant for caseworkers. ` +
	`Given a client profile and a list of candidate community resources, rank the candidates ` +
	`from best to worst fit for the client. Only rank resources from the candidate list, ` +
	`referenced by their exact resource_id. Explain each placement briefly and give an ` +
	`overall rationale.`

func (c *oracleClient) Rank(ctx context.Context, profile ClientProfile, category types.Category, candidates []*types.ResourceRecord) (*RankResult, error) {
	type candidatePayload struct {
		ResourceID       string `json:"resource_id"`
		Organization     string `json:"organization"`
		ProgramType      string `json:"program_type,omitempty"`
		Services         string `json:"services,omitempty"`
		TargetPopulation string `json:"target_population,omitempty"`
	}
	payload := struct {
		Client     ClientProfile      `json:"client"`
		Category   types.Category     `json:"category"`
		Candidates []candidatePayload `json:"candidates"`
	}{Client: profile, Category: category}
	for _, r := range candidates {
		payload.Candidates = append(payload.Candidates, candidatePayload{
			ResourceID:       r.ID.String(),
			Organization:     r.Organization,
			ProgramType:      r.ProgramType,
			Services:         r.Services,
			TargetPopulation: r.TargetPopulation,
		})
	}
	userJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req := c.newRequest([][2]string{
		{"system", rankSystemPrompt},
		{"user", string(userJSON)},
	})
	req.Text = &struct {
		Format map[string]any `json:"format"`
	}{Format: map[string]any{
		"type": "json_schema",
		"name": "resource_ranking",
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"ranking": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"resource_id": map[string]any{"type": "string"},
							"reason":      map[string]any{"type": "string"},
						},
						"required":             []string{"resource_id", "reason"},
						"additionalProperties": false,
					},
				},
				"rationale": map[string]any{"type": "string"},
			},
			"required":             []string{"ranking", "rationale"},
			"additionalProperties": false,
		},
		"strict": true,
	}}

	var resp responsesResponse
	if err := c.do(ctx, "/v1/responses", req, &resp); err != nil {
		return nil, apperr.OracleUnavailable(err)
	}
	if resp.Refusal != "" {
		return nil, apperr.OracleUnavailable(fmt.Errorf("oracle refused: %s", resp.Refusal))
	}
	text := resp.outputText()
	if text == "" {
		return nil, apperr.OracleUnavailable(fmt.Errorf("empty oracle response"))
	}
	var result RankResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, apperr.OracleUnavailable(fmt.Errorf("parse oracle ranking: %w", err))
	}
	return &result, nil
}

const converseSystemPrompt = `You are a helpful assistant for caseworkers. You are answering ` +
	`follow-up questions about a set of community resource recommendations you previously made ` +
	`for a client. Ground every answer in the provided client profile and recommendation list. ` +
	`If the answer is not in the provided context, say so clearly. Keep responses concise.`

func (c *oracleClient) Converse(ctx context.Context, profile ClientProfile, candidates []types.RankedCandidate, transcript []types.MatchTurn, message string) (string, error) {
	var contextB strings.Builder
	fmt.Fprintf(&contextB, "Client: %s\n", profile.Name)
	if profile.Notes != "" {
		fmt.Fprintf(&contextB, "Client notes: %s\n", profile.Notes)
	}
	contextB.WriteString("Current recommendations:\n")
	for i, cand := range candidates {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&contextB, "%d. %s - %s (%s)\n", i+1, cand.Resource.Organization, cand.Resource.ProgramType, cand.Resource.Services)
	}

	messages := [][2]string{
		{"system", converseSystemPrompt},
		{"system", contextB.String()},
	}
	for _, turn := range transcript {
		messages = append(messages, [2]string{string(turn.Role), turn.Content})
	}
	messages = append(messages, [2]string{"user", message})

	var resp responsesResponse
	if err := c.do(ctx, "/v1/responses", c.newRequest(messages), &resp); err != nil {
		return "", apperr.OracleUnavailable(err)
	}
	text := resp.outputText()
	if text == "" {
		return "", apperr.OracleUnavailable(fmt.Errorf("empty oracle response"))
	}
	return text, nil
}

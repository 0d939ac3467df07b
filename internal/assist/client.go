// Package assist turns aggregated scan findings into remediation
// suggestions using the Gemini API.
package assist

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	genai "google.golang.org/genai"

	"scanagent/internal/scanflow"
)

var ErrInvalidSuggestion = errors.New("assist: invalid JSON from model")

const defaultModel = "gemini-2.0-flash"

// Suggestion is the model's structured remediation proposal.
type Suggestion struct {
	Summary    string   `json:"summary"`
	Code       string   `json:"code,omitempty"`
	References []string `json:"references,omitempty"`
}

// Client is a thin wrapper around the official genai client.
type Client struct {
	cli   *genai.Client
	model string
	rl    *rpsLimiter
}

// NewClient builds a client using GEMINI_API_KEY from the environment.
// Optional throttling via ASSIST_RPS / ASSIST_BURST.
func NewClient(ctx context.Context, model string) (*Client, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = defaultModel
	}
	var rps float64
	var burst int
	if v := os.Getenv("ASSIST_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			rps = f
		}
	}
	if v := os.Getenv("ASSIST_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			burst = n
		}
	}
	return &Client{cli: cli, model: model, rl: newRPSLimiter(rps, burst)}, nil
}

func (c *Client) Close() error {
	if c != nil && c.rl != nil {
		c.rl.Stop()
	}
	return nil
}

// SuggestRemediation asks the model for a fix proposal for one issue.
// Bounded retry with backoff; each attempt consumes a limiter token.
func (c *Client) SuggestRemediation(ctx context.Context, filePath string, issue scanflow.Issue) (*Suggestion, error) {
	prompt := buildPrompt(filePath, issue)
	log.Printf("assist: requesting remediation for %s (%d bytes of prompt)", filePath, len(prompt))

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if err := c.rl.Acquire(ctx); err != nil {
			lastErr = err
			break
		}
		resp, err := c.cli.Models.GenerateContent(ctx, c.model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
			&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
		)
		if err != nil {
			lastErr = err
		} else if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = ErrInvalidSuggestion
		} else {
			var out Suggestion
			if err := json.Unmarshal([]byte(resp.Candidates[0].Content.Parts[0].Text), &out); err != nil {
				lastErr = ErrInvalidSuggestion
			} else {
				return &out, nil
			}
		}
		time.Sleep(time.Duration(300*(1<<attempt)) * time.Millisecond)
	}
	return nil, lastErr
}

package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	xaiBaseURL      = "https://api.x.ai/v1/responses"
	xaiDefaultModel = "grok-3-fast"
	xaiMaxRetries   = 3
	xaiInitialDelay = 1 * time.Second
	xaiCallTimeout  = 90 * time.Second
)

// noResultsFallback is returned when the model response carries no usable
// text block in any recognized shape.
const noResultsFallback = "No results found."

// XAIClient calls the xAI Responses API with search tools enabled.
type XAIClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewXAIClient returns a configured client. model may be empty to use the
// default.
func NewXAIClient(apiKey, model string) *XAIClient {
	if model == "" {
		model = xaiDefaultModel
	}
	return &XAIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: xaiBaseURL,
		client:  &http.Client{Timeout: xaiCallTimeout},
	}
}

type xaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type xaiRequest struct {
	Model string           `json:"model"`
	Input []xaiMessage     `json:"input"`
	Tools []map[string]any `json:"tools,omitempty"`
}

// xaiResponse covers both the Responses API output array and the chat
// completions fallback shape.
type xaiResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type xaiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate builds the mode prompt and runs it through the model,
// retrying transient API failures with backoff.
func (c *XAIClient) Generate(ctx context.Context, params Params) (string, error) {
	prompt, tools, err := buildPrompt(params)
	if err != nil {
		return "", err
	}

	reqBody := xaiRequest{
		Model: c.model,
		Input: []xaiMessage{{Role: "user", Content: prompt}},
		Tools: tools,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	delay := xaiInitialDelay
	for attempt := 0; attempt < xaiMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		text, retryable, err := c.call(ctx, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", fmt.Errorf("xai request failed after %d attempts: %w", xaiMaxRetries, lastErr)
}

func (c *XAIClient) call(ctx context.Context, payload []byte) (text string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("xai request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr xaiError
		msg := string(body)
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, fmt.Errorf("xai API error (%d): %s", resp.StatusCode, msg)
	}

	var data xaiResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	return extractText(data), true, nil
}

// extractText pulls the first output_text block from a Responses API
// payload, falling back to the chat completions shape.
func extractText(data xaiResponse) string {
	for _, item := range data.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" && c.Text != "" {
				return c.Text
			}
		}
	}
	if len(data.Choices) > 0 && data.Choices[0].Message.Content != "" {
		return data.Choices[0].Message.Content
	}
	return noResultsFallback
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/daily-paper/pkg/types"
)

const (
	defaultBaseURL   = "https://api.deepseek.com"
	defaultModel     = "deepseek-chat"
	defaultMaxTokens = 200
)

// ChatBackend classifies papers through an OpenAI-compatible chat
// completions endpoint (DeepSeek by default).
type ChatBackend struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Client    *http.Client
}

// NewChatBackend builds a ChatBackend from the classify settings.
func NewChatBackend(client *http.Client, cfg types.ClassifyConfig) *ChatBackend {
	return &ChatBackend{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Client:    client,
	}
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// reply mirrors the JSON object the prompt asks for. Pointers distinguish a
// missing key from an explicit false.
type reply struct {
	IsAI4Science   *bool  `json:"is_ai4science"`
	IsPerturbation *bool  `json:"is_perturbation"`
	Reasoning      string `json:"reasoning"`
}

// Classify sends one paper to the chat endpoint and parses the judgement.
func (c *ChatBackend) Classify(ctx context.Context, title, abstract string) (types.Classification, error) {
	prompt, err := renderPrompt(title, abstract)
	if err != nil {
		return types.Classification{}, fmt.Errorf("rendering prompt: %w", err)
	}

	model := c.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:      maxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return types.Classification{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return types.Classification{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return types.Classification{}, fmt.Errorf("calling chat API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.Classification{}, fmt.Errorf("chat API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var cResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return types.Classification{}, fmt.Errorf("decoding chat response: %w", err)
	}
	if cResp.Error != nil {
		return types.Classification{}, fmt.Errorf("chat API error: %s", cResp.Error.Message)
	}
	if len(cResp.Choices) == 0 {
		return types.Classification{}, errors.New("chat API returned no choices")
	}

	return parseReply(cResp.Choices[0].Message.Content)
}

func (c *ChatBackend) endpoint() string {
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return strings.TrimRight(base, "/") + "/chat/completions"
}

// parseReply decodes the model's JSON object. Markdown code fences around
// the object are tolerated; missing flags or an empty reasoning are errors.
func parseReply(content string) (types.Classification, error) {
	text := stripFences(content)
	if text == "" {
		return types.Classification{}, errors.New("empty reply")
	}

	var r reply
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return types.Classification{}, fmt.Errorf("parsing reply JSON: %w", err)
	}
	if r.IsAI4Science == nil {
		return types.Classification{}, errors.New("reply missing is_ai4science")
	}
	if r.IsPerturbation == nil {
		return types.Classification{}, errors.New("reply missing is_perturbation")
	}
	reasoning := strings.TrimSpace(r.Reasoning)
	if reasoning == "" {
		return types.Classification{}, errors.New("reply missing reasoning")
	}

	return types.Classification{
		IsAI4Science:   *r.IsAI4Science,
		IsPerturbation: *r.IsPerturbation,
		Reasoning:      reasoning,
	}, nil
}

// stripFences removes a surrounding ```json ... ``` block.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

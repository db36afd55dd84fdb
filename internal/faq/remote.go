package faq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	appconfig "goldflow/config"
	"goldflow/logger"
)

const systemPrompt = "You are the assistant for a gold futures arbitrage monitor. Answer questions " +
	"about arbitrage trading, funding rates and the monitor itself, briefly and concretely."

// remoteClient calls an OpenAI-compatible chat completion endpoint.
type remoteClient struct {
	url    string
	model  string
	apiKey string
	client *http.Client
	log    *logger.Log
}

func newRemoteClient(cfg *appconfig.ChatbotConfig) *remoteClient {
	return &remoteClient{
		url:    cfg.CompletionURL,
		model:  cfg.Model,
		apiKey: os.Getenv(cfg.APIKeyEnv),
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logger.GetLogger(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *remoteClient) complete(ctx context.Context, question string) (string, error) {
	payload, err := json.Marshal(completionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: question},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("completion request: unexpected status %d", resp.StatusCode)
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("completion response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// Answer tries the remote completion service first and falls back to the
// canned entries on any failure.
func (r *Responder) Answer(ctx context.Context, question string) string {
	if r.remote != nil {
		answer, err := r.remote.complete(ctx, question)
		if err == nil {
			return answer
		}
		r.remote.log.WithComponent("faq").WithError(err).Warn("remote completion failed, using canned answers")
	}
	return r.LocalAnswer(question)
}

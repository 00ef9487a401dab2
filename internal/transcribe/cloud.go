// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package transcribe

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// CloudClient is the subset of *openai.Client the cloud backend needs. The
// caller owns the client and its credentials.
type CloudClient interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// NewCloudClient builds an OpenAI client for apiKey, pointed at baseURL when
// non-empty.
func NewCloudClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// Cloud sends audio files to a hosted Whisper model.
type Cloud struct {
	model   string
	timeout time.Duration
}

// NewCloud creates the cloud backend. An empty model uses whisper-1.
func NewCloud(model string, timeout time.Duration) *Cloud {
	if model == "" {
		model = openai.Whisper1
	}
	return &Cloud{model: model, timeout: timeout}
}

// Transcribe uploads audioPath through client.
func (c *Cloud) Transcribe(ctx context.Context, client CloudClient, audioPath string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("whisper api: %w", err)
	}
	return resp.Text, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package converters

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pdiddy/mdconvert/internal/convert"
	"github.com/pdiddy/mdconvert/internal/metadata"
	"github.com/pdiddy/mdconvert/pkg/types"
)

const defaultVisionPrompt = "Write a detailed caption for this image."

// DescriptionFailure replaces the description when the vision backend fails.
const DescriptionFailure = "Error generating description."

// Describer produces a natural-language description of an image.
type Describer interface {
	Describe(ctx context.Context, path, mimeType string) (string, error)
}

// AnthropicDescriber describes images with a Claude model.
type AnthropicDescriber struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
	prompt    string
}

// NewAnthropicDescriber creates a describer for apiKey using the vision
// settings in cfg.
func NewAnthropicDescriber(apiKey string, cfg types.VisionConfig) (*AnthropicDescriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	prompt := cfg.Prompt
	if prompt == "" {
		prompt = defaultVisionPrompt
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicDescriber{client: &client, model: cfg.Model, maxTokens: maxTokens, prompt: prompt}, nil
}

// Describe sends the image at path with the configured prompt.
func (d *AnthropicDescriber) Describe(ctx context.Context, path, mimeType string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}

	msg, err := d.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(d.model),
		MaxTokens: d.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(data)),
				anthropic.NewTextBlock(d.prompt),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// ImageConverter renders image metadata and, when vision is available, a
// generated description.
type ImageConverter struct {
	metadata  *metadata.Extractor
	describer Describer
	logger    *slog.Logger
}

// NewImage creates the image converter. The describer is used only when the
// vision capability is on.
func NewImage(deps Deps) *ImageConverter {
	c := &ImageConverter{
		metadata: deps.Extractor(metadata.ImageFields),
		logger:   deps.logger(),
	}
	if deps.Caps.Vision {
		c.describer = deps.Describer
	}
	return c
}

func (*ImageConverter) Name() string { return "image" }

func (*ImageConverter) Accepts(info types.StreamInfo) bool {
	return info.HasExtension(".jpg", ".jpeg", ".png") || info.HasMIMEType("image/jpeg", "image/png")
}

func (c *ImageConverter) Convert(ctx context.Context, src *convert.Source, info types.StreamInfo) (*types.Result, error) {
	var b strings.Builder
	b.WriteString(metadata.Render(c.metadata.Extract(ctx, src.Path, ""), c.metadata.Fields()))

	if c.describer != nil {
		desc, err := c.describer.Describe(ctx, src.Path, imageMIMEType(info))
		switch {
		case err != nil:
			c.logger.Warn("image description failed", "source", info.DisplayName(), "error", err)
			b.WriteString("\n# Description:\n")
			b.WriteString(DescriptionFailure)
			b.WriteString("\n")
		case desc != "":
			b.WriteString("\n# Description:\n")
			b.WriteString(desc)
			b.WriteString("\n")
		}
	}
	return &types.Result{Markdown: b.String()}, nil
}

func imageMIMEType(info types.StreamInfo) string {
	if info.HasMIMEType("image/png") || info.HasExtension(".png") {
		return "image/png"
	}
	return "image/jpeg"
}

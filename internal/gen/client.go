// Package gen wraps the Gemini API for text and image generation. Provider
// failure kinds the rest of the bot cares about are surfaced as sentinel
// errors, so callers never inspect wire-level status codes.
package gen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gembot/core/logger"
	"log/slog"

	"google.golang.org/genai"
)

var (
	// ErrRateLimited marks a provider-side "too many requests" rejection.
	ErrRateLimited = errors.New("generation rate limited")
	// ErrNoImage marks a successful call that produced no image payload.
	ErrNoImage = errors.New("no image in response")
)

// Config holds provider settings.
type Config struct {
	APIKey          string
	ChatModel       string
	ImageModel      string
	MaxOutputTokens int
	Temperature     float64
	Timeout         time.Duration
}

// ImageResult is one generated image with an optional provider caption.
type ImageResult struct {
	Bytes   []byte
	Caption string
}

// Client is a thin wrapper over the genai SDK.
type Client struct {
	client *genai.Client
	cfg    Config
}

// NewClient constructs a Gemini client against the public Gemini API backend.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gen: missing API key")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPOptions = genai.HTTPOptions{Timeout: genai.Ptr(cfg.Timeout)}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gen: create client: %w", err)
	}

	return &Client{client: client, cfg: cfg}, nil
}

// Chat generates a text reply for the prompt. An empty reply is not an error;
// the caller decides how to present it.
func (c *Client) Chat(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(c.cfg.Temperature)),
		MaxOutputTokens: int32(c.cfg.MaxOutputTokens),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.ChatModel, contents, genCfg)
	if err != nil {
		mapped := classifyError(err)
		logger.Error(ctx, "gen", "generate.fail",
			slog.String("model", c.cfg.ChatModel),
			slog.Int("prompt_chars", len(prompt)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
		return "", mapped
	}

	text := resp.Text()
	logger.Info(ctx, "gen", "generate.ok",
		slog.String("model", c.cfg.ChatModel),
		slog.Int("prompt_chars", len(prompt)),
		slog.Int("reply_chars", len(text)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return text, nil
}

// Image generates a single image for the prompt with the given aspect ratio.
// A call that succeeds without producing an image returns ErrNoImage.
func (c *Client) Image(ctx context.Context, prompt, aspectRatio string) (ImageResult, error) {
	start := time.Now()

	genCfg := &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	}
	if aspectRatio != "" {
		genCfg.AspectRatio = aspectRatio
	}

	resp, err := c.client.Models.GenerateImages(ctx, c.cfg.ImageModel, prompt, genCfg)
	if err != nil {
		mapped := classifyError(err)
		logger.Error(ctx, "gen", "image.fail",
			slog.String("model", c.cfg.ImageModel),
			slog.Int("prompt_chars", len(prompt)),
			slog.String("aspect_ratio", aspectRatio),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
		return ImageResult{}, mapped
	}

	res, ok := firstImage(resp)
	if !ok {
		logger.Warn(ctx, "gen", "image.empty",
			slog.String("model", c.cfg.ImageModel),
			slog.Int("prompt_chars", len(prompt)),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
		return ImageResult{}, ErrNoImage
	}

	logger.Info(ctx, "gen", "image.ok",
		slog.String("model", c.cfg.ImageModel),
		slog.Int("prompt_chars", len(prompt)),
		slog.String("aspect_ratio", aspectRatio),
		slog.Int("image_bytes", len(res.Bytes)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return res, nil
}

func firstImage(resp *genai.GenerateImagesResponse) (ImageResult, bool) {
	if resp == nil {
		return ImageResult{}, false
	}
	for _, img := range resp.GeneratedImages {
		if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
			continue
		}
		return ImageResult{Bytes: img.Image.ImageBytes, Caption: img.EnhancedPrompt}, true
	}
	return ImageResult{}, false
}

// classifyError maps provider errors to the package's abstract failure kinds.
// Anything unrecognized passes through wrapped.
func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED" {
			return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Status)
		}
	}
	return fmt.Errorf("gen: provider call: %w", err)
}

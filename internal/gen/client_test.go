package gen

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestClassifyErrorRateLimit(t *testing.T) {
	err := classifyError(genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota exceeded"})
	assert.True(t, errors.Is(err, ErrRateLimited))

	err = classifyError(genai.APIError{Code: 400, Status: "RESOURCE_EXHAUSTED"})
	assert.True(t, errors.Is(err, ErrRateLimited), "status string alone marks a rate limit")
}

func TestClassifyErrorGeneric(t *testing.T) {
	err := classifyError(genai.APIError{Code: 500, Status: "INTERNAL", Message: "boom"})
	assert.False(t, errors.Is(err, ErrRateLimited))

	wrapped := classifyError(fmt.Errorf("transport: %w", errors.New("connection reset")))
	assert.False(t, errors.Is(wrapped, ErrRateLimited))
	assert.Contains(t, wrapped.Error(), "connection reset")
}

func TestClassifyErrorWrappedAPIError(t *testing.T) {
	inner := genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}
	err := classifyError(fmt.Errorf("call failed: %w", inner))
	assert.True(t, errors.Is(err, ErrRateLimited))
}

func TestFirstImage(t *testing.T) {
	_, ok := firstImage(nil)
	assert.False(t, ok)

	_, ok = firstImage(&genai.GenerateImagesResponse{})
	assert.False(t, ok)

	resp := &genai.GenerateImagesResponse{
		GeneratedImages: []*genai.GeneratedImage{
			nil,
			{Image: &genai.Image{}},
			{Image: &genai.Image{ImageBytes: []byte{0x89, 0x50}}, EnhancedPrompt: "a red fox"},
		},
	}
	res, ok := firstImage(resp)
	require.True(t, ok)
	assert.Equal(t, []byte{0x89, 0x50}, res.Bytes)
	assert.Equal(t, "a red fox", res.Caption)
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{})
	require.Error(t, err)
}

//go:build integration

package generativeAI

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func integrationClient(t *testing.T) *AIClient {
	apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping integration test: GOOGLE_GEMINI_API_KEY not set")
	}
	c, err := NewAIClient(context.Background(), Options{APIKey: apiKey}, slog.Default())
	require.NoError(t, err)
	return c
}

func TestGenerateStructured_Integration(t *testing.T) {
	c := integrationClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	out, err := c.GenerateStructured(ctx, StructuredRequest{
		SystemInstruction: "You plan short city trips.",
		Prompt:            "Plan one day in Lisbon on 2025-06-01 with two activities.",
		Schema:            ItinerarySchema(false),
	})
	require.NoError(t, err)
	assert.Contains(t, out, "days")
}

func TestSynthesizeSpeech_Integration(t *testing.T) {
	c := integrationClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	audio, err := c.SynthesizeSpeech(ctx, "Welcome to the Belem Tower.", Voice{Locale: "en-GB"})
	require.NoError(t, err)
	assert.NotEmpty(t, audio.Data)
}

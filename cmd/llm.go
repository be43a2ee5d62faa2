package cmd

import (
	"os"

	"github.com/spf13/viper"

	"github.com/joescharf/pulse/internal/llm"
)

// newNarrator creates the narrative client from config/env, or returns nil if no API key is configured.
func newNarrator() *llm.Narrator {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil
	}
	return llm.NewNarrator(apiKey, viper.GetString("anthropic.model"), logger)
}

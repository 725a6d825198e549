package cmd

import (
	"context"
	"fmt"

	"github.com/lehigh-university-libraries/anatomist/internal/azureopenai"
	"github.com/lehigh-university-libraries/anatomist/internal/config"
	"github.com/lehigh-university-libraries/anatomist/internal/gemini"
	"github.com/lehigh-university-libraries/anatomist/internal/inference"
	"github.com/lehigh-university-libraries/anatomist/internal/ollama"
	"github.com/lehigh-university-libraries/anatomist/internal/organs"
	"github.com/lehigh-university-libraries/anatomist/internal/providers"
)

// newProvider builds the configured provider. The returned cleanup must be called when done.
func newProvider(ctx context.Context, cfg *config.Config) (providers.Provider, func(), error) {
	switch cfg.Provider {
	case config.ProviderAzure:
		p, err := azureopenai.New(azureopenai.Config{
			Endpoint:   cfg.Azure.Endpoint,
			APIKey:     cfg.Azure.APIKey,
			APIVersion: cfg.Azure.APIVersion,
		})
		if err != nil {
			return nil, nil, err
		}
		return p, func() {}, nil
	case config.ProviderGemini:
		p, err := gemini.New(ctx, cfg.Gemini.APIKey)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = p.Close() }, nil
	case config.ProviderOllama:
		return ollama.New(cfg.Ollama.URL), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

func newInference(provider providers.Provider, cfg *config.Config) *inference.Service {
	return inference.NewService(provider, inference.Config{
		TextModel:     cfg.TextModel(),
		VisionModel:   cfg.VisionModel(),
		Temperature:   cfg.Temperature,
		Timeout:       cfg.InferenceTimeout,
		MaxInputChars: cfg.InferenceMaxInputChars,
		RateLimit:     cfg.InferenceRateLimit,
	})
}

// newResolver loads the organ catalog from ORGAN_CATALOG, or the built-in one.
func newResolver(catalogPath, imageDir, match string) (*organs.Resolver, error) {
	precedence, err := organs.ParsePrecedence(match)
	if err != nil {
		return nil, err
	}

	catalog := organs.Default()
	if catalogPath != "" {
		catalog, err = organs.Load(catalogPath)
		if err != nil {
			return nil, err
		}
	}

	return organs.NewResolver(catalog, imageDir, precedence), nil
}

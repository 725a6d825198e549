package azureopenai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/lehigh-university-libraries/anatomist/internal/providers"
)

// Config holds the Azure OpenAI resource settings. Models in requests are deployment names.
type Config struct {
	Endpoint   string
	APIKey     string
	APIVersion string
}

// AzureOpenAI is a provider for Azure-hosted OpenAI deployments
type AzureOpenAI struct {
	client openai.Client
}

// New returns a new Azure OpenAI provider
func New(cfg Config, opts ...option.RequestOption) (*AzureOpenAI, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" || cfg.APIVersion == "" {
		return nil, fmt.Errorf("azure openai endpoint, api key and api version are required")
	}

	// retries are handled by the inference layer
	base := []option.RequestOption{
		azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
		azure.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}

	return &AzureOpenAI{client: openai.NewClient(append(base, opts...)...)}, nil
}

func (a *AzureOpenAI) Name() string {
	return "azure"
}

// Complete sends the prompt, and any images as data URLs, to a chat deployment
func (a *AzureOpenAI) Complete(ctx context.Context, req providers.Request) (string, error) {
	var message openai.ChatCompletionMessageParamUnion
	if len(req.Images) == 0 {
		message = openai.UserMessage(req.Prompt)
	} else {
		parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(req.Prompt)}
		for _, img := range req.Images {
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: dataURL(img),
			}))
		}
		message = openai.UserMessage(parts)
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       req.Model,
		Messages:    []openai.ChatCompletionMessageParamUnion{message},
		Temperature: openai.Float(req.Temperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &providers.StatusError{Provider: a.Name(), Code: apiErr.StatusCode, Body: apiErr.Message}
		}
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from Azure OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}

func dataURL(img []byte) string {
	return "data:" + http.DetectContentType(img) + ";base64," + base64.StdEncoding.EncodeToString(img)
}

package reviewer

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// apiSystemPrompt keeps API-backed panel members anonymous at the source.
const apiSystemPrompt = "You are serving on an anonymous peer review panel. " +
	"Follow the instructions in the request exactly and never disclose which model or vendor you are."

// APIReviewer invokes a model directly over the Anthropic Messages API.
type APIReviewer struct {
	name   string
	api    *anthropic.Client
	model  anthropic.Model
	keySet bool
}

// NewAPI builds an API capability. An empty apiKey falls back to the
// environment the SDK reads on its own.
func NewAPI(name, model, apiKey string) *APIReviewer {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &APIReviewer{
		name:   name,
		api:    &client,
		model:  anthropic.Model(model),
		keySet: apiKey != "" || os.Getenv("ANTHROPIC_API_KEY") != "",
	}
}

func (r *APIReviewer) Name() string { return r.name }

func (r *APIReviewer) Available() error {
	if !r.keySet {
		return fmt.Errorf("no Anthropic API key configured (set anthropic.api_key or ANTHROPIC_API_KEY)")
	}
	if r.model == "" {
		return fmt.Errorf("no model configured for API reviewer %s", r.name)
	}
	return nil
}

func (r *APIReviewer) Review(ctx context.Context, req Request) (string, error) {
	msg, err := r.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     r.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: apiSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}
	return text, nil
}

package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"healthmate/pkg"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// ErrEmptyResponse is returned when the model answers with no usable text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Message is a prior conversation turn passed as chat context.
// Role must be one of: "user" or "assistant".
type Message struct {
	Role    string
	Content string
}

// Schema constrains the reply to a JSON document of the given shape.
type Schema struct {
	Name       string
	Definition jsonschema.Definition
}

// Request is a single generation call.  Prompt is always sent as the final
// user message; History precedes it in chronological order.
type Request struct {
	SystemInstruction string
	Prompt            string
	History           []Message
	Attachment        *pkg.Attachment
	Schema            *Schema
}

// Client defines the single operation the assistant needs from a hosted
// model.  Implementations return the raw reply text.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Options configures an OpenAIClient.  BaseURL may point at any
// OpenAI-compatible endpoint.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// OpenAIClient calls an OpenAI-compatible chat completion API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIClient constructs an OpenAI-backed Gateway client and falls back
// to sensible defaults for unset options.
func NewOpenAIClient(opts Options) *OpenAIClient {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	model := opts.Model
	if model == "" {
		// default to a modern small model; can be overridden via env
		model = "gpt-4o-mini"
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: opts.Temperature,
	}
}

// Generate sends the request to the chat completion API and returns the
// assistant's response.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.SystemInstruction != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemInstruction})
	}
	for _, m := range req.History {
		role := m.Role
		if role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			// coerce anything unknown to user
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, userMessage(req.Prompt, req.Attachment))

	ccr := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
	}
	if req.Schema != nil {
		def := req.Schema.Definition
		ccr.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Schema.Name,
				Schema: &def,
			},
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, ccr)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// userMessage builds the final user message.  Images travel as inline data
// URLs and UTF-8 text files as a second text part.  Other files are named
// with their media type but their bytes are not sent, so the model can
// answer that the file is not supported.
func userMessage(prompt string, att *pkg.Attachment) openai.ChatCompletionMessage {
	if att == nil {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt}
	}
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: prompt}}
	switch {
	case strings.HasPrefix(att.MediaType, "image/"):
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    DataURL(att.MediaType, att.Data),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	case strings.HasPrefix(att.MediaType, "text/") && utf8.Valid(att.Data):
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: fmt.Sprintf("Attached file %q (%s):\n%s", att.Name, att.MediaType, att.Data),
		})
	default:
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: fmt.Sprintf("Attached file %q (%s, %d bytes). Its content cannot be read.", att.Name, att.MediaType, len(att.Data)),
		})
	}
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}
}

// DataURL encodes data as an RFC 2397 base64 data URL.
func DataURL(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

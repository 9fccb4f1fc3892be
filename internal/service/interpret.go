package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pictolab/pictoreco/internal/domain"
	"github.com/pictolab/pictoreco/internal/logger"
)

const interpretSystemPrompt = `You are a communication assistant for AAC (augmentative and alternative communication) users.
The user selected pictogram cards, listed in selection order. Compose one short, natural first-person sentence expressing what the user wants to say.
Use only the meaning carried by the cards and the situation. Do not add unrelated content. Answer with the sentence only.`

// InterpretConfig holds configuration for the interpretation service.
type InterpretConfig struct {
	Enabled bool
	Model   string
	APIKey  string
	BaseURL string
}

// InterpretService turns a selected card combination into a natural-language
// utterance through an OpenAI-compatible chat model. Disabled or failing
// calls fall back to joining the card labels, so the caller always gets a
// speakable string.
type InterpretService struct {
	client   *resty.Client
	model    string
	endpoint string
	enabled  bool
	log      *logger.Logger
}

// NewInterpretService creates an interpretation service.
// Parameters:
//   - cfg: interpretation configuration; disabled without an API key.
//   - log: logger instance.
//
// Returns:
//   - *InterpretService: initialized service.
func NewInterpretService(cfg *InterpretConfig, log *logger.Logger) *InterpretService {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(60 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &InterpretService{
		client:   client,
		model:    cfg.Model,
		endpoint: strings.TrimSuffix(baseURL, "/") + "/chat/completions",
		enabled:  cfg.Enabled && cfg.APIKey != "",
		log:      log,
	}
}

// IsEnabled reports whether the chat model is configured.
func (s *InterpretService) IsEnabled() bool {
	return s.enabled
}

// OpenAI-compatible Chat Completion API request/response structures
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Interpret composes an utterance from selected card labels and the board
// situation.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - labels: card labels in selection order; must be non-empty.
//   - bctx: situational signal; may be nil.
//
// Returns:
//   - string: one natural-language sentence.
//   - error: non-nil only when no labels were given.
func (s *InterpretService) Interpret(ctx context.Context, labels []string, bctx *domain.BoardContext) (string, error) {
	if len(labels) == 0 {
		return "", fmt.Errorf("no card labels to interpret")
	}
	if !s.enabled {
		return fallbackUtterance(labels), nil
	}

	utterance, err := s.chatInterpret(ctx, labels, bctx)
	if err != nil {
		s.log.WithError(err).Warn("Interpretation model failed, using label join fallback")
		return fallbackUtterance(labels), nil
	}
	return utterance, nil
}

func (s *InterpretService) chatInterpret(ctx context.Context, labels []string, bctx *domain.BoardContext) (string, error) {
	var user strings.Builder
	user.WriteString("Selected cards: ")
	user.WriteString(strings.Join(labels, ", "))
	if bctx != nil {
		if bctx.Place != "" {
			fmt.Fprintf(&user, "\nPlace: %s", bctx.Place)
		}
		if bctx.Activity != "" {
			fmt.Fprintf(&user, "\nActivity: %s", bctx.Activity)
		}
		if bctx.Partner != "" {
			fmt.Fprintf(&user, "\nTalking to: %s", bctx.Partner)
		}
	}

	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: interpretSystemPrompt},
			{Role: "user", Content: user.String()},
		},
		MaxTokens: 200,
	}

	var resp chatResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call chat API: %w", err)
	}
	if httpResp.StatusCode() != 200 {
		if resp.Error != nil {
			return "", fmt.Errorf("chat API error: %s (%s)", resp.Error.Message, resp.Error.Type)
		}
		return "", fmt.Errorf("chat API error: status %d", httpResp.StatusCode())
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}

	utterance := strings.TrimSpace(resp.Choices[0].Message.Content)
	if utterance == "" {
		return "", fmt.Errorf("chat API returned an empty utterance")
	}
	return utterance, nil
}

// fallbackUtterance joins labels into a minimal telegraphic utterance.
func fallbackUtterance(labels []string) string {
	return strings.Join(labels, " ")
}

package sentiment

import (
	"context"
	"fmt"
	"strings"
	"time"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"portfolio-risk-lab/internal/domain"
)

const openaiSystemPrompt = `You are a financial sentiment classifier. ` +
	`Classify the sentiment of the given financial news text toward the ` +
	`mentioned company or market. Reply with exactly one word: ` +
	`positive, negative, or neutral.`

// OpenAISource classifies text with a chat completion model. It is the
// primary tier; callers wrap it in a TieredSource so a lexicon scorer can
// answer when the API is unreachable.
type OpenAISource struct {
	cli     oa.Client
	model   string
	timeout time.Duration
}

// OpenAIOption configures an OpenAISource.
type OpenAIOption func(*OpenAISource)

// WithModel overrides the default completion model.
func WithModel(model string) OpenAIOption {
	return func(s *OpenAISource) {
		s.model = model
	}
}

// WithTimeout bounds each classification call.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(s *OpenAISource) {
		s.timeout = d
	}
}

// NewOpenAISource creates a classifier backed by the OpenAI API.
func NewOpenAISource(apiKey string, opts ...OpenAIOption) *OpenAISource {
	s := &OpenAISource{
		cli:     oa.NewClient(option.WithAPIKey(apiKey)),
		model:   "gpt-4o-mini",
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OpenAISource) Name() string { return "openai" }

// Analyze sends the text to the chat completions endpoint and maps the
// one-word reply to a score: positive=+1, negative=-1, neutral=0.
func (s *OpenAISource) Analyze(ctx context.Context, text string) (*domain.SentimentRecord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: s.model,
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(openaiSystemPrompt),
			oa.UserMessage(snippet(text)),
		},
		MaxTokens:   oa.Int(5),
		Temperature: oa.Float(0),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrUnavailable)
	}

	label, score, err := parseCompletionLabel(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return &domain.SentimentRecord{
		Source:     s.Name(),
		Score:      score,
		Confidence: 0.9,
		Label:      label,
		Snippet:    snippet(text),
	}, nil
}

func parseCompletionLabel(content string) (string, float64, error) {
	reply := strings.ToLower(strings.TrimSpace(content))
	reply = strings.Trim(reply, ".!\"'")
	switch {
	case strings.HasPrefix(reply, "positive"):
		return domain.SentimentPositive, 1, nil
	case strings.HasPrefix(reply, "negative"):
		return domain.SentimentNegative, -1, nil
	case strings.HasPrefix(reply, "neutral"):
		return domain.SentimentNeutral, 0, nil
	}
	return "", 0, fmt.Errorf("%w: unexpected completion %q", ErrUnavailable, reply)
}

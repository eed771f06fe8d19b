package questionnaire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/sirupsen/logrus"
)

const (
	minOptions     = 4
	requestTimeout = 30 * time.Second
	pingTimeout    = 10 * time.Second
	pingPrompt     = "Say 'Perplexity AI connection successful!' in exactly those words."
)

// ErrNotConfigured is returned by Ping when no API key was supplied.
var ErrNotConfigured = errors.New("PERPLEXITY_API_KEY is not set")

// Generator produces the next assessment question from an OpenAI-compatible
// chat completion endpoint, falling back to a fixed bank on any failure.
type Generator struct {
	client *openai.Client
	model  shared.ChatModel
	bank   Bank
}

// NewGenerator returns a Generator. An empty apiKey yields a generator that
// only serves the fallback bank.
func NewGenerator(apiKey, baseURL, model string, opts ...option.RequestOption) *Generator {
	g := &Generator{model: shared.ChatModel(model), bank: DefaultBank()}
	if apiKey == "" {
		return g
	}

	all := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(requestTimeout),
	}
	if baseURL != "" {
		all = append(all, option.WithBaseURL(baseURL))
	}
	all = append(all, opts...)

	client := openai.NewClient(all...)
	g.client = &client
	return g
}

func (g *Generator) Configured() bool { return g.client != nil }

// Next never fails: the caller always gets a question.
func (g *Generator) Next(ctx context.Context, history []HistoryEntry, questionNumber, total int) Question {
	q, err := g.generate(ctx, history, questionNumber, total)
	if err != nil {
		logrus.WithError(err).WithField("question_number", questionNumber).Warn("using fallback question")
		return g.bank.Pick(questionNumber)
	}
	return q
}

func (g *Generator) generate(ctx context.Context, history []HistoryEntry, questionNumber, total int) (Question, error) {
	if g.client == nil {
		return Question{}, ErrNotConfigured
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildUserPrompt(questionNumber, total, BuildConversationContext(history))),
		},
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(600),
	})
	if err != nil {
		return Question{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Question{}, errors.New("chat completion returned no choices")
	}

	return ParseQuestion(resp.Choices[0].Message.Content)
}

// ParseQuestion decodes a model reply, tolerating a surrounding Markdown code
// fence, and checks it has a question and at least four options.
func ParseQuestion(text string) (Question, error) {
	text = stripFence(strings.TrimSpace(text))

	var q Question
	if err := json.Unmarshal([]byte(text), &q); err != nil {
		return Question{}, fmt.Errorf("decode question: %w", err)
	}
	if strings.TrimSpace(q.Question) == "" {
		return Question{}, errors.New("reply has no question")
	}
	if len(q.Options) < minOptions {
		return Question{}, fmt.Errorf("reply has %d options, need %d", len(q.Options), minOptions)
	}
	if q.Type == "" {
		q.Type = scaleType
	}
	if q.FollowUpAreas == nil {
		q.FollowUpAreas = []string{}
	}
	return q, nil
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	parts := strings.Split(text, "```")
	if len(parts) < 2 {
		return text
	}
	body := strings.TrimPrefix(parts[1], "json")
	return strings.TrimSpace(body)
}

// Ping performs a minimal completion and returns the model's reply.
func (g *Generator) Ping(ctx context.Context) (string, error) {
	if g.client == nil {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(pingPrompt),
		},
		MaxTokens: openai.Int(50),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

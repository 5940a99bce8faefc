package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/courtside/internal/domain"
	"github.com/kailas-cloud/courtside/internal/domain/analysis"
	"github.com/kailas-cloud/courtside/internal/domain/match"
	"github.com/kailas-cloud/courtside/internal/metrics"
)

const systemPrompt = "You are a tennis expert and historian. Answer using only the match data " +
	"and statistics provided. Give exact results with scores for specific matches, " +
	"and number each part when the question asks about several items."

// AnswererConfig extends Config with chat completion settings.
type AnswererConfig struct {
	Config
	Temperature float32
	MaxTokens   int
}

// Answerer composes natural-language answers with a chat completion model.
type Answerer struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewAnswerer creates a chat completion answerer.
func NewAnswerer(cfg *AnswererConfig) *Answerer {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{
		client:      newClient(&cfg.Config),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Answer sends the question with the retrieved records and their aggregate
// statistics as context. Failures wrap domain.ErrAnswerFailure.
func (a *Answerer) Answer(
	ctx context.Context, question string, records []match.Record, report analysis.Report,
) (string, error) {
	userMessage, err := buildUserMessage(question, records, report)
	if err != nil {
		return "", fmt.Errorf("build context: %w: %w", domain.ErrAnswerFailure, err)
	}

	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.AnswerRequestsTotal.WithLabelValues(a.model, "error").Inc()
		return "", parseAPIError("chat", err, domain.ErrAnswerFailure)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.AnswerRequestsTotal.WithLabelValues(a.model, "error").Inc()
		return "", fmt.Errorf("empty chat completion: %w", domain.ErrAnswerFailure)
	}

	metrics.AnswerRequestsTotal.WithLabelValues(a.model, "success").Inc()
	metrics.AnswerRequestDuration.WithLabelValues(a.model).Observe(duration.Seconds())
	metrics.AnswerTokensTotal.WithLabelValues(a.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.AnswerTokensTotal.WithLabelValues(a.model, "completion").Add(float64(resp.Usage.CompletionTokens))

	a.logger.Debug("Chat completion done",
		zap.String("model", a.model),
		zap.Duration("duration", duration),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)

	return resp.Choices[0].Message.Content, nil
}

// contextMatch is the per-match view sent to the model; vectors and ids stay out.
type contextMatch struct {
	Description string        `json:"description"`
	Tournament  string        `json:"tournament"`
	Date        string        `json:"date,omitempty"`
	Surface     match.Surface `json:"surface"`
	Round       match.Round   `json:"round"`
	Winner      string        `json:"winner"`
	Loser       string        `json:"loser"`
	Score       string        `json:"score"`
	Stats       match.Stats   `json:"stats"`
}

func buildUserMessage(question string, records []match.Record, report analysis.Report) (string, error) {
	matches := make([]contextMatch, len(records))
	for i := range records {
		r := &records[i]
		matches[i] = contextMatch{
			Description: r.Description,
			Tournament:  r.TournamentName,
			Date:        r.TournamentDate,
			Surface:     r.Surface,
			Round:       r.Round,
			Winner:      r.WinnerName,
			Loser:       r.LoserName,
			Score:       r.Score,
			Stats:       r.Stats,
		}
	}

	matchJSON, err := json.MarshalIndent(matches, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal matches: %w", err)
	}
	statsJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal analysis: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\n", question)
	fmt.Fprintf(&b, "Available match data:\n%s\n\n", matchJSON)
	fmt.Fprintf(&b, "Additional statistics:\n%s\n", statsJSON)
	return b.String(), nil
}

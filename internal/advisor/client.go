package advisor

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/camuig/miner-advisor/internal/config"
	"github.com/camuig/miner-advisor/internal/logger"
)

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	client *openai.Client
	model  string
	cfg    *config.Config
	logger *logger.Logger
}

func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	ocfg := openai.DefaultConfig(cfg.Advisor.APIKey)
	ocfg.BaseURL = cfg.Advisor.BaseURL

	return &Client{
		client: openai.NewClientWithConfig(ocfg),
		model:  cfg.Advisor.Model,
		cfg:    cfg,
		logger: log,
	}
}

// Recommend asks for a single ticker's BUY/SELL/HOLD verdict.
func (c *Client) Recommend(ctx context.Context, ticker, signalsJSON, btcTrend, macroSummary string) (*Recommendation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.AdvisorTimeout())
	defer cancel()

	prompt := BuildTickerPrompt(ticker, signalsJSON, btcTrend, macroSummary)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("advisor API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("advisor returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	c.logger.Debug("advisor raw response", "ticker", ticker, "content", raw)

	rec, err := ParseRecommendation(raw)
	if err != nil {
		return nil, fmt.Errorf("parse advisor response for %s: %w", ticker, err)
	}
	return rec, nil
}

// MacroBias asks for the one-sentence macro environment summary shown above
// the recommendation list.
func (c *Client) MacroBias(ctx context.Context, macroSummary string, recCounts map[string]int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.AdvisorTimeout())
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: 80,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildMacroBiasPrompt(macroSummary, recCounts)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("macro bias API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("macro bias returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

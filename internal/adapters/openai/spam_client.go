package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/growthspect/contact-intake/internal/core"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// SpamClient is an implementation of the SpamClient port using OpenAI.
// It screens contact form submissions for automated abuse before any
// mail is sent on their behalf.
type SpamClient struct {
	client         *openai.Client
	modelName      string
	maxTokens      int
	temperature    float32
	maxMessageSize int
	logger         *zap.Logger
	promptFormat   string
}

// spamScoreResponse represents the structured response from the model
type spamScoreResponse struct {
	IsSpam      bool    `json:"is_spam"`
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// NewSpamClient creates a new OpenAI spam client
func NewSpamClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	maxMessageSize int,
	logger *zap.Logger,
) (*SpamClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is not configured")
	}

	return &SpamClient{
		client:         openai.NewClient(apiKey),
		modelName:      modelName,
		maxTokens:      maxTokens,
		temperature:    temperature,
		maxMessageSize: maxMessageSize,
		logger:         logger,
		promptFormat: `You are screening contact form submissions on a marketing website for spam.
Analyze the following submission and respond with a JSON object containing:
- is_spam: boolean (true if this looks like an automated or abusive submission)
- score: number between 0 and 1 (higher means more likely to be spam)
- confidence: number between 0 and 1 (how confident you are)
- explanation: string (brief reason)

Submission:
Name: %s %s
Email: %s
Company: %s
Message:
%s

Respond only with the JSON object and nothing else.`,
	}, nil
}

// truncateMessage caps the free-text message sent to the model
func (c *SpamClient) truncateMessage(message string) string {
	if c.maxMessageSize <= 0 || len(message) <= c.maxMessageSize {
		return message
	}

	truncated := message[:c.maxMessageSize]
	c.logger.Debug("Submission message truncated",
		zap.Int("original_size", len(message)),
		zap.Int("max_size", c.maxMessageSize))

	return truncated + "\n[... truncated ...]"
}

// ScoreSubmission analyzes a submission and returns a spam score
func (c *SpamClient) ScoreSubmission(ctx context.Context, submission *core.ContactSubmission) (*core.SpamScore, error) {
	prompt := fmt.Sprintf(c.promptFormat,
		submission.FirstName,
		submission.LastName,
		submission.Email,
		submission.Company,
		c.truncateMessage(submission.Message))

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a spam detection system. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: "json"}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	responseText := resp.Choices[0].Message.Content

	var scoreResponse spamScoreResponse
	if err := json.Unmarshal([]byte(responseText), &scoreResponse); err != nil {
		// Models sometimes wrap the JSON in prose; try the outermost braces.
		jsonStart := -1
		jsonEnd := -1
		for i := 0; i < len(responseText); i++ {
			if responseText[i] == '{' {
				jsonStart = i
				break
			}
		}
		for i := len(responseText) - 1; i >= 0; i-- {
			if responseText[i] == '}' {
				jsonEnd = i + 1
				break
			}
		}
		if jsonStart < 0 || jsonEnd <= jsonStart {
			return nil, fmt.Errorf("failed to extract JSON from model response: %w", err)
		}
		if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd]), &scoreResponse); err != nil {
			return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
		}
	}

	return &core.SpamScore{
		IsSpam:      scoreResponse.IsSpam,
		Score:       scoreResponse.Score,
		Confidence:  scoreResponse.Confidence,
		Explanation: scoreResponse.Explanation,
		ModelUsed:   c.modelName,
		ScoredAt:    time.Now(),
	}, nil
}

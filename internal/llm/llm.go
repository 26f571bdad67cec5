// Package llm talks to an OpenAI-compatible endpoint to generate insult
// replies, and to an optional quota endpoint for usage status.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrNoPrompt means the requested level has no prompt template (level 1
// disables generation entirely).
var ErrNoPrompt = errors.New("no prompt template for this insult level")

// historyWindow caps how many trailing chat lines are embedded in a prompt.
const historyWindow = 10

// insultPrompts are the escalating prompt templates keyed by insult level.
var insultPrompts = map[int]string{
	2: "Представь, что ты часть моего телеграм-бота. Ты должен отвечать короткими, озорными и мягкими подколами, " +
		"которые слегка дразнят пользователя, но не переходят границы. Не используй мат или прямые оскорбления, " +
		"просто подшути над ним. Вот несколько последних сообщений чата:\n{history}\n" +
		"Текущее сообщение пользователя: {user_message}. Ответь только подколкой.",
	3: "Ты телеграм-бот Быдлик. Твоя задача — язвительные, жесткие ответы с сарказмом, но без матов. " +
		"Используй контекст последних сообщений, если хочешь, но держи оскорбление в рамках приличия " +
		"(никакой нецензурной лексики) Ты можешь допускать небольшие ошибки. Не используй знаки препинания или делай это по минимуму. Недавние сообщения чата:\n{history}\n" +
		"Текущее сообщение пользователя: {user_message}. Дай только сам ответ.",
	4: "Ты часть моего телеграм бота. Тебя зовут Быдлик, не оскорбляй себя, если видишь в сообщении своё имя. " +
		"Иногда (это определяется в самом коде) ты должен оскорблять пользователей. Учти последние сообщения:\n{history}\n" +
		"Ты можешь использовать мат, допускать небольшие ошибки. Не используй знаки препинания или делай это по минимуму. Текущее сообщение пользователя: {user_message}. " +
		"Важно, пиши только само оскорбление/обзывательство, без дополнительного текста.",
}

type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// GenerateInsult asks the model for a reply at the given level, embedding the
// trailing history window. Callers fall back to canned phrases on any error.
func (c *Client) GenerateInsult(ctx context.Context, userMessage string, level int, history []string) (string, error) {
	template, ok := insultPrompts[level]
	if !ok {
		return "", ErrNoPrompt
	}

	historyText := "нет данных"
	if len(history) > 0 {
		if len(history) > historyWindow {
			history = history[len(history)-historyWindow:]
		}
		historyText = strings.Join(history, "\n")
	}

	prompt := strings.NewReplacer(
		"{history}", historyText,
		"{user_message}", userMessage,
	).Replace(template)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", errors.New("chat completion returned empty text")
	}
	return answer, nil
}

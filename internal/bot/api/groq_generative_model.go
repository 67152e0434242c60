package api

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
)

type GroqAPI struct {
	client      openai.Client // Клиент для взаимодействия с API
	modelName   string        // Версия генеративной модели
	maxTokens   int           // Максимальное количество токенов
	temperature float32       // Температура для управления креативностью
}

// NewGroqAPI создает новый экземпляр GroqAPI поверх OpenAI-совместимого endpoint'а Groq.
func NewGroqAPI(apiKey, modelName string, maxTokens int, temperature float32) (*GroqAPI, error) {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(GroqAPIEndpoint),
	)

	return &GroqAPI{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

// GenerateTextMsg генерирует текст на основе переданного запроса.
func (g *GroqAPI) GenerateTextMsg(text string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(text),
		},
		Temperature: openai.Float(float64(g.temperature)),
		TopP:        openai.Float(0.95),
	}
	if g.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(g.maxTokens))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		err = fmt.Errorf("failed to create request: %w", err)
		logrus.WithError(err).Errorf("Error creating %s request", g.modelName)
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from Groq API")
	}

	return resp.Choices[0].Message.Content, nil
}

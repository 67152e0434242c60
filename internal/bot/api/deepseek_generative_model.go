package api

import (
	"context"
	"fmt"
	"time"

	"github.com/go-deepseek/deepseek"
	"github.com/go-deepseek/deepseek/request"
	"github.com/sirupsen/logrus"
)

type DeepSeekAPI struct {
	client      deepseek.Client // Клиент для взаимодействия с API
	modelName   string          // Версия генеративной модели
	maxTokens   int             // Максимальное количество токенов (опционально)
	temperature float32         // Температура для управления креативностью (опционально)
}

// NewDeepSeekAPI создает новый экземпляр DeepSeekAPI
func NewDeepSeekAPI(apiKey string, modelName string, maxTokens int, temperature float32) (*DeepSeekAPI, error) {
	client, err := deepseek.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create DeepSeek client: %w", err)
	}

	return &DeepSeekAPI{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

// GenerateTextMsg генерирует текст на основе переданного запроса
func (d *DeepSeekAPI) GenerateTextMsg(text string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	chatReq := &request.ChatCompletionsRequest{
		Model:  d.modelName,
		Stream: false,
		Messages: []*request.Message{
			{Role: "user", Content: text},
		},
		MaxTokens:   d.maxTokens,
		Temperature: &d.temperature,
	}

	resp, err := d.client.CallChatCompletionsChat(ctx, chatReq)
	if err != nil {
		err = fmt.Errorf("failed to create request: %w", err)
		logrus.WithError(err).Error("Error creating DeepSeek request")
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from DeepSeek API")
	}

	return resp.Choices[0].Message.Content, nil
}

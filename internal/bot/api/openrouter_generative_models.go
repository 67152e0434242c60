package api

import (
	"fmt"

	"github.com/sirupsen/logrus"
	openrouterapigo "github.com/wojtess/openrouter-api-go"
)

type OpenRouterAPI struct {
	client      *openrouterapigo.OpenRouterClient // Клиент для взаимодействия с API
	modelName   string                            // Версия генеративной модели
	maxTokens   int                               // Максимальное количество токенов (опционально)
	temperature float32                           // Температура для управления креативностью (опционально)
}

// NewOpenRouterAPI создает новый экземпляр OpenRouterAPI
func NewOpenRouterAPI(apiKey string, modelName string, maxTokens int, temperature float32) (*OpenRouterAPI, error) {
	client := openrouterapigo.NewOpenRouterClient(apiKey)

	return &OpenRouterAPI{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

// GenerateTextMsg генерирует текст на основе переданного запроса
func (d *OpenRouterAPI) GenerateTextMsg(text string) (string, error) {
	chatReq := openrouterapigo.Request{
		Model: d.modelName,
		Messages: []openrouterapigo.MessageRequest{
			{Role: openrouterapigo.RoleUser, Content: openrouterapigo.TextContent(text)},
		},
	}

	resp, err := d.client.FetchChatCompletions(chatReq)
	if err != nil {
		err = fmt.Errorf("failed to create request: %w", err)
		logrus.WithError(err).Errorf("Error creating %s request", d.modelName)
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenRouter API")
	}

	return resp.Choices[0].Message.Content, nil
}

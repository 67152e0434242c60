package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexsedov/NeuroAssistBot/internal/bot/models"
	"github.com/sirupsen/logrus"
)

const fluxTask = "FLUX.1 [schnell]"

// FluxAPI генерирует изображения через gradio space с моделью FLUX.
// Gradio API двухшаговый: POST с промптом возвращает event id,
// GET по event id отдаёт поток событий, последняя data-строка — результат.
type FluxAPI struct {
	spaceURL string       // Базовый URL gradio space
	client   *http.Client // HTTP client
}

type fluxCallRequest struct {
	Data []string `json:"data"`
}

type fluxCallResponse struct {
	EventID string `json:"event_id"`
}

// fluxFile — результат-файл в ответе gradio (может прийти вместо строки-URL).
type fluxFile struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// NewFluxAPI создает новый экземпляр FluxAPI.
func NewFluxAPI(spaceURL string) *FluxAPI {
	return &FluxAPI{
		spaceURL: strings.TrimRight(spaceURL, "/"),
		// Генерация занимает десятки секунд, таймаут с запасом.
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

// GenerateImage запускает генерацию и возвращает ссылку на готовое изображение.
func (f *FluxAPI) GenerateImage(prompt string) (*models.GeneratedImage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	eventID, err := f.submit(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return f.awaitResult(ctx, eventID)
}

// submit отправляет промпт и возвращает event id задачи.
func (f *FluxAPI) submit(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(fluxCallRequest{Data: []string{prompt, fluxTask}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.spaceURL+"/call/flip_text", bytes.NewReader(body))
	if err != nil {
		err = fmt.Errorf("failed to create request with ctx: %w", err)
		logrus.Error(err)
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		logrus.WithError(err).Error("Image generation submit failed")
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image generation service returned: %d", resp.StatusCode)
	}

	var call fluxCallResponse
	if err = json.NewDecoder(resp.Body).Decode(&call); err != nil {
		return "", fmt.Errorf("failed to decode event id: %w", err)
	}
	if call.EventID == "" {
		return "", fmt.Errorf("empty event id returned")
	}
	return call.EventID, nil
}

// awaitResult читает поток событий задачи и извлекает результат из последней data-строки.
func (f *FluxAPI) awaitResult(ctx context.Context, eventID string) (*models.GeneratedImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.spaceURL+"/call/flip_text/"+eventID, nil)
	if err != nil {
		err = fmt.Errorf("failed to create request with ctx: %w", err)
		logrus.Error(err)
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		logrus.WithError(err).Error("Image generation poll failed")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image generation service returned: %d", resp.StatusCode)
	}

	var lastData string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data:") {
			lastData = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read generation events: %w", err)
	}
	if lastData == "" || lastData == "null" {
		return nil, fmt.Errorf("no result returned for event %s", eventID)
	}

	return parseFluxResult(lastData)
}

// parseFluxResult разбирает data-строку: элемент массива — либо строка-URL,
// либо объект файла с полем url.
func parseFluxResult(data string) (*models.GeneratedImage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal generation result: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("empty generation result")
	}

	var asString string
	if err := json.Unmarshal(items[0], &asString); err == nil {
		if strings.HasPrefix(asString, "http://") || strings.HasPrefix(asString, "https://") {
			return &models.GeneratedImage{URL: asString}, nil
		}
		return nil, fmt.Errorf("unexpected generation result: %s", asString)
	}

	var asFile fluxFile
	if err := json.Unmarshal(items[0], &asFile); err == nil && asFile.URL != "" {
		return &models.GeneratedImage{URL: asFile.URL}, nil
	}

	return nil, fmt.Errorf("unrecognized generation result format")
}

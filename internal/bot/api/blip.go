package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrModelWarmingUp возвращается, когда inference-модель ещё загружается (HTTP 503).
var ErrModelWarmingUp = errors.New("captioning model is warming up")

// BlipAPI обращается к HuggingFace inference API для описания изображений.
type BlipAPI struct {
	endpoint string       // URL модели image captioning
	token    string       // Bearer-токен HuggingFace
	client   *http.Client // HTTP client
}

// captionResponse — один элемент ответа inference API.
type captionResponse struct {
	GeneratedText string `json:"generated_text"`
}

// NewBlipAPI создает новый экземпляр BlipAPI.
func NewBlipAPI(endpoint, token string) *BlipAPI {
	return &BlipAPI{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// DescribeImage отправляет байты изображения и возвращает английское описание.
func (b *BlipAPI) DescribeImage(image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(image))
	if err != nil {
		err = fmt.Errorf("failed to create request with ctx: %w", err)
		logrus.Error(err)
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+b.token)

	resp, err := b.client.Do(req)
	if err != nil {
		logrus.WithError(err).Error("Captioning request failed")
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return "", ErrModelWarmingUp
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("captioning service returned: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read captioning response: %w", err)
	}

	var captions []captionResponse
	if err = json.Unmarshal(data, &captions); err != nil {
		return "", fmt.Errorf("failed to unmarshal captioning response: %w", err)
	}
	if len(captions) == 0 || captions[0].GeneratedText == "" {
		return "", fmt.Errorf("empty caption returned")
	}

	return captions[0].GeneratedText, nil
}

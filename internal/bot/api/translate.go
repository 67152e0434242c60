package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// YandexAPI переводит описания изображений на русский через Yandex Translate API.
type YandexAPI struct {
	token        string       // Authentication token for API requests.
	endTranslate string       // Endpoint URL for the Translate API.
	endDetect    string       // Endpoint URL for the Detect Language API.
	client       *http.Client // HTTP client
}

// TranslateRequest is the top-level structure for the translation request.
type TranslateRequest struct {
	TargetLanguageCode string   `json:"targetLanguageCode"` // Target language code (e.g., "ru").
	Format             string   `json:"format"`             // Format of the text (e.g., "PLAIN_TEXT").
	Texts              []string `json:"texts"`              // List of texts to translate.
}

// Translation represents a single translation result.
type Translation struct {
	Text                 string `json:"text"`
	DetectedLanguageCode string `json:"detectedLanguageCode"`
}

// TranslateResponse contains the response from the Translate API.
type TranslateResponse struct {
	Translations []Translation `json:"translations"`
}

// DetectLangReq is the structure for a language detection request.
type DetectLangReq struct {
	Text              string   `json:"text"`
	LanguageCodeHints []string `json:"language"`
}

// DetectLangRes contains the response from the Detect Language API.
type DetectLangRes struct {
	LanguageCode string `json:"languageCode"`
}

// NewYandexAPI creates a new instance of YandexAPI with the specified endpoints and token.
func NewYandexAPI(endTranslate, endDetect, token string) *YandexAPI {
	return &YandexAPI{
		endTranslate: endTranslate,
		endDetect:    endDetect,
		token:        token,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// TranslateAPI translates the given text to Russian, whatever the source language is.
// Returns the translated text or an error if the request fails.
func (y *YandexAPI) TranslateAPI(text string) (string, error) {
	reqBody := TranslateRequest{
		TargetLanguageCode: "ru",
		Format:             "PLAIN_TEXT",
		Texts:              []string{text},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		err = fmt.Errorf("failed to marshal request body: %w", err)
		logrus.WithError(err).Error("Error preparing TranslateAPI request")
		return "", err
	}

	data, err := y.post(y.endTranslate, jsonBody)
	if err != nil {
		return "", err
	}

	var response TranslateResponse
	if err = json.Unmarshal(data, &response); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal TranslateAPI response")
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(response.Translations) == 0 {
		err = fmt.Errorf("no translations returned")
		logrus.WithError(err).Error("TranslateAPI response is empty")
		return "", err
	}

	return response.Translations[0].Text, nil
}

// DetectLangAPI detects the language of the given text.
// Returns the detected language code or an error if the request fails.
func (y *YandexAPI) DetectLangAPI(text string) (string, error) {
	reqBody := DetectLangReq{
		Text:              text,
		LanguageCodeHints: []string{"ru", "en"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		err = fmt.Errorf("failed to marshal request body: %w", err)
		logrus.WithError(err).Error("Error preparing DetectLangAPI request")
		return "", err
	}

	data, err := y.post(y.endDetect, jsonBody)
	if err != nil {
		return "", err
	}

	var response DetectLangRes
	if err = json.Unmarshal(data, &response); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal DetectLangAPI response")
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if response.LanguageCode == "" {
		err = fmt.Errorf("no language detected")
		logrus.WithError(err).Error("DetectLangAPI returned empty language code")
		return "", err
	}

	return response.LanguageCode, nil
}

// post executes an authorized JSON POST and returns the raw response body.
func (y *YandexAPI) post(endpoint string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), y.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		err = fmt.Errorf("failed to create request: %w", err)
		logrus.WithError(err).Error("Error creating Yandex API request")
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", y.token)

	res, err := y.client.Do(req)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to execute request to %s", endpoint)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err = res.Body.Close(); err != nil {
			logrus.WithError(err).Errorf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		logrus.WithError(err).Error("Failed to read Yandex API response")
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		err = fmt.Errorf("unexpected status code: %d, body: %s", res.StatusCode, string(data))
		logrus.WithError(err).Errorf("Yandex API failed with status: %s", res.Status)
		return nil, err
	}

	return data, nil
}

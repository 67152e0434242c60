// Package api provides clients for the external AI services the bot delegates to:
// Groq speech and chat endpoints, OpenRouter and DeepSeek chat completions,
// HuggingFace image captioning, a gradio image generation space and the
// Yandex Translate API.
package api

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alexsedov/NeuroAssistBot/internal/bot/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
)

// GroqAPIEndpoint — OpenAI-совместимый endpoint Groq.
const GroqAPIEndpoint = "https://api.groq.com/openai/v1"

// SpeechAPI обращается к аудио-endpoint'ам Groq: распознавание речи (whisper)
// и синтез речи (playai-tts).
type SpeechAPI struct {
	client   openai.Client // Клиент для взаимодействия с API
	sttModel string        // Модель распознавания речи
	ttsModel string        // Модель синтеза речи
}

// NewSpeechAPI создает новый экземпляр SpeechAPI.
func NewSpeechAPI(apiKey, sttModel, ttsModel string) *SpeechAPI {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(GroqAPIEndpoint),
	)
	return &SpeechAPI{
		client:   client,
		sttModel: sttModel,
		ttsModel: ttsModel,
	}
}

// Transcribe распознаёт речь из аудиофайла по указанному пути.
func (s *SpeechAPI) Transcribe(path string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file %s: %w", path, err)
	}
	defer func() {
		if err = file.Close(); err != nil {
			logrus.WithError(err).Errorf("Failed to close audio file %s", path)
		}
	}()

	resp, err := s.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:     file,
		Model:    openai.AudioModel(s.sttModel),
		Language: openai.String("ru"),
	})
	if err != nil {
		err = fmt.Errorf("failed to transcribe audio: %w", err)
		logrus.WithError(err).Error("Error creating Groq transcription request")
		return "", err
	}

	return resp.Text, nil
}

// Synthesize синтезирует речь из текста выбранным голосом и возвращает wav-байты.
func (s *SpeechAPI) Synthesize(text string, voice models.Voice) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(s.ttsModel),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatWAV,
	})
	if err != nil {
		err = fmt.Errorf("failed to synthesize speech: %w", err)
		logrus.WithError(err).Error("Error creating Groq speech request")
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty audio returned for voice %s", voice)
	}
	return data, nil
}

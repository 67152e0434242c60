package config

import (
	"errors"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the application configuration parameters.
// Each field corresponds to an expected environment variable.
type Config struct {
	EnvLogsLevel        string `env:"LOG_LEVEL" envDefault:"info"`                                // Log level for the application (e.g., DEBUG, INFO)
	EnvLogFileName      string `env:"LOG_FILE_NAME" envDefault:"neuroAssistBot.log"`              // File's name for log
	EnvStoragePath      string `env:"FILE_STORAGE_PATH" envDefault:"users_state.json"`            // File for persisting user states, empty disables persistence
	EnvDatabasePath     string `env:"DATABASE_PATH" envDefault:"feedback.db"`                     // Sqlite database with feedbacks and suggestions
	EnvBotToken         string `env:"TOKEN_BOT"`                                                  // Telegram Bot Token for authentication with the Telegram API
	EnvGenerativeName   string `env:"GENERATIVE_NAME" envDefault:"groq"`                          // Name of the generative AI provider to use ("groq", "openrouter" or "deepseek")
	EnvGenerativeApiKey string `env:"GENERATIVE_API_KEY"`                                         // API Key for the generative AI service
	EnvGenerativeModel  string `env:"GENERATIVE_MODEL" envDefault:"qwen-2.5-32b"`                 // Model name for the generative AI
	EnvGroqApiKey       string `env:"GROQ_API_KEY"`                                               // API Key for the Groq speech endpoints (whisper + playai tts)
	EnvWhisperModel     string `env:"WHISPER_MODEL" envDefault:"whisper-large-v3-turbo"`          // Speech-to-text model name
	EnvTTSModel         string `env:"TTS_MODEL" envDefault:"playai-tts-arabic"`                   // Text-to-speech model name
	EnvHuggingFaceToken string `env:"HUGGINGFACE_API_TOKEN"`                                      // Bearer token for the HuggingFace inference API (image captioning)
	EnvTranslateApiKey  string `env:"TRANSLATE_API_KEY"`                                          // API Key for the translation service (Yandex Translate API)
	EnvFluxSpaceURL     string `env:"FLUX_SPACE_URL" envDefault:"https://lalashechka-flux-1.hf.space"` // Gradio space serving the image generation model
}

// NewConfig initializes a new Config instance by loading environment variables from a .env file.
// It returns a pointer to the Config struct and an error if any of the required variables are missing.
func NewConfig() (*Config, error) {
	if err := godotenv.Load("bot.env"); err != nil {
		logrus.Info("bot.env not found, relying on process environment")
	}

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, err
	}

	if config.EnvBotToken == "" {
		return nil, errors.New("TOKEN_BOT must be set")
	}

	return config, nil
}

// Package app provides dependency injection and lifecycle management for the bot.
// It initializes and provides access to the API adapters, repositories and the
// bot service required for operation.
package app

import (
	"fmt"
	"sync"

	"github.com/alexsedov/NeuroAssistBot/internal/bot/api"
	"github.com/alexsedov/NeuroAssistBot/internal/bot/config"
	"github.com/alexsedov/NeuroAssistBot/internal/bot/infra/generative"
	"github.com/alexsedov/NeuroAssistBot/internal/bot/repository"
	botServ "github.com/alexsedov/NeuroAssistBot/internal/bot/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// ServiceProvider manages the dependency injection for the bot components.
type ServiceProvider struct {
	// Services
	speechService     botServ.Speech
	generativeService botServ.GenerativeModel
	describerService  botServ.ImageDescriber
	imageGenService   botServ.ImageGenerator
	translateService  botServ.Translate

	// Repositories
	usersStateRepo  botServ.UsersChatStateRepository
	feedbackStorage *repository.FeedbackStorage

	// Bot API
	botAPI *tgbotapi.BotAPI

	// Bot service
	botService *botServ.TgBotServices

	// API endpoints
	translateAPIEndpoint string
	detectAPIEndpoint    string
	captionAPIEndpoint   string

	cfg *config.Config

	speechOnce     sync.Once
	generativeOnce sync.Once
	describerOnce  sync.Once
	imageGenOnce   sync.Once
	translateOnce  sync.Once
	stateRepoOnce  sync.Once
	feedbackOnce   sync.Once
	botAPIOnce     sync.Once
	botServiceOnce sync.Once
}

// NewServiceProvider creates a new instance of the service provider.
func NewServiceProvider(translateAPIEndpoint, detectAPIEndpoint, captionAPIEndpoint string, cfg *config.Config) *ServiceProvider {
	if translateAPIEndpoint == "" || detectAPIEndpoint == "" || captionAPIEndpoint == "" || cfg == nil {
		logrus.Fatal("All ServiceProvider configuration fields must be non-empty")
	}
	return &ServiceProvider{
		translateAPIEndpoint: translateAPIEndpoint,
		detectAPIEndpoint:    detectAPIEndpoint,
		captionAPIEndpoint:   captionAPIEndpoint,
		cfg:                  cfg,
	}
}

// SpeechService returns the service for speech recognition and synthesis.
func (s *ServiceProvider) SpeechService() botServ.Speech {
	s.speechOnce.Do(func() {
		s.speechService = api.NewSpeechAPI(s.cfg.EnvGroqApiKey, s.cfg.EnvWhisperModel, s.cfg.EnvTTSModel)
		logrus.Info("SpeechService initialized")
	})
	return s.speechService
}

// GenerativeService returns the chat completion provider chosen by configuration.
func (s *ServiceProvider) GenerativeService() (botServ.GenerativeModel, error) {
	var err error
	s.generativeOnce.Do(func() {
		s.generativeService, err = generative.ModelFactory(
			s.cfg.EnvGenerativeName,
			s.cfg.EnvGenerativeApiKey,
			s.cfg.EnvGenerativeModel,
			4096,
			0.6,
		)
		if err != nil {
			logrus.Errorf("Failed to initialize Generative service: %v", err)
			s.generativeService = nil // Сброс при ошибке
		}
	})
	if s.generativeService == nil {
		return nil, fmt.Errorf("generative service not initialized")
	}
	logrus.Info("Generative model initialized")
	return s.generativeService, nil
}

// DescriberService returns the image captioning service.
func (s *ServiceProvider) DescriberService() botServ.ImageDescriber {
	s.describerOnce.Do(func() {
		s.describerService = api.NewBlipAPI(s.captionAPIEndpoint, s.cfg.EnvHuggingFaceToken)
		logrus.Info("DescriberService initialized")
	})
	return s.describerService
}

// ImageGenService returns the text-to-image generation service.
func (s *ServiceProvider) ImageGenService() botServ.ImageGenerator {
	s.imageGenOnce.Do(func() {
		s.imageGenService = api.NewFluxAPI(s.cfg.EnvFluxSpaceURL)
		logrus.Info("ImageGenService initialized")
	})
	return s.imageGenService
}

// TranslateService returns the service for translation.
func (s *ServiceProvider) TranslateService() botServ.Translate {
	s.translateOnce.Do(func() {
		s.translateService = api.NewYandexAPI(s.translateAPIEndpoint, s.detectAPIEndpoint, s.cfg.EnvTranslateApiKey)
		logrus.Info("TranslateService initialized")
	})
	return s.translateService
}

// StateRepository returns the usersStateRepo for user state management.
func (s *ServiceProvider) StateRepository() botServ.UsersChatStateRepository {
	s.stateRepoOnce.Do(func() {
		s.usersStateRepo = repository.NewUsersStateMap(s.cfg.EnvStoragePath)
		if err := s.usersStateRepo.ReadFileToMemory(); err != nil {
			logrus.Errorf("Failed to read user state from file: %v", err)
		} else {
			logrus.Info("StateRepository initialized and state loaded")
		}
	})
	return s.usersStateRepo
}

// FeedbackRepository returns the SQLite storage for feedback and suggestions.
func (s *ServiceProvider) FeedbackRepository() (*repository.FeedbackStorage, error) {
	var err error
	s.feedbackOnce.Do(func() {
		s.feedbackStorage, err = repository.NewFeedbackStorage(s.cfg.EnvDatabasePath)
		if err != nil {
			logrus.Errorf("Failed to initialize feedback storage: %v", err)
			s.feedbackStorage = nil
		}
	})
	if s.feedbackStorage == nil {
		return nil, fmt.Errorf("feedback storage not initialized")
	}
	logrus.Info("FeedbackRepository initialized")
	return s.feedbackStorage, nil
}

// BotAPI returns the Telegram Bot API instance.
func (s *ServiceProvider) BotAPI(token string) (*tgbotapi.BotAPI, error) {
	var err error
	s.botAPIOnce.Do(func() {
		s.botAPI, err = tgbotapi.NewBotAPI(token)
		if err != nil {
			logrus.Errorf("Failed to initialize BotAPI: %v", err)
			s.botAPI = nil
		}
	})
	if s.botAPI == nil {
		return nil, fmt.Errorf("bot API not initialized")
	}

	logrus.Info("BotApi initialized")
	return s.botAPI, nil
}

// BotService returns the main Telegram bot service.
func (s *ServiceProvider) BotService(botAPI *tgbotapi.BotAPI) (*botServ.TgBotServices, error) {
	generativeService, err := s.GenerativeService()
	if err != nil {
		logrus.Errorf("Failed to get generative service: %v", err)
		return nil, fmt.Errorf("bot service not initialized")
	}
	feedbackStorage, err := s.FeedbackRepository()
	if err != nil {
		logrus.Errorf("Failed to get feedback storage: %v", err)
		return nil, fmt.Errorf("bot service not initialized")
	}

	s.botServiceOnce.Do(func() {
		s.botService = botServ.NewTgBot(
			generativeService,
			s.SpeechService(),
			s.ImageGenService(),
			s.DescriberService(),
			s.TranslateService(),
			s.StateRepository(),
			feedbackStorage,
			botAPI,
		)
		logrus.Info("BotService initialized")
	})
	return s.botService, nil
}

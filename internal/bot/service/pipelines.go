package service

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/alexsedov/NeuroAssistBot/internal/bot/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// runChatPipeline sends the text to the generative model and replies with the
// answer in the user's preferred format.
func (b *TgBotServices) runChatPipeline(text string) {
	answer, err := b.Generative.GenerateTextMsg(text)
	if err != nil {
		logrus.WithError(err).Error("Chat completion failed")
		if err = b.sendMessage(b.ChatID, "Произошла ошибка, попробуй ещё раз чуть позже.", 0, nil); err != nil {
			logrus.Error(err)
		}
		return
	}
	b.replyPerPreferences(answer)
}

// replyPerPreferences delivers text as voice when the user asked for voice
// replies, falling back to the verbatim text if synthesis or sending fails.
func (b *TgBotServices) replyPerPreferences(text string) {
	prefs := b.StateRepo.Preferences(b.ChatID)
	if prefs.Output == models.FormatVoice {
		audio, err := b.Speech.Synthesize(text, prefs.Voice)
		if err != nil {
			logrus.WithError(err).Error("Speech synthesis failed, falling back to text")
		} else {
			voice := tgbotapi.NewVoice(b.ChatID, tgbotapi.FileBytes{Name: "answer.wav", Bytes: audio})
			if _, err = b.Bot.Send(voice); err == nil {
				return
			}
			logrus.WithError(err).Error("Failed to send voice reply, falling back to text")
		}
	}
	if err := b.sendMessage(b.ChatID, text, 0, nil); err != nil {
		logrus.Error(err)
	}
}

// runImageGeneration generates an image from the prompt and sends it to the chat.
// The image-generation mode is always reset, whatever the outcome.
func (b *TgBotServices) runImageGeneration(prompt string) {
	defer b.StateRepo.SetMode(b.ChatID, models.ModeNone)

	image, err := b.ImageGen.GenerateImage(prompt)
	if err != nil || image == nil {
		logrus.WithError(err).Errorf("Image generation failed for prompt %q", prompt)
		if err = b.sendMessage(b.ChatID, "Не получилось сгенерировать изображение, попробуй другой запрос.", 0, nil); err != nil {
			logrus.Error(err)
		}
		return
	}

	var photo tgbotapi.PhotoConfig
	if image.URL != "" {
		photo = tgbotapi.NewPhoto(b.ChatID, tgbotapi.FileURL(image.URL))
	} else {
		photo = tgbotapi.NewPhoto(b.ChatID, tgbotapi.FileBytes{Name: "image.png", Bytes: image.Data})
	}
	photo.Caption = prompt
	if _, err = b.Bot.Send(photo); err != nil {
		logrus.WithError(err).Error("Failed to send generated image")
		if err = b.sendMessage(b.ChatID, "Изображение готово, но отправить его не вышло. Попробуй ещё раз.", 0, nil); err != nil {
			logrus.Error(err)
		}
	}
}

// runPhotoDescription downloads the photo, captions it, translates the caption
// to Russian when needed and replies in the preferred format. The mode is
// always reset, whatever the outcome.
func (b *TgBotServices) runPhotoDescription(message *tgbotapi.Message) {
	defer b.StateRepo.SetMode(b.ChatID, models.ModeNone)

	// Последний элемент Photo — самый крупный размер.
	fileID := message.Photo[len(message.Photo)-1].FileID
	path, cleanup, err := b.downloadTempFile(fileID, ".jpg")
	if err != nil {
		logrus.WithError(err).Error("Failed to download photo")
		if err = b.sendMessage(b.ChatID, "Не получилось загрузить фотографию, попробуй ещё раз.", 0, nil); err != nil {
			logrus.Error(err)
		}
		return
	}
	defer cleanup()

	image, err := os.ReadFile(path)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to read downloaded photo %s", path)
		if err = b.sendMessage(b.ChatID, "Не получилось загрузить фотографию, попробуй ещё раз.", 0, nil); err != nil {
			logrus.Error(err)
		}
		return
	}

	caption, err := b.Describer.DescribeImage(image)
	if err != nil {
		logrus.WithError(err).Error("Image captioning failed")
		if err = b.sendMessage(b.ChatID, "Сервис описания сейчас недоступен. Попробуй чуть позже.", 0, nil); err != nil {
			logrus.Error(err)
		}
		return
	}

	// Модель описывает по-английски; переводим, если язык не русский.
	lang, err := b.Translate.DetectLangAPI(caption)
	if err != nil || lang != "ru" {
		translated, terr := b.Translate.TranslateAPI(caption)
		if terr != nil {
			logrus.WithError(terr).Error("Caption translation failed, sending original")
		} else {
			caption = translated
		}
	}
	b.replyPerPreferences(caption)
}

// transcribeVoice downloads the voice note and runs speech recognition on it.
func (b *TgBotServices) transcribeVoice(message *tgbotapi.Message) (string, error) {
	path, cleanup, err := b.downloadTempFile(message.Voice.FileID, ".ogg")
	if err != nil {
		return "", err
	}
	defer cleanup()
	return b.Speech.Transcribe(path)
}

// downloadTempFile fetches a Telegram file into a uniquely named temp file.
// The returned cleanup removes the file and must be called once the caller is done.
func (b *TgBotServices) downloadTempFile(fileID, ext string) (string, func(), error) {
	url, err := b.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve file %s: %w", fileID, err)
	}

	resp, err := b.client.Get(url)
	if err != nil {
		return "", nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("file download returned status: %d", resp.StatusCode)
	}

	path := filepath.Join(os.TempDir(), "tgbot_"+uuid.NewString()+ext)
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logrus.WithError(err).Warnf("Failed to remove temp file %s", path)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file %s: %w", path, err)
	}
	if _, err = io.Copy(file, resp.Body); err != nil {
		file.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to write temp file %s: %w", path, err)
	}
	if err = file.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to close temp file %s: %w", path, err)
	}
	return path, cleanup, nil
}

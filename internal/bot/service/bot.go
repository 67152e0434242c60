// Package service provides the core logic of the bot: the per-user mode state
// machine and the dispatch of incoming messages to the AI pipelines.
package service

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alexsedov/NeuroAssistBot/internal/bot/constant"
	"github.com/alexsedov/NeuroAssistBot/internal/bot/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// GenerativeModel defines the interface for chat completion providers.
type GenerativeModel interface {
	GenerateTextMsg(text string) (string, error)
}

// Speech defines the interface for speech recognition and synthesis.
type Speech interface {
	Transcribe(path string) (string, error)
	Synthesize(text string, voice models.Voice) ([]byte, error)
}

// ImageGenerator defines the interface for text-to-image generation.
type ImageGenerator interface {
	GenerateImage(prompt string) (*models.GeneratedImage, error)
}

// ImageDescriber defines the interface for image captioning.
type ImageDescriber interface {
	DescribeImage(image []byte) (string, error)
}

// Translate defines the interface for translation operations.
type Translate interface {
	TranslateAPI(text string) (string, error)
	DetectLangAPI(text string) (string, error)
}

// The UsersChatStateRepository defines the interface for user state persistence.
type UsersChatStateRepository interface {
	ReadFileToMemory() error
	SaveBatchToFile() error
	ResetUser(chatID int64)
	SetMode(chatID int64, mode models.Mode)
	GetMode(chatID int64) models.Mode
	SetStep(chatID int64, step models.FlowStep)
	GetStep(chatID int64) models.FlowStep
	SetDraftTarget(chatID int64, target string)
	SetDraftRating(chatID int64, rating int)
	Draft(chatID int64) models.FeedbackDraft
	Preferences(chatID int64) models.Preferences
	SetOutputFormat(chatID int64, format models.OutputFormat)
	SetVoice(chatID int64, voice models.Voice)
}

// FeedbackRepository defines the interface for the append-only feedback tables.
type FeedbackRepository interface {
	SaveFeedback(rec models.FeedbackRecord) error
	SaveSuggestion(rec models.SuggestionRecord) error
}

// Telegram is the slice of the Bot API the service needs; *tgbotapi.BotAPI satisfies it.
type Telegram interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// TgBotServices is the main service struct for the bot, integrating all dependencies.
type TgBotServices struct {
	Generative   GenerativeModel          // Chat completion provider.
	Speech       Speech                   // Speech recognition and synthesis.
	ImageGen     ImageGenerator           // Text-to-image generation.
	Describer    ImageDescriber           // Image captioning.
	Translate    Translate                // Caption translation service.
	StateRepo    UsersChatStateRepository // User state repository.
	FeedbackRepo FeedbackRepository       // Feedback and suggestion storage.
	Bot          Telegram                 // Telegram Bot API instance.
	ChatID       int64                    // Current chat ID.
	client       *http.Client             // Client for downloading attachments.
}

// NewTgBot creates a new TgBotServices instance with the specified dependencies.
func NewTgBot(
	generative GenerativeModel,
	speech Speech,
	imageGen ImageGenerator,
	describer ImageDescriber,
	translate Translate,
	stateRepository UsersChatStateRepository,
	feedbackRepository FeedbackRepository,
	bot Telegram,
) *TgBotServices {
	return &TgBotServices{
		Generative:   generative,
		Speech:       speech,
		ImageGen:     imageGen,
		Describer:    describer,
		Translate:    translate,
		StateRepo:    stateRepository,
		FeedbackRepo: feedbackRepository,
		Bot:          bot,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

// sendMessage sends a message to the specified chat with optional reply and markup.
// Returns an error if the message fails to send.
func (b *TgBotServices) sendMessage(chatID int64, text string, replyToID int, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if replyToID != 0 {
		msg.ReplyToMessageID = replyToID
	}
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	_, err := b.Bot.Send(msg)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to send message to chat %d: %s", chatID, text)
	}
	return err
}

// sendSorryMsg sends an apologetic message in response to an unsupported action.
func (b *TgBotServices) sendSorryMsg(message *tgbotapi.Message) error {
	return b.sendMessage(b.ChatID, "Я пока этого не умею, но я учусь", message.MessageID, nil)
}

// showBarMenu displays the main menu with bot capabilities as reply buttons.
// Returns an error if the menu message fails to send.
func (b *TgBotServices) showBarMenu() error {
	markup := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_CHAT),
			tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_GEN_IMAGE),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_DESCRIBE_PHOTO),
			tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_SETTINGS),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_FEEDBACK),
			tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_SUGGEST),
		),
	)
	// Дополнительные настройки клавиатуры
	markup.ResizeKeyboard = true  // Подгоняет размер клавиатуры под экран
	markup.OneTimeKeyboard = true // Скрывает клавиатуру после выбора (опционально)

	return b.sendMessage(b.ChatID, "Меню ↓", 0, markup)
}

// showSettingsMenu displays the reply-format and voice settings.
func (b *TgBotServices) showSettingsMenu() error {
	markup := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_ANSWER_TEXT),
			tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_ANSWER_VOICE),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_VOICE_AHMAD),
			tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_VOICE_AMIRA),
			tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_VOICE_KHALID),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_PRINT_MENU),
		),
	)
	markup.ResizeKeyboard = true
	markup.OneTimeKeyboard = true
	return b.sendMessage(b.ChatID, "Выбери формат ответа и голос ↓", 0, markup)
}

// showTargetMenu displays the fixed set of feedback targets.
func (b *TgBotServices) showTargetMenu() error {
	markup := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(constant.TARGET_CHAT),
			tgbotapi.NewKeyboardButton(constant.TARGET_IMAGE_GEN),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(constant.TARGET_PHOTO_DESC),
			tgbotapi.NewKeyboardButton(constant.TARGET_SPEECH),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_CANCEL),
		),
	)
	markup.ResizeKeyboard = true
	markup.OneTimeKeyboard = true
	return b.sendMessage(b.ChatID, "Что ты хочешь оценить?", 0, markup)
}

// showRatingMenu displays the five star ratings.
func (b *TgBotServices) showRatingMenu() error {
	markup := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ratingCaption(1)),
			tgbotapi.NewKeyboardButton(ratingCaption(2)),
			tgbotapi.NewKeyboardButton(ratingCaption(3)),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ratingCaption(4)),
			tgbotapi.NewKeyboardButton(ratingCaption(5)),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_CANCEL),
		),
	)
	markup.ResizeKeyboard = true
	markup.OneTimeKeyboard = true
	return b.sendMessage(b.ChatID, "Поставь оценку ↓", 0, markup)
}

// showCommentMenu prompts for the free-form comment with a skip button.
func (b *TgBotServices) showCommentMenu() error {
	markup := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_SKIP_COMMENT),
			tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_CANCEL),
		),
	)
	markup.ResizeKeyboard = true
	markup.OneTimeKeyboard = true
	return b.sendMessage(b.ChatID, "Добавь комментарий или нажми «Пропустить».", 0, markup)
}

// showCancelMenu displays a cancel-only keyboard with the given prompt.
func (b *TgBotServices) showCancelMenu(text string) error {
	markup := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(constant.BUTTON_TEXT_CANCEL),
		),
	)
	markup.ResizeKeyboard = true
	markup.OneTimeKeyboard = true
	return b.sendMessage(b.ChatID, text, 0, markup)
}

// ratingPattern: одна цифра 1-5 и хотя бы одна звезда.
var ratingPattern = regexp.MustCompile(`^([1-5])\s*⭐+$`)

// parseRating validates rating input of the form "<digit> <stars>".
func parseRating(text string) (int, bool) {
	match := ratingPattern.FindStringSubmatch(strings.TrimSpace(text))
	if match == nil {
		return 0, false
	}
	rating, err := strconv.Atoi(match[1])
	if err != nil || rating < 1 || rating > 5 {
		return 0, false
	}
	return rating, true
}

// ratingCaption builds the caption of a rating button, e.g. "3 ⭐⭐⭐".
func ratingCaption(rating int) string {
	return strconv.Itoa(rating) + " " + strings.Repeat("⭐", rating)
}

// isFeedbackTarget reports whether text names one of the fixed feedback targets.
func isFeedbackTarget(text string) bool {
	switch text {
	case constant.TARGET_CHAT, constant.TARGET_IMAGE_GEN, constant.TARGET_PHOTO_DESC, constant.TARGET_SPEECH:
		return true
	}
	return false
}

// isFlowButton reports whether text is a button caption that only makes sense
// inside the feedback or suggestion flow. Such captions sent outside their flow
// must be absorbed and never forwarded to the chat pipeline.
func isFlowButton(text string) bool {
	if isFeedbackTarget(text) {
		return true
	}
	if _, ok := parseRating(text); ok {
		return true
	}
	return text == constant.BUTTON_TEXT_SKIP_COMMENT || text == constant.BUTTON_TEXT_CANCEL
}

// UpdateProcessing handles one incoming Telegram update.
func (b *TgBotServices) UpdateProcessing(update *tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	message := update.Message
	b.ChatID = message.Chat.ID

	switch {
	case len(message.Photo) > 0:
		b.handlePhotoMessage(message)
	case message.Voice != nil:
		b.handleVoiceMessage(message)
	case message.Text != "":
		b.handleTextMessage(message)
	default:
		if err := b.sendSorryMsg(message); err != nil {
			logrus.Error(err)
		}
	}
}

// handleTextMessage dispatches a text message. The case order is the dispatch
// priority: command, button captions, active flow, active mode, plain chat.
func (b *TgBotServices) handleTextMessage(message *tgbotapi.Message) {
	text := message.Text
	var errOne, errTwo error
	switch {
	case text == "/start":
		logrus.Infof("Message [%s] from %s (chat %d)", text, message.From.UserName, b.ChatID)
		b.StateRepo.ResetUser(b.ChatID)
		errOne = b.sendMessage(b.ChatID, "Привет! Отправь мне текстовое или голосовое сообщение.", 0, nil)
		errTwo = b.showBarMenu()
	case text == constant.BUTTON_TEXT_PRINT_MENU:
		b.StateRepo.SetMode(b.ChatID, models.ModeNone)
		errOne = b.showBarMenu()
	case text == constant.BUTTON_TEXT_CHAT:
		b.StateRepo.SetMode(b.ChatID, models.ModeNone)
		errOne = b.sendMessage(b.ChatID, "Ты в режиме общения с ИИ.\nНапиши сообщение или отправь голосовое.", 0, nil)
	case text == constant.BUTTON_TEXT_GEN_IMAGE:
		b.StateRepo.SetMode(b.ChatID, models.ModeImageGen)
		errOne = b.sendMessage(b.ChatID, "Опиши, какое изображение сгенерировать. Можно текстом или голосом.", 0, nil)
	case text == constant.BUTTON_TEXT_DESCRIBE_PHOTO:
		b.StateRepo.SetMode(b.ChatID, models.ModePhotoDesc)
		errOne = b.sendMessage(b.ChatID, "Пришли фотографию, и я опишу, что на ней.", 0, nil)
	case text == constant.BUTTON_TEXT_FEEDBACK:
		b.StateRepo.SetMode(b.ChatID, models.ModeFeedback)
		b.StateRepo.SetStep(b.ChatID, models.StepChoosingTarget)
		errOne = b.showTargetMenu()
	case text == constant.BUTTON_TEXT_SUGGEST:
		b.StateRepo.SetMode(b.ChatID, models.ModeSuggestion)
		errOne = b.showCancelMenu("Напиши, что улучшить в боте, или нажми «Отмена».")
	case text == constant.BUTTON_TEXT_SETTINGS:
		errOne = b.showSettingsMenu()
	case text == constant.BUTTON_TEXT_ANSWER_TEXT:
		b.StateRepo.SetOutputFormat(b.ChatID, models.FormatText)
		errOne = b.sendMessage(b.ChatID, "Теперь я отвечаю текстом.", 0, nil)
	case text == constant.BUTTON_TEXT_ANSWER_VOICE:
		b.StateRepo.SetOutputFormat(b.ChatID, models.FormatVoice)
		errOne = b.sendMessage(b.ChatID, "Теперь я отвечаю голосом.", 0, nil)
	case text == constant.BUTTON_TEXT_VOICE_AHMAD:
		b.StateRepo.SetVoice(b.ChatID, models.VoiceAhmad)
		errOne = b.sendMessage(b.ChatID, "Выбран голос Ahmad.", 0, nil)
	case text == constant.BUTTON_TEXT_VOICE_AMIRA:
		b.StateRepo.SetVoice(b.ChatID, models.VoiceAmira)
		errOne = b.sendMessage(b.ChatID, "Выбран голос Amira.", 0, nil)
	case text == constant.BUTTON_TEXT_VOICE_KHALID:
		b.StateRepo.SetVoice(b.ChatID, models.VoiceKhalid)
		errOne = b.sendMessage(b.ChatID, "Выбран голос Khalid.", 0, nil)
	case b.StateRepo.GetMode(b.ChatID) == models.ModeFeedback:
		b.handleFeedbackStep(message)
	case b.StateRepo.GetMode(b.ChatID) == models.ModeSuggestion:
		b.handleSuggestionStep(message)
	case isFlowButton(text):
		// Кнопка из чужого контекста: поглощаем, чтобы текст не ушёл в пайплайны.
		logrus.Infof("Ignoring caption %q outside of its flow (chat %d)", text, b.ChatID)
	case b.StateRepo.GetMode(b.ChatID) == models.ModeImageGen:
		b.runImageGeneration(text)
		errOne = b.showBarMenu()
	case b.StateRepo.GetMode(b.ChatID) == models.ModePhotoDesc:
		errOne = b.sendMessage(b.ChatID, "Мне нужна именно фотография. Пришли её картинкой.", message.MessageID, nil)
	default:
		b.runChatPipeline(text)
	}
	if errOne != nil || errTwo != nil {
		logrus.Error("errOne: ", errOne, "\n", "errTwo: ", errTwo)
	}
}

// handleVoiceMessage routes a voice message according to the active mode.
func (b *TgBotServices) handleVoiceMessage(message *tgbotapi.Message) {
	var errOne, errTwo error
	switch b.StateRepo.GetMode(b.ChatID) {
	case models.ModeImageGen:
		prompt, err := b.transcribeVoice(message)
		if err != nil {
			// Пайплайн не удался — режим всё равно сбрасывается.
			b.StateRepo.SetMode(b.ChatID, models.ModeNone)
			logrus.WithError(err).Error("Voice transcription for image generation failed")
			errOne = b.sendMessage(b.ChatID, "Не получилось распознать голосовое, попробуй ещё раз.", 0, nil)
			break
		}
		b.runImageGeneration(prompt)
		errOne = b.showBarMenu()
	case models.ModePhotoDesc:
		errOne = b.sendMessage(b.ChatID, "Мне нужна именно фотография. Пришли её картинкой.", message.MessageID, nil)
	case models.ModeFeedback, models.ModeSuggestion:
		errOne = b.sendMessage(b.ChatID, "Здесь нужен текст. Напиши, пожалуйста, сообщением.", message.MessageID, nil)
	default:
		text, err := b.transcribeVoice(message)
		if err != nil {
			logrus.WithError(err).Error("Voice transcription failed")
			errOne = b.sendMessage(b.ChatID, "Не получилось распознать голосовое, попробуй ещё раз.", 0, nil)
			break
		}
		b.runChatPipeline(text)
	}
	if errOne != nil || errTwo != nil {
		logrus.Error("errOne: ", errOne, "\n", "errTwo: ", errTwo)
	}
}

// handlePhotoMessage routes a photo message: only photo-description mode consumes photos.
func (b *TgBotServices) handlePhotoMessage(message *tgbotapi.Message) {
	if b.StateRepo.GetMode(b.ChatID) == models.ModePhotoDesc {
		b.runPhotoDescription(message)
		if err := b.showBarMenu(); err != nil {
			logrus.Error(err)
		}
		return
	}
	if err := b.sendSorryMsg(message); err != nil {
		logrus.Error(err)
	}
}

// handleFeedbackStep advances the feedback sub-dialog by one step.
func (b *TgBotServices) handleFeedbackStep(message *tgbotapi.Message) {
	text := message.Text
	var errOne, errTwo error

	if text == constant.BUTTON_TEXT_CANCEL {
		b.StateRepo.SetMode(b.ChatID, models.ModeNone)
		errOne = b.sendMessage(b.ChatID, "Хорошо, отзыв отменён.", 0, nil)
		errTwo = b.showBarMenu()
		if errOne != nil || errTwo != nil {
			logrus.Error("errOne: ", errOne, "\n", "errTwo: ", errTwo)
		}
		return
	}

	switch b.StateRepo.GetStep(b.ChatID) {
	case models.StepChoosingTarget:
		if !isFeedbackTarget(text) {
			errOne = b.sendMessage(b.ChatID, "Выбери, что именно ты оцениваешь, кнопкой ниже.", message.MessageID, nil)
			break
		}
		b.StateRepo.SetDraftTarget(b.ChatID, text)
		b.StateRepo.SetStep(b.ChatID, models.StepRating)
		errOne = b.showRatingMenu()
	case models.StepRating:
		rating, ok := parseRating(text)
		if !ok {
			// Невалидная оценка не продвигает шаг и не уходит в другие обработчики.
			errOne = b.sendMessage(b.ChatID, "Оценка — это кнопка вида «3 ⭐⭐⭐». Попробуй ещё раз.", message.MessageID, nil)
			break
		}
		b.StateRepo.SetDraftRating(b.ChatID, rating)
		b.StateRepo.SetStep(b.ChatID, models.StepCommenting)
		errOne = b.showCommentMenu()
	case models.StepCommenting:
		comment := text
		if text == constant.BUTTON_TEXT_SKIP_COMMENT {
			comment = constant.NO_COMMENT
		}
		draft := b.StateRepo.Draft(b.ChatID)
		record := models.FeedbackRecord{
			UserID:   message.From.ID,
			Username: message.From.UserName,
			Target:   draft.Target,
			Rating:   draft.Rating,
			Comment:  comment,
		}
		b.StateRepo.SetMode(b.ChatID, models.ModeNone)
		if err := b.FeedbackRepo.SaveFeedback(record); err != nil {
			logrus.WithError(err).Error("Failed to persist feedback record")
			errOne = b.sendMessage(b.ChatID, "Не получилось сохранить отзыв, попробуй позже. "+constant.EMOJI_CRYING_FACE, 0, nil)
		} else {
			errOne = b.sendMessage(b.ChatID, "Спасибо за отзыв! "+constant.EMOJI_BICEPS, 0, nil)
		}
		errTwo = b.showBarMenu()
	}
	if errOne != nil || errTwo != nil {
		logrus.Error("errOne: ", errOne, "\n", "errTwo: ", errTwo)
	}
}

// handleSuggestionStep captures one suggestion message or a cancellation.
func (b *TgBotServices) handleSuggestionStep(message *tgbotapi.Message) {
	text := message.Text
	var errOne, errTwo error

	b.StateRepo.SetMode(b.ChatID, models.ModeNone)
	if text == constant.BUTTON_TEXT_CANCEL {
		errOne = b.sendMessage(b.ChatID, "Хорошо, вернулись в главное меню.", 0, nil)
		errTwo = b.showBarMenu()
		if errOne != nil || errTwo != nil {
			logrus.Error("errOne: ", errOne, "\n", "errTwo: ", errTwo)
		}
		return
	}

	record := models.SuggestionRecord{
		UserID:   message.From.ID,
		Username: message.From.UserName,
		Text:     text,
	}
	if err := b.FeedbackRepo.SaveSuggestion(record); err != nil {
		logrus.WithError(err).Error("Failed to persist suggestion record")
		errOne = b.sendMessage(b.ChatID, "Не получилось сохранить предложение, попробуй позже. "+constant.EMOJI_CRYING_FACE, 0, nil)
	} else {
		errOne = b.sendMessage(b.ChatID, "Спасибо, записал предложение! "+constant.EMOJI_LIGHT_BULB, 0, nil)
	}
	errTwo = b.showBarMenu()
	if errOne != nil || errTwo != nil {
		logrus.Error("errOne: ", errOne, "\n", "errTwo: ", errTwo)
	}
}

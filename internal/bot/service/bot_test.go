package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/alexsedov/NeuroAssistBot/internal/bot/constant"
	"github.com/alexsedov/NeuroAssistBot/internal/bot/models"
	"github.com/alexsedov/NeuroAssistBot/internal/bot/repository"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTelegram struct {
	sent    []tgbotapi.Chattable
	sendErr error
	fileURL string
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.sendErr
}

func (f *fakeTelegram) GetFileDirectURL(_ string) (string, error) {
	return f.fileURL, nil
}

// sentTexts collects the plain text messages the bot sent, in order.
func (f *fakeTelegram) sentTexts() []string {
	var texts []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

type fakeGenerative struct {
	prompts []string
	reply   string
	err     error
}

func (f *fakeGenerative) GenerateTextMsg(text string) (string, error) {
	f.prompts = append(f.prompts, text)
	return f.reply, f.err
}

type fakeSpeech struct {
	transcribedPaths []string
	transcript       string
	transcribeErr    error

	synthesized []string
	voices      []models.Voice
	audio       []byte
	synthErr    error
}

func (f *fakeSpeech) Transcribe(path string) (string, error) {
	f.transcribedPaths = append(f.transcribedPaths, path)
	return f.transcript, f.transcribeErr
}

func (f *fakeSpeech) Synthesize(text string, voice models.Voice) ([]byte, error) {
	f.synthesized = append(f.synthesized, text)
	f.voices = append(f.voices, voice)
	return f.audio, f.synthErr
}

type fakeImageGen struct {
	prompts []string
	result  *models.GeneratedImage
	err     error
}

func (f *fakeImageGen) GenerateImage(prompt string) (*models.GeneratedImage, error) {
	f.prompts = append(f.prompts, prompt)
	return f.result, f.err
}

type fakeDescriber struct {
	calls   int
	caption string
	err     error
}

func (f *fakeDescriber) DescribeImage(_ []byte) (string, error) {
	f.calls++
	return f.caption, f.err
}

type fakeTranslate struct {
	lang       string
	translated string
}

func (f *fakeTranslate) TranslateAPI(_ string) (string, error) {
	return f.translated, nil
}

func (f *fakeTranslate) DetectLangAPI(_ string) (string, error) {
	return f.lang, nil
}

type fakeFeedbackRepo struct {
	feedbacks   []models.FeedbackRecord
	suggestions []models.SuggestionRecord
	err         error
}

func (f *fakeFeedbackRepo) SaveFeedback(rec models.FeedbackRecord) error {
	if f.err != nil {
		return f.err
	}
	f.feedbacks = append(f.feedbacks, rec)
	return nil
}

func (f *fakeFeedbackRepo) SaveSuggestion(rec models.SuggestionRecord) error {
	if f.err != nil {
		return f.err
	}
	f.suggestions = append(f.suggestions, rec)
	return nil
}

type botFixture struct {
	bot        *TgBotServices
	tg         *fakeTelegram
	generative *fakeGenerative
	speech     *fakeSpeech
	imageGen   *fakeImageGen
	describer  *fakeDescriber
	repo       *repository.UsersState
	feedback   *fakeFeedbackRepo
}

func newBotFixture() *botFixture {
	f := &botFixture{
		tg:         &fakeTelegram{},
		generative: &fakeGenerative{reply: "ответ модели"},
		speech:     &fakeSpeech{transcript: "привет", audio: []byte("wav")},
		imageGen:   &fakeImageGen{result: &models.GeneratedImage{URL: "https://cdn.example/img.png"}},
		describer:  &fakeDescriber{caption: "a cat on a sofa"},
		repo:       repository.NewUsersStateMap(""),
		feedback:   &fakeFeedbackRepo{},
	}
	f.bot = NewTgBot(
		f.generative,
		f.speech,
		f.imageGen,
		f.describer,
		&fakeTranslate{lang: "en", translated: "кот на диване"},
		f.repo,
		f.feedback,
		f.tg,
	)
	return f
}

const testChatID int64 = 100500

func textUpdate(text string) *tgbotapi.Update {
	return &tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: testChatID, UserName: "tester"},
		Chat:      &tgbotapi.Chat{ID: testChatID},
		Text:      text,
	}}
}

func voiceUpdate() *tgbotapi.Update {
	u := textUpdate("")
	u.Message.Voice = &tgbotapi.Voice{FileID: "voice-1"}
	return u
}

func photoUpdate() *tgbotapi.Update {
	u := textUpdate("")
	u.Message.Photo = []tgbotapi.PhotoSize{
		{FileID: "small"},
		{FileID: "large"},
	}
	return u
}

func TestStartResetsState(t *testing.T) {
	f := newBotFixture()
	f.repo.SetMode(testChatID, models.ModeImageGen)
	f.repo.SetOutputFormat(testChatID, models.FormatVoice)

	f.bot.UpdateProcessing(textUpdate("/start"))

	assert.Equal(t, models.ModeNone, f.repo.GetMode(testChatID))
	assert.Equal(t, models.DefaultPreferences(), f.repo.Preferences(testChatID))
	assert.NotEmpty(t, f.tg.sent)
}

func TestModeEntryIsExclusive(t *testing.T) {
	f := newBotFixture()

	f.bot.UpdateProcessing(textUpdate(constant.BUTTON_TEXT_FEEDBACK))
	require.Equal(t, models.ModeFeedback, f.repo.GetMode(testChatID))
	require.Equal(t, models.StepChoosingTarget, f.repo.GetStep(testChatID))

	f.bot.UpdateProcessing(textUpdate(constant.BUTTON_TEXT_GEN_IMAGE))

	assert.Equal(t, models.ModeImageGen, f.repo.GetMode(testChatID))
	assert.Equal(t, models.StepNone, f.repo.GetStep(testChatID))
	assert.Equal(t, models.FeedbackDraft{}, f.repo.Draft(testChatID))
}

func TestImageGenResetsModeOnSuccess(t *testing.T) {
	f := newBotFixture()
	f.repo.SetMode(testChatID, models.ModeImageGen)

	f.bot.UpdateProcessing(textUpdate("нарисуй кота"))

	assert.Equal(t, models.ModeNone, f.repo.GetMode(testChatID))
	assert.Equal(t, []string{"нарисуй кота"}, f.imageGen.prompts)

	var photoSent bool
	for _, c := range f.tg.sent {
		if _, ok := c.(tgbotapi.PhotoConfig); ok {
			photoSent = true
		}
	}
	assert.True(t, photoSent, "expected a photo message")
}

func TestImageGenResetsModeOnFailure(t *testing.T) {
	f := newBotFixture()
	f.imageGen.result = nil
	f.imageGen.err = errors.New("space unavailable")
	f.repo.SetMode(testChatID, models.ModeImageGen)

	f.bot.UpdateProcessing(textUpdate("нарисуй кота"))

	assert.Equal(t, models.ModeNone, f.repo.GetMode(testChatID))
	assert.Contains(t, f.tg.sentTexts(), "Не получилось сгенерировать изображение, попробуй другой запрос.")
}

func TestMenuCaptionDuringModeSwitchesInsteadOfPipelines(t *testing.T) {
	f := newBotFixture()
	f.repo.SetMode(testChatID, models.ModePhotoDesc)

	f.bot.UpdateProcessing(textUpdate(constant.BUTTON_TEXT_GEN_IMAGE))

	assert.Equal(t, models.ModeImageGen, f.repo.GetMode(testChatID))
	assert.Empty(t, f.generative.prompts)
	assert.Empty(t, f.imageGen.prompts)
	assert.Zero(t, f.describer.calls)
}

func TestFlowButtonAbsorbedOutsideItsFlow(t *testing.T) {
	f := newBotFixture()
	f.repo.SetMode(testChatID, models.ModePhotoDesc)

	f.bot.UpdateProcessing(textUpdate("3 ⭐⭐⭐"))

	// Кнопка чужого контекста: режим не меняется, пайплайны не запускаются.
	assert.Equal(t, models.ModePhotoDesc, f.repo.GetMode(testChatID))
	assert.Empty(t, f.generative.prompts)
	assert.Empty(t, f.imageGen.prompts)
	assert.Empty(t, f.feedback.feedbacks)
}

func TestNonPhotoTextInPhotoDescRePrompts(t *testing.T) {
	f := newBotFixture()
	f.repo.SetMode(testChatID, models.ModePhotoDesc)

	f.bot.UpdateProcessing(textUpdate("вот моё фото"))

	assert.Equal(t, models.ModePhotoDesc, f.repo.GetMode(testChatID))
	assert.Empty(t, f.generative.prompts)
	assert.Contains(t, f.tg.sentTexts(), "Мне нужна именно фотография. Пришли её картинкой.")
}

func TestPhotoOutsidePhotoDescMode(t *testing.T) {
	f := newBotFixture()

	f.bot.UpdateProcessing(photoUpdate())

	assert.Zero(t, f.describer.calls)
	assert.Equal(t, models.ModeNone, f.repo.GetMode(testChatID))
	assert.Contains(t, f.tg.sentTexts(), "Я пока этого не умею, но я учусь")
}

func TestFeedbackFlowEndToEnd(t *testing.T) {
	f := newBotFixture()

	f.bot.UpdateProcessing(textUpdate(constant.BUTTON_TEXT_FEEDBACK))
	f.bot.UpdateProcessing(textUpdate(constant.TARGET_CHAT))
	f.bot.UpdateProcessing(textUpdate("3 ⭐⭐⭐"))
	f.bot.UpdateProcessing(textUpdate("стало лучше"))

	require.Len(t, f.feedback.feedbacks, 1)
	rec := f.feedback.feedbacks[0]
	assert.Equal(t, testChatID, rec.UserID)
	assert.Equal(t, "tester", rec.Username)
	assert.Equal(t, constant.TARGET_CHAT, rec.Target)
	assert.Equal(t, 3, rec.Rating)
	assert.Equal(t, "стало лучше", rec.Comment)
	assert.Equal(t, models.ModeNone, f.repo.GetMode(testChatID))
}

func TestFeedbackInvalidRatingDoesNotAdvance(t *testing.T) {
	f := newBotFixture()

	f.bot.UpdateProcessing(textUpdate(constant.BUTTON_TEXT_FEEDBACK))
	f.bot.UpdateProcessing(textUpdate(constant.TARGET_IMAGE_GEN))

	for _, bad := range []string{"7 ⭐", "три ⭐⭐⭐", "⭐⭐⭐", "3"} {
		f.bot.UpdateProcessing(textUpdate(bad))
		assert.Equal(t, models.StepRating, f.repo.GetStep(testChatID), "input %q must not advance", bad)
	}
	assert.Empty(t, f.feedback.feedbacks)
	assert.Empty(t, f.generative.prompts, "invalid rating must not leak into the chat pipeline")
}

func TestFeedbackSkipCommentUsesSentinel(t *testing.T) {
	f := newBotFixture()

	f.bot.UpdateProcessing(textUpdate(constant.BUTTON_TEXT_FEEDBACK))
	f.bot.UpdateProcessing(textUpdate(constant.TARGET_SPEECH))
	f.bot.UpdateProcessing(textUpdate("5 ⭐⭐⭐⭐⭐"))
	f.bot.UpdateProcessing(textUpdate(constant.BUTTON_TEXT_SKIP_COMMENT))

	require.Len(t, f.feedback.feedbacks, 1)
	assert.Equal(t, constant.NO_COMMENT, f.feedback.feedbacks[0].Comment)
	assert.Equal(t, 5, f.feedback.feedbacks[0].Rating)
}

func TestFeedbackCancelDiscardsDraft(t *testing.T) {
	f := newBotFixture()

	f.bot.UpdateProcessing(textUpdate(constant.BUTTON_TEXT_FEEDBACK))
	f.bot.UpdateProcessing(textUpdate(constant.TARGET_PHOTO_DESC))
	f.bot.UpdateProcessing(textUpdate(constant.BUTTON_TEXT_CANCEL))

	assert.Empty(t, f.feedback.feedbacks)
	assert.Equal(t, models.ModeNone, f.repo.GetMode(testChatID))
	assert.Equal(t, models.FeedbackDraft{}, f.repo.Draft(testChatID))
}

func TestSuggestionSaved(t *testing.T) {
	f := newBotFixture()

	f.bot.UpdateProcessing(textUpdate(constant.BUTTON_TEXT_SUGGEST))
	f.bot.UpdateProcessing(textUpdate("добавьте поддержку видео"))

	require.Len(t, f.feedback.suggestions, 1)
	assert.Equal(t, "добавьте поддержку видео", f.feedback.suggestions[0].Text)
	assert.Equal(t, models.ModeNone, f.repo.GetMode(testChatID))
}

func TestSuggestionCancelPersistsNothing(t *testing.T) {
	f := newBotFixture()

	f.bot.UpdateProcessing(textUpdate(constant.BUTTON_TEXT_SUGGEST))
	f.bot.UpdateProcessing(textUpdate(constant.BUTTON_TEXT_CANCEL))

	assert.Empty(t, f.feedback.suggestions)
	assert.Equal(t, models.ModeNone, f.repo.GetMode(testChatID))
}

func TestChatReplyAsVoice(t *testing.T) {
	f := newBotFixture()
	f.repo.SetOutputFormat(testChatID, models.FormatVoice)
	f.repo.SetVoice(testChatID, models.VoiceAmira)

	f.bot.UpdateProcessing(textUpdate("как дела?"))

	require.Equal(t, []string{"ответ модели"}, f.speech.synthesized)
	assert.Equal(t, []models.Voice{models.VoiceAmira}, f.speech.voices)

	var voiceSent bool
	for _, c := range f.tg.sent {
		if _, ok := c.(tgbotapi.VoiceConfig); ok {
			voiceSent = true
		}
	}
	assert.True(t, voiceSent, "expected a voice message")
}

func TestChatReplyFallsBackToTextOnSynthesisError(t *testing.T) {
	f := newBotFixture()
	f.repo.SetOutputFormat(testChatID, models.FormatVoice)
	f.speech.synthErr = errors.New("tts unavailable")

	f.bot.UpdateProcessing(textUpdate("как дела?"))

	assert.Contains(t, f.tg.sentTexts(), "ответ модели")
}

func TestSettingsButtonsUpdatePreferences(t *testing.T) {
	f := newBotFixture()

	f.bot.UpdateProcessing(textUpdate(constant.BUTTON_TEXT_ANSWER_VOICE))
	f.bot.UpdateProcessing(textUpdate(constant.BUTTON_TEXT_VOICE_KHALID))

	prefs := f.repo.Preferences(testChatID)
	assert.Equal(t, models.FormatVoice, prefs.Output)
	assert.Equal(t, models.VoiceKhalid, prefs.Voice)
}

func TestVoiceMessageGoesThroughChatPipeline(t *testing.T) {
	f := newBotFixture()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ogg-bytes"))
	}))
	defer server.Close()
	f.tg.fileURL = server.URL

	f.bot.UpdateProcessing(voiceUpdate())

	assert.Equal(t, []string{"привет"}, f.generative.prompts)
	assert.Contains(t, f.tg.sentTexts(), "ответ модели")

	// Временный файл должен быть удалён после обработки.
	require.NotEmpty(t, f.speech.transcribedPaths)
	_, err := os.Stat(f.speech.transcribedPaths[0])
	assert.True(t, os.IsNotExist(err))
}

func TestVoiceMessageDuringFeedbackRePrompts(t *testing.T) {
	f := newBotFixture()
	f.bot.UpdateProcessing(textUpdate(constant.BUTTON_TEXT_FEEDBACK))

	f.bot.UpdateProcessing(voiceUpdate())

	assert.Equal(t, models.ModeFeedback, f.repo.GetMode(testChatID))
	assert.Empty(t, f.speech.transcribedPaths)
	assert.Contains(t, f.tg.sentTexts(), "Здесь нужен текст. Напиши, пожалуйста, сообщением.")
}

func TestPhotoDescriptionPipeline(t *testing.T) {
	f := newBotFixture()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()
	f.tg.fileURL = server.URL
	f.repo.SetMode(testChatID, models.ModePhotoDesc)

	f.bot.UpdateProcessing(photoUpdate())

	assert.Equal(t, 1, f.describer.calls)
	assert.Equal(t, models.ModeNone, f.repo.GetMode(testChatID))
	// Описание не на русском — бот отвечает переводом.
	assert.Contains(t, f.tg.sentTexts(), "кот на диване")
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		in     string
		rating int
		ok     bool
	}{
		{"1 ⭐", 1, true},
		{"3 ⭐⭐⭐", 3, true},
		{"5⭐", 5, true},
		{"5 ⭐⭐⭐⭐⭐", 5, true},
		{"0 ⭐", 0, false},
		{"7 ⭐", 0, false},
		{"три ⭐⭐⭐", 0, false},
		{"3", 0, false},
		{"⭐⭐⭐", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		rating, ok := parseRating(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.rating, rating, "input %q", tt.in)
	}
}

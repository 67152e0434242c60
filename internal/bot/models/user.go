// Package models contains the data types shared by the bot's repositories and services.
package models

// OutputFormat определяет, в каком виде бот присылает ответ пользователю.
type OutputFormat string

const (
	FormatText  OutputFormat = "text"
	FormatVoice OutputFormat = "voice"
)

// Voice — голос синтеза речи (модель playai-tts-arabic).
type Voice string

const (
	VoiceAhmad  Voice = "Ahmad-PlayAI"
	VoiceAmira  Voice = "Amira-PlayAI"
	VoiceKhalid Voice = "Khalid-PlayAI"
)

// Mode — эксклюзивный режим взаимодействия пользователя с ботом.
// Одно поле вместо набора булевых флагов: два режима одновременно невозможны.
type Mode string

const (
	ModeNone       Mode = ""
	ModeImageGen   Mode = "image_gen"
	ModePhotoDesc  Mode = "photo_desc"
	ModeFeedback   Mode = "feedback"
	ModeSuggestion Mode = "suggestion"
)

// FlowStep — шаг внутри многоходового диалога (отзыв).
type FlowStep string

const (
	StepNone           FlowStep = ""
	StepChoosingTarget FlowStep = "choosing_target"
	StepRating         FlowStep = "rating"
	StepCommenting     FlowStep = "commenting"
)

// Preferences хранит настройки формата ответа пользователя.
type Preferences struct {
	Output OutputFormat `json:"output"`
	Voice  Voice        `json:"voice"`
}

// DefaultPreferences returns the preferences every user starts with.
func DefaultPreferences() Preferences {
	return Preferences{
		Output: FormatText,
		Voice:  VoiceAhmad,
	}
}

// FeedbackDraft — накопитель частично заполненного отзыва.
type FeedbackDraft struct {
	Target string `json:"target"`
	Rating int    `json:"rating"`
}

// UserState — состояние одного пользователя бота.
type UserState struct {
	ChatID      int64         `json:"chatID"`      // Идентификатор чата
	Mode        Mode          `json:"mode"`        // Текущий эксклюзивный режим
	Step        FlowStep      `json:"step"`        // Шаг активного диалога
	Draft       FeedbackDraft `json:"draft"`       // Черновик отзыва
	Preferences Preferences   `json:"preferences"` // Настройки формата ответа
}

// FeedbackRecord — завершённый отзыв, записывается один раз и не изменяется.
type FeedbackRecord struct {
	UserID   int64
	Username string
	Target   string
	Rating   int
	Comment  string
}

// SuggestionRecord — предложение по улучшению бота.
type SuggestionRecord struct {
	UserID   int64
	Username string
	Text     string
}

// GeneratedImage — результат генерации изображения: ссылка или готовые байты.
type GeneratedImage struct {
	URL  string
	Data []byte
}

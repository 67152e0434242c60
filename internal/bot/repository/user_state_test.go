package repository

import (
	"path/filepath"
	"testing"

	"github.com/alexsedov/NeuroAssistBot/internal/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferencesDefaultsWithoutRecord(t *testing.T) {
	repo := NewUsersStateMap("")

	prefs := repo.Preferences(42)
	assert.Equal(t, models.FormatText, prefs.Output)
	assert.Equal(t, models.VoiceAhmad, prefs.Voice)

	// Чтение не должно создавать запись.
	assert.Empty(t, repo.BatchBuffer)
}

func TestGetModeUnknownUser(t *testing.T) {
	repo := NewUsersStateMap("")
	assert.Equal(t, models.ModeNone, repo.GetMode(42))
	assert.Equal(t, models.StepNone, repo.GetStep(42))
}

func TestSetModeIsExclusiveAndClearsDraft(t *testing.T) {
	repo := NewUsersStateMap("")
	const chatID int64 = 7

	repo.SetMode(chatID, models.ModeFeedback)
	repo.SetStep(chatID, models.StepRating)
	repo.SetDraftTarget(chatID, "Общение с ИИ")
	repo.SetDraftRating(chatID, 4)

	repo.SetMode(chatID, models.ModeImageGen)

	assert.Equal(t, models.ModeImageGen, repo.GetMode(chatID))
	assert.Equal(t, models.StepNone, repo.GetStep(chatID))
	assert.Equal(t, models.FeedbackDraft{}, repo.Draft(chatID))
}

func TestSetModePreservesPreferences(t *testing.T) {
	repo := NewUsersStateMap("")
	const chatID int64 = 7

	repo.SetOutputFormat(chatID, models.FormatVoice)
	repo.SetVoice(chatID, models.VoiceAmira)
	repo.SetMode(chatID, models.ModePhotoDesc)

	prefs := repo.Preferences(chatID)
	assert.Equal(t, models.FormatVoice, prefs.Output)
	assert.Equal(t, models.VoiceAmira, prefs.Voice)
}

func TestResetUserRestoresDefaults(t *testing.T) {
	repo := NewUsersStateMap("")
	const chatID int64 = 7

	repo.SetOutputFormat(chatID, models.FormatVoice)
	repo.SetMode(chatID, models.ModeSuggestion)

	repo.ResetUser(chatID)

	assert.Equal(t, models.ModeNone, repo.GetMode(chatID))
	assert.Equal(t, models.DefaultPreferences(), repo.Preferences(chatID))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users_state.json")

	repo := NewUsersStateMap(path)
	repo.SetMode(1, models.ModeImageGen)
	repo.SetOutputFormat(2, models.FormatVoice)
	repo.SetVoice(2, models.VoiceKhalid)
	require.NoError(t, repo.SaveBatchToFile())

	loaded := NewUsersStateMap(path)
	require.NoError(t, loaded.ReadFileToMemory())

	assert.Equal(t, models.ModeImageGen, loaded.GetMode(1))
	prefs := loaded.Preferences(2)
	assert.Equal(t, models.FormatVoice, prefs.Output)
	assert.Equal(t, models.VoiceKhalid, prefs.Voice)
}

func TestReadFileToMemoryMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.json")

	repo := NewUsersStateMap(path)
	require.NoError(t, repo.ReadFileToMemory())
	assert.Empty(t, repo.BatchBuffer)
}

func TestMemoryOnlySaveIsNoop(t *testing.T) {
	repo := NewUsersStateMap("")
	repo.SetMode(1, models.ModeImageGen)
	require.NoError(t, repo.SaveBatchToFile())
}

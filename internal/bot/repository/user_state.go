// Package repository provides the user state management system for the bot.
// It stores user states in memory and optionally persists them to a file.
package repository

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alexsedov/NeuroAssistBot/internal/bot/models"
	"github.com/sirupsen/logrus"
)

// UsersState manages the state of bot users in memory and on disk.
type UsersState struct {
	BatchBuffer     map[int64]*models.UserState `json:"batchBuffer"` // In-memory store of user states by chat ID.
	storageFilePath string                      // File path for persisting user states, empty for memory-only.
	mu              *sync.RWMutex               // Protects BatchBuffer from concurrent access
}

// NewUsersStateMap creates a new UsersState instance with an empty memory buffer.
// An empty envStoragePath disables persistence.
func NewUsersStateMap(envStoragePath string) *UsersState {
	return &UsersState{
		BatchBuffer:     make(map[int64]*models.UserState),
		storageFilePath: envStoragePath,
		mu:              &sync.RWMutex{},
	}
}

// ensure returns the state record for chatID, creating it with defaults if absent.
// Callers must hold the write lock.
func (m *UsersState) ensure(chatID int64) *models.UserState {
	state, ok := m.BatchBuffer[chatID]
	if !ok {
		state = &models.UserState{
			ChatID:      chatID,
			Preferences: models.DefaultPreferences(),
		}
		m.BatchBuffer[chatID] = state
	}
	return state
}

// ResetUser (re)initializes the user record: default preferences, no mode, no draft.
// Called on /start and when a message arrives from a user with no record yet.
func (m *UsersState) ResetUser(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.BatchBuffer[chatID] = &models.UserState{
		ChatID:      chatID,
		Preferences: models.DefaultPreferences(),
	}
}

// SetMode switches the user's exclusive mode. The mode field is single-valued,
// so entering a mode structurally clears every other one; the flow step and
// feedback draft are reset together with it.
func (m *UsersState) SetMode(chatID int64, mode models.Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.ensure(chatID)
	state.Mode = mode
	state.Step = models.StepNone
	state.Draft = models.FeedbackDraft{}
}

// GetMode returns the user's active mode; an unknown user is in ModeNone.
func (m *UsersState) GetMode(chatID int64) models.Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.BatchBuffer[chatID]
	if !ok {
		return models.ModeNone
	}
	return state.Mode
}

// SetStep advances the step of the active flow.
func (m *UsersState) SetStep(chatID int64, step models.FlowStep) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensure(chatID).Step = step
}

// GetStep returns the current flow step; an unknown user has none.
func (m *UsersState) GetStep(chatID int64) models.FlowStep {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.BatchBuffer[chatID]
	if !ok {
		return models.StepNone
	}
	return state.Step
}

// SetDraftTarget stores the chosen feedback target in the user's draft.
func (m *UsersState) SetDraftTarget(chatID int64, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensure(chatID).Draft.Target = target
}

// SetDraftRating stores the parsed rating in the user's draft.
func (m *UsersState) SetDraftRating(chatID int64, rating int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensure(chatID).Draft.Rating = rating
}

// Draft returns a copy of the user's feedback draft.
func (m *UsersState) Draft(chatID int64) models.FeedbackDraft {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.BatchBuffer[chatID]
	if !ok {
		return models.FeedbackDraft{}
	}
	return state.Draft
}

// Preferences returns the user's reply preferences, or the defaults if the
// user has no record. Reading never creates a record.
func (m *UsersState) Preferences(chatID int64) models.Preferences {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.BatchBuffer[chatID]
	if !ok {
		return models.DefaultPreferences()
	}
	return state.Preferences
}

// SetOutputFormat stores the user's reply format choice.
func (m *UsersState) SetOutputFormat(chatID int64, format models.OutputFormat) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensure(chatID).Preferences.Output = format
}

// SetVoice stores the user's synthesis voice choice.
func (m *UsersState) SetVoice(chatID int64, voice models.Voice) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensure(chatID).Preferences.Voice = voice
}

// ReadFileToMemory reads user states from the storage file into the in-memory buffer.
// Returns an error if the file cannot be read or parsed.
func (m *UsersState) ReadFileToMemory() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.storageFilePath == "" {
		return nil
	}

	data, err := os.ReadFile(m.storageFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.Infof("Storage file %s does not exist, starting with empty buffer", m.storageFilePath)
			return nil
		}
		err = fmt.Errorf("failed to read storage file %s: %w", m.storageFilePath, err)
		logrus.WithError(err).Error("Error reading storage file")
		return err
	}

	if len(data) == 0 {
		logrus.Infof("Storage file %s is empty, starting with empty buffer", m.storageFilePath)
		return nil
	}

	var buffer map[int64]*models.UserState
	if err = json.Unmarshal(data, &buffer); err != nil {
		err = fmt.Errorf("failed to unmarshal storage file %s: %w", m.storageFilePath, err)
		logrus.WithError(err).Error("Error parsing storage file")
		return err
	}

	m.BatchBuffer = buffer
	logrus.Infof("Loaded %d user states from %s", len(m.BatchBuffer), m.storageFilePath)
	return nil
}

// SaveBatchToFile persists the in-memory user state buffer to the storage file.
// Returns an error if the file cannot be written.
func (m *UsersState) SaveBatchToFile() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.storageFilePath == "" {
		return nil
	}

	startTime := time.Now()

	// Write to a temporary file first
	tempPath := m.storageFilePath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		err = fmt.Errorf("failed to open temp file %s: %w", tempPath, err)
		logrus.WithError(err).Error("Error saving batch to file")
		return err
	}
	defer func() {
		if err = file.Close(); err != nil {
			logrus.WithError(err).Errorf("Failed to close file: %v", err)
		}
	}()

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	if err = encoder.Encode(m.BatchBuffer); err != nil {
		err = fmt.Errorf("failed to encode batch to temp file %s: %w", tempPath, err)
		logrus.WithError(err).Error("Error encoding batch")
		return err
	}
	if err = writer.Flush(); err != nil {
		err = fmt.Errorf("failed to flush temp file %s: %w", tempPath, err)
		logrus.WithError(err).Error("Error flushing batch")
		return err
	}

	// Atomically rename a temp file to final destination
	if err = os.Rename(tempPath, m.storageFilePath); err != nil {
		err = fmt.Errorf("failed to rename temp file %s to %s: %w", tempPath, m.storageFilePath, err)
		logrus.WithError(err).Error("Error finalizing batch save")
		return err
	}

	elapsedTime := time.Since(startTime)
	logrus.Infof("Saved %d user states to %s in %v", len(m.BatchBuffer), m.storageFilePath, elapsedTime)
	return nil
}

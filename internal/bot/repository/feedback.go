package repository

import (
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/alexsedov/NeuroAssistBot/internal/bot/models"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

//go:embed schema.sql
var schemaSQL string

// FeedbackStorage persists feedback and suggestion records in a local sqlite database.
// Both tables are append-only; rows are never updated or deleted.
type FeedbackStorage struct {
	db *sql.DB
}

// NewFeedbackStorage opens (or creates) the database at dbPath and applies the
// embedded schema. The schema uses CREATE TABLE IF NOT EXISTS, so opening an
// existing database is a no-op.
func NewFeedbackStorage(dbPath string) (*FeedbackStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open feedback database %s: %w", dbPath, err)
	}

	if _, err = db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply feedback schema: %w", err)
	}

	logrus.Infof("Feedback database opened at %s", dbPath)
	return &FeedbackStorage{db: db}, nil
}

// SaveFeedback appends one completed feedback record.
func (s *FeedbackStorage) SaveFeedback(rec models.FeedbackRecord) error {
	_, err := s.db.Exec(
		"INSERT INTO feedbacks (user_id, username, model, rating, comment) VALUES (?, ?, ?, ?, ?)",
		rec.UserID, rec.Username, rec.Target, rec.Rating, rec.Comment,
	)
	if err != nil {
		err = fmt.Errorf("failed to insert feedback for user %d: %w", rec.UserID, err)
		logrus.WithError(err).Error("Error saving feedback")
		return err
	}
	return nil
}

// SaveSuggestion appends one suggestion record.
func (s *FeedbackStorage) SaveSuggestion(rec models.SuggestionRecord) error {
	_, err := s.db.Exec(
		"INSERT INTO suggestions (user_id, username, suggestion) VALUES (?, ?, ?)",
		rec.UserID, rec.Username, rec.Text,
	)
	if err != nil {
		err = fmt.Errorf("failed to insert suggestion for user %d: %w", rec.UserID, err)
		logrus.WithError(err).Error("Error saving suggestion")
		return err
	}
	return nil
}

// Close releases the underlying database handle.
func (s *FeedbackStorage) Close() error {
	return s.db.Close()
}

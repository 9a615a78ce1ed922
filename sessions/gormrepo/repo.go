package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-okta-login/internal/errors"
	"github.com/jrsteele09/go-okta-login/sessions"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ sessions.Repo = (*Repo)(nil)

// sessionRecord is the table row. The profile is kept as a JSON blob so
// arbitrary claims survive the round trip.
type sessionRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	Subject   string `gorm:"index;size:255"`
	Profile   []byte
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}

func (sessionRecord) TableName() string { return "login_sessions" }

// Repo is a sessions.Repo backed by any gorm dialect.
type Repo struct {
	db *gorm.DB
}

// New migrates the sessions table and returns the repo.
func New(db *gorm.DB) (*Repo, error) {
	if err := db.AutoMigrate(&sessionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate sessions: %w", err)
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Put(ctx context.Context, session *sessions.Session) error {
	if session == nil || session.ID == "" {
		return errors.New("session id is required")
	}

	profile, err := json.Marshal(session.Profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	rec := sessionRecord{
		ID:        session.ID,
		Subject:   session.Profile.Subject,
		Profile:   profile,
		CreatedAt: session.CreatedAt.UTC(),
		ExpiresAt: session.ExpiresAt.UTC(),
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (*sessions.Session, error) {
	var rec sessionRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("session %q: %w", id, apperrors.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session := &sessions.Session{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}
	if err := json.Unmarshal(rec.Profile, &session.Profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return session, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&sessionRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *Repo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&sessionRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

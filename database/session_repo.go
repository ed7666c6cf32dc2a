package database

import (
	"time"

	"github.com/rpupo63/portfolio-backend/models"
	"gorm.io/gorm"
)

type SessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db}
}

func (r *SessionRepo) Add(session *models.Session) error {
	return r.db.Create(session).Error
}

// FindValid returns the session with its user. An expired session is
// deleted and reported as gorm.ErrRecordNotFound.
func (r *SessionRepo) FindValid(id string, now time.Time) (*models.Session, error) {
	var session models.Session
	if err := r.db.Preload("User").Where("id = ?", id).First(&session).Error; err != nil {
		return nil, err
	}
	if session.IsExpired(now) {
		if err := r.Delete(id); err != nil {
			return nil, err
		}
		return nil, gorm.ErrRecordNotFound
	}
	return &session, nil
}

// Delete removes the session. Deleting an unknown id is not an error.
func (r *SessionRepo) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.Session{}).Error
}

// DeleteExpired purges every session past its expiry and returns how many.
func (r *SessionRepo) DeleteExpired(now time.Time) (int64, error) {
	res := r.db.Where("expires_at <= ?", now).Delete(&models.Session{})
	return res.RowsAffected, res.Error
}

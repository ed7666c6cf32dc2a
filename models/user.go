package models

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is an account able to sign in. Only staff users may write content.
type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Username     string     `json:"username" gorm:"type:varchar(150);not null;uniqueIndex:idx_users_username"`
	Email        string     `json:"email" gorm:"type:varchar(254);not null;uniqueIndex:idx_users_email"`
	PasswordHash string     `json:"-" gorm:"type:varchar(128);not null"`
	IsStaff      bool       `json:"-" gorm:"not null;default:false"`
	IsActive     bool       `json:"-" gorm:"not null"`
	LastLogin    *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"-"`
}

func (u *User) SetPassword(raw string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(raw string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(raw)) == nil
}

var placeholderHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("placeholder-password"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return hash
})

// RejectPassword spends one bcrypt comparison on raw and reports false. Login
// calls it for unknown accounts so they take as long as a wrong password.
func RejectPassword(raw string) bool {
	_ = bcrypt.CompareHashAndPassword(placeholderHash(), []byte(raw))
	return false
}

// CanWrite reports whether the user may create, change or delete content.
func (u *User) CanWrite() bool {
	return u != nil && u.IsActive && u.IsStaff
}

// Session is a server-side login. The ID travels in the session cookie.
type Session struct {
	ID        string    `gorm:"type:varchar(80);primaryKey"`
	UserID    uint      `gorm:"not null;index:idx_sessions_user_id"`
	User      User      `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	IPAddress string    `gorm:"type:varchar(64)"`
	UserAgent string    `gorm:"type:text"`
	ExpiresAt time.Time `gorm:"not null;index:idx_sessions_expires_at"`
	CreatedAt time.Time `gorm:"not null"`
}

// GenerateSession creates a new session for userID valid for ttl.
func GenerateSession(userID uint, ipAddress, userAgent string, ttl time.Duration) Session {
	now := time.Now().UTC()
	return Session{
		ID:        "sess_" + NewToken(24),
		UserID:    userID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

func (s Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// NewToken returns size random bytes hex encoded.
func NewToken(size int) string {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed")
	}
	return hex.EncodeToString(b)
}

package models

import (
	"time"

	"travellog/db"
	"travellog/utils"
)

type Session struct {
	SessionToken string    `gorm:"column:sessionToken;primaryKey;type:varchar(64)"`
	UserID       string    `gorm:"column:userId;type:varchar(64);not null;index"`
	User         User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Expires      time.Time `gorm:"column:expires;not null"`
}

func (Session) TableName() string {
	return "sessions"
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.Expires)
}

func SessionCreate(userID string, ttl time.Duration) (s Session, err error) {
	s.SessionToken = utils.Rand16BytesToBase62()
	s.UserID = userID
	s.Expires = time.Now().Add(ttl)
	return s, db.Instance.Create(&s).Error
}

// SessionGet returns the session with its user preloaded. Expired sessions are treated as missing.
func SessionGet(token string) (s Session, ok bool) {
	if token == "" {
		return
	}
	if err := db.Instance.Preload("User").Where(&Session{SessionToken: token}).First(&s).Error; err != nil {
		return Session{}, false
	}
	if s.Expired(time.Now()) {
		return Session{}, false
	}
	return s, true
}

func SessionDelete(token string) error {
	return db.Instance.Delete(&Session{SessionToken: token}).Error
}

func SessionsPurgeExpired(now time.Time) (int64, error) {
	res := db.Instance.Where("expires <= ?", now).Delete(&Session{})
	return res.RowsAffected, res.Error
}

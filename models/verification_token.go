package models

import (
	"errors"
	"strings"
	"time"

	"travellog/config"
	"travellog/db"
	"travellog/utils"
)

var ErrInvalidToken = errors.New("invalid or expired verification token")

// VerificationToken backs the email sign in. Only a hash of the token is stored.
type VerificationToken struct {
	Identifier string    `gorm:"column:identifier;primaryKey;type:varchar(150)"`
	Token      string    `gorm:"column:token;primaryKey;type:varchar(128)"`
	Expires    time.Time `gorm:"column:expires;not null"`
}

func (VerificationToken) TableName() string {
	return "verificationToken"
}

func hashToken(token string) string {
	return utils.Sha512String(token + config.SESSION_KEY)
}

// VerificationTokenCreate returns the plain token, to be delivered to the identifier owner
func VerificationTokenCreate(identifier string, ttl time.Duration) (string, error) {
	token := utils.Rand8BytesToBase62()
	vt := VerificationToken{
		Identifier: strings.ToLower(strings.TrimSpace(identifier)),
		Token:      hashToken(token),
		Expires:    time.Now().Add(ttl),
	}
	if err := db.Instance.Create(&vt).Error; err != nil {
		return "", err
	}
	return token, nil
}

// VerificationTokenUse consumes the token: it can be used once, and only before it expires
func VerificationTokenUse(identifier, token string) error {
	vt := VerificationToken{}
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if err := db.Instance.First(&vt, "identifier = ? AND token = ?", identifier, hashToken(token)).Error; err != nil {
		return ErrInvalidToken
	}
	// Conditions spelled out: a composite key delete becomes a row value IN, which SQLite rejects
	res := db.Instance.Where("identifier = ? AND token = ?", vt.Identifier, vt.Token).Delete(&VerificationToken{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// consumed concurrently
		return ErrInvalidToken
	}
	if !time.Now().Before(vt.Expires) {
		return ErrInvalidToken
	}
	return nil
}

func VerificationTokensPurgeExpired(now time.Time) (int64, error) {
	res := db.Instance.Where("expires <= ?", now).Delete(&VerificationToken{})
	return res.RowsAffected, res.Error
}

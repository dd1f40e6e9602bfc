package models

import (
	"errors"
	"strings"
	"time"

	"travellog/db"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID            string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name          *string    `gorm:"type:varchar(100)" json:"name"`
	Email         string     `gorm:"type:varchar(150);not null;index" json:"email"`
	EmailVerified *time.Time `gorm:"column:emailVerified" json:"email_verified"`
	Image         *string    `gorm:"type:varchar(2000)" json:"image"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

func UserCreate(email string, name *string) (u User, err error) {
	u.Email = email
	u.Name = name
	return u, db.Instance.Create(&u).Error
}

func UserGet(id string) (u User, err error) {
	err = db.Instance.First(&u, "id = ?", id).Error
	return
}

func UserByEmail(email string) (u User, err error) {
	err = db.Instance.First(&u, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	return
}

// UserSignIn returns the user with this email, creating it on first sign in.
// The email is marked verified as the caller has just proven ownership of it.
func UserSignIn(email string) (u User, err error) {
	u, err = UserByEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		u, err = UserCreate(email, nil)
	}
	if err != nil {
		return User{}, err
	}
	if u.EmailVerified == nil {
		now := time.Now()
		u.EmailVerified = &now
		err = db.Instance.Model(&u).Update("emailVerified", now).Error
	}
	return u, err
}

// UserDelete removes the user; accounts, sessions and travel logs go with it (ON DELETE CASCADE)
func UserDelete(id string) (bool, error) {
	res := db.Instance.Delete(&User{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

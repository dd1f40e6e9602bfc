package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"travellog/db"
	"travellog/geo"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinRating = 0
	MaxRating = 10
)

var (
	ErrEmptyTitle    = errors.New("title is required")
	ErrRatingInvalid = fmt.Errorf("rating must be between %d and %d", MinRating, MaxRating)
)

// TravelLog is a geotagged entry shown as a marker on the map
type TravelLog struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title       string    `gorm:"type:varchar(300);not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Image       string    `gorm:"type:varchar(2000);not null" json:"image"`
	Rating      int       `gorm:"not null" json:"rating"`
	VisitDate   time.Time `gorm:"column:visit_date;not null" json:"visit_date"`
	Latitude    float64   `gorm:"type:double precision;not null" json:"latitude"`
	Longitude   float64   `gorm:"type:double precision;not null" json:"longitude"`
	UserID      string    `gorm:"column:user_id;type:varchar(64);not null;index:user_visit_date,priority:1" json:"-"`
	User        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

func (TravelLog) TableName() string {
	return "travel_log"
}

func (t *TravelLog) Position() geo.LatLng {
	return geo.LatLng{Lat: t.Latitude, Lng: t.Longitude}
}

// Validate checks what the store can't: coordinate ranges, rating range, non-empty title
func (t *TravelLog) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if t.Rating < MinRating || t.Rating > MaxRating {
		return ErrRatingInvalid
	}
	return t.Position().Validate()
}

func (t *TravelLog) BeforeSave(tx *gorm.DB) error {
	return t.Validate()
}

func (t *TravelLog) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func TravelLogCreate(t *TravelLog) error {
	return db.Instance.Create(t).Error
}

// TravelLogsForUser returns the user's entries, most recent visit first
func TravelLogsForUser(userID string) (result []TravelLog, err error) {
	result = []TravelLog{}
	err = db.Instance.Where("user_id = ?", userID).Order("visit_date DESC").Find(&result).Error
	return
}

func TravelLogGet(userID, id string) (t TravelLog, err error) {
	err = db.Instance.Where("user_id = ? AND id = ?", userID, id).First(&t).Error
	return
}

func TravelLogDelete(userID, id string) (bool, error) {
	res := db.Instance.Where("user_id = ? AND id = ?", userID, id).Delete(&TravelLog{})
	return res.RowsAffected > 0, res.Error
}

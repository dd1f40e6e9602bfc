package models

import (
	"travellog/db"
)

func Init() error {
	// Users first, everything else references them
	return db.Instance.AutoMigrate(
		&User{},
		&Account{},
		&Session{},
		&VerificationToken{},
		&TravelLog{},
		&Location{},
	)
}

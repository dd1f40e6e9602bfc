package models

import (
	"strings"

	"travellog/db"
	"travellog/geo"
)

const (
	MinLocationDisplaySize = 5
)

// Location is used as cache to avoid hammering the Geocoding service
type Location struct {
	GpsLat      float64 `gorm:"type:double precision;primaryKey" json:"-"` // Rounded to 0.0001
	GpsLong     float64 `gorm:"type:double precision;primaryKey" json:"-"` // Rounded to 0.0001
	Display     string  `gorm:"type:varchar(250)" json:"display"`
	Area        string  `gorm:"type:varchar(100)" json:"area"`
	City        string  `gorm:"type:varchar(100)" json:"city"`
	Country     string  `gorm:"type:varchar(100)" json:"country"`
	CountryCode string  `gorm:"type:varchar(10)" json:"country_code"`
}

// RoughLocation truncates to 0.0001 of precision (~11m), the granularity of the cache
func RoughLocation(p geo.LatLng) (location Location) {
	location.GpsLat = float64(int(p.Lat*10000)) / 10000
	location.GpsLong = float64(int(p.Lng*10000)) / 10000
	return
}

func (n *Location) GetShortDisplay() string {
	r := strings.SplitN(n.Display, ",", 3)
	if len(r) == 1 || len(r[0]) >= MinLocationDisplaySize {
		return r[0]
	}
	return r[0] + "," + r[1]
}

// LocationFind looks up the cache, ok is false on a miss
func LocationFind(p geo.LatLng) (location Location, ok bool) {
	location = RoughLocation(p)
	var result []Location
	if err := db.Instance.Where("gps_lat = ? AND gps_long = ?", location.GpsLat, location.GpsLong).Limit(1).Find(&result).Error; err != nil || len(result) == 0 {
		return location, false
	}
	return result[0], true
}

func LocationSave(location *Location) error {
	return db.Instance.Save(location).Error
}

// Package geo has the coordinate math behind map framing:
// bounding rectangles, Web Mercator projection and fit-to-bounds cameras.
package geo

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrLatitudeOutOfRange  = errors.New("latitude out of range")
	ErrLongitudeOutOfRange = errors.New("longitude out of range")
)

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects NaN/Inf and anything outside [-90,90] x [-180,180]
func (p LatLng) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: %v", ErrLatitudeOutOfRange, p.Lat)
	}
	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: %v", ErrLongitudeOutOfRange, p.Lng)
	}
	return nil
}

func (p LatLng) String() string {
	return fmt.Sprintf("(%f, %f)", p.Lat, p.Lng)
}

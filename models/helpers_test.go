package models

import "travellog/geo"

func geoPoint(lat, lng float64) geo.LatLng {
	return geo.LatLng{Lat: lat, Lng: lng}
}

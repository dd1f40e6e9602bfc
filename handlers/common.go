package handlers

import (
	"travellog/config"
	"travellog/locations"
	"travellog/mapview"
)

type Response struct {
	Error string `json:"error"`
}

var (
	// Predefined errors
	OKResponse           = Response{}
	NotFoundResponse     = Response{"not found"}
	BadSizeResponse      = Response{"width and height must be positive"}
	InvalidTokenResponse = Response{"invalid or expired token"}
	DBError1Response     = Response{"DB Error 1"}
	DBError2Response     = Response{"DB Error 2"}
	DBError3Response     = Response{"DB Error 3"}
	SessionErrorResponse = Response{"session error"}
	StreamBusyResponse   = Response{"map view already has a stream"}
)

var (
	// Views holds the mounted map views of all users
	Views = mapview.NewRegistry(config.MAP_MAX_VIEWS_PER_USER)
	// Geocoder annotates selected points with a place name, nil when disabled
	Geocoder *locations.Geocoder
)

package mapview

import (
	"travellog/config"
	"travellog/geo"
)

// Options is everything a map is constructed with. It is built once per view,
// nothing here is shared mutable state.
type Options struct {
	Camera             geo.Options `json:"-"`
	TileURL            string      `json:"tile_url"`
	TileAttribution    string      `json:"tile_attribution"`
	AttributionControl bool        `json:"attribution_control"`
	MinZoom            int         `json:"min_zoom"`
	MaxZoom            int         `json:"max_zoom"`
	MaxBounds          geo.Bounds  `json:"max_bounds"`
	Fallback           geo.Camera  `json:"fallback"`
}

func OptionsFromConfig() Options {
	camera := geo.Options{
		DefaultCenter: geo.LatLng{Lat: config.MAP_DEFAULT_LAT, Lng: config.MAP_DEFAULT_LNG},
		DefaultZoom:   config.MAP_DEFAULT_ZOOM,
		MinZoom:       config.MAP_MIN_ZOOM,
		MaxZoom:       config.MAP_MAX_ZOOM,
		Padding:       config.MAP_FIT_PADDING,
		MaxBounds:     geo.WorldBounds,
	}
	return Options{
		Camera:             camera,
		TileURL:            config.TILE_URL,
		TileAttribution:    config.TILE_ATTRIBUTION,
		AttributionControl: config.MAP_ATTRIBUTION_CONTROL,
		MinZoom:            camera.MinZoom,
		MaxZoom:            camera.MaxZoom,
		MaxBounds:          camera.MaxBounds,
		Fallback:           camera.Fallback(),
	}
}

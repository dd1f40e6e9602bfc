package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var (
	TLS_DOMAINS    = ""             // e.g. "example.com,example2.com"
	POSTGRES_DSN   = ""             // Postgres will be used if this is set
	MYSQL_DSN      = ""             // MySQL will be used if POSTGRES_DSN is not configured and this is set
	SQLITE_FILE    = "travellog.db" // SQLite is the fallback store
	BIND_ADDRESS   = "0.0.0.0:8080"
	DEBUG_MODE     = true
	SESSION_KEY    = "this is a long key"
	SESSION_COOKIE = "token"
	// Extra browser origins allowed for CORS and the view websocket, e.g. "https://app.example.com".
	// Empty: CORS is open and websockets are same-origin only.
	ALLOWED_ORIGINS = ""
	// Database sessions and the session cookie share this lifetime
	SESSION_MAX_AGE_DAYS           = 30
	VERIFICATION_TOKEN_TTL_MINUTES = 24 * 60
	CLEANUP_SCHEDULE               = "@every 15m"

	// Map view defaults. The fallback camera is used when there are no entries to frame.
	MAP_DEFAULT_LAT         = -34.0
	MAP_DEFAULT_LNG         = -64.0
	MAP_DEFAULT_ZOOM        = 6
	MAP_MIN_ZOOM            = 3
	MAP_MAX_ZOOM            = 10
	MAP_FIT_PADDING         = 0 // pixels on every side when fitting bounds
	MAP_ATTRIBUTION_CONTROL = false
	TILE_URL                = "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png"
	TILE_ATTRIBUTION        = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`

	// Reverse geocoding of the selected point (Nominatim). Off by default, the public instance is rate limited.
	REVERSE_GEOCODE = false
	NOMINATIM_URL   = "https://nominatim.openstreetmap.org"

	// Views without a websocket are unmounted after this long without client activity
	MAP_VIEW_IDLE_MINUTES  = 30
	MAP_MAX_VIEWS_PER_USER = 8
)

func init() {
	// A missing .env is fine, the environment wins anyway
	_ = godotenv.Load()

	readEnvString("TLS_DOMAINS", &TLS_DOMAINS)
	readEnvString("POSTGRES_DSN", &POSTGRES_DSN)
	readEnvString("MYSQL_DSN", &MYSQL_DSN)
	readEnvString("SQLITE_FILE", &SQLITE_FILE)
	readEnvString("BIND_ADDRESS", &BIND_ADDRESS)
	readEnvBool("DEBUG_MODE", &DEBUG_MODE)
	readEnvString("SESSION_KEY", &SESSION_KEY)
	readEnvString("SESSION_COOKIE", &SESSION_COOKIE)
	readEnvString("ALLOWED_ORIGINS", &ALLOWED_ORIGINS)
	readEnvInt("SESSION_MAX_AGE_DAYS", &SESSION_MAX_AGE_DAYS)
	readEnvInt("VERIFICATION_TOKEN_TTL_MINUTES", &VERIFICATION_TOKEN_TTL_MINUTES)
	readEnvString("CLEANUP_SCHEDULE", &CLEANUP_SCHEDULE)
	readEnvFloat("MAP_DEFAULT_LAT", &MAP_DEFAULT_LAT)
	readEnvFloat("MAP_DEFAULT_LNG", &MAP_DEFAULT_LNG)
	readEnvInt("MAP_DEFAULT_ZOOM", &MAP_DEFAULT_ZOOM)
	readEnvInt("MAP_MIN_ZOOM", &MAP_MIN_ZOOM)
	readEnvInt("MAP_MAX_ZOOM", &MAP_MAX_ZOOM)
	readEnvInt("MAP_FIT_PADDING", &MAP_FIT_PADDING)
	readEnvBool("MAP_ATTRIBUTION_CONTROL", &MAP_ATTRIBUTION_CONTROL)
	readEnvString("TILE_URL", &TILE_URL)
	readEnvString("TILE_ATTRIBUTION", &TILE_ATTRIBUTION)
	readEnvBool("REVERSE_GEOCODE", &REVERSE_GEOCODE)
	readEnvString("NOMINATIM_URL", &NOMINATIM_URL)
	readEnvInt("MAP_VIEW_IDLE_MINUTES", &MAP_VIEW_IDLE_MINUTES)
	readEnvInt("MAP_MAX_VIEWS_PER_USER", &MAP_MAX_VIEWS_PER_USER)
}

// AllowedOrigins splits ALLOWED_ORIGINS, without trailing slashes
func AllowedOrigins() (result []string) {
	for _, origin := range strings.Split(ALLOWED_ORIGINS, ",") {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			result = append(result, origin)
		}
	}
	return
}

func readEnvString(name string, value *string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	*value = v
}

func readEnvBool(name string, value *bool) {
	v := strings.ToLower(os.Getenv(name))
	if v == "true" || v == "1" || v == "yes" || v == "on" {
		*value = true
	} else if v == "false" || v == "0" || v == "no" || v == "off" {
		*value = false
	}
}

func readEnvFloat(name string, value *float64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return
	}
	*value = f
}

func readEnvInt(name string, value *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*value = f
}

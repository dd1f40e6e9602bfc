package locations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"travellog/geo"
	"travellog/logger"
	"travellog/metrics"
	"travellog/models"

	"go.uber.org/zap"
)

const (
	// Nominatim usage policy: at most one request per second, we stay well below
	throttling = 3 * time.Second
)

type NominatimAddress struct {
	Aeroway       string `json:"aeroway"`
	Railway       string `json:"railway"`
	Place         string `json:"place"`
	Neighbourhood string `json:"neighbourhood"`
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	Municipality  string `json:"municipality"`
	Province      string `json:"province"`
	State         string `json:"state"`
	Country       string `json:"country"`
	CountryCode   string `json:"country_code"`
}

type NominatimLocation struct {
	DisplayName string           `json:"display_name"`
	Address     NominatimAddress `json:"address"`
}

func (n *NominatimLocation) GetCity() string {
	for _, c := range []string{n.Address.City, n.Address.Town, n.Address.Village, n.Address.Municipality, n.Address.Province} {
		if c != "" {
			return c
		}
	}
	return n.Address.State
}

func (n *NominatimLocation) GetArea() string {
	if n.Address.Aeroway != "" && len(n.Address.Aeroway) > 4 {
		if n.Address.Neighbourhood != "" {
			return n.Address.Aeroway + ", " + n.Address.Neighbourhood
		}
		return n.Address.Aeroway
	}
	if n.Address.Railway != "" {
		return n.Address.Railway
	}
	if n.Address.Place != "" {
		return n.Address.Place
	}
	if n.Address.Neighbourhood != "" {
		return n.Address.Neighbourhood
	}
	a := strings.Split(n.DisplayName, ",")
	city := n.GetCity()
	for i := len(a) - 1; i > 0; i-- {
		if strings.TrimLeft(a[i], " ") == city {
			return strings.TrimLeft(a[i-1], " ")
		}
	}
	if len(a) == 1 || len(a[0]) >= models.MinLocationDisplaySize {
		return a[0]
	}
	return a[0] + "," + a[1]
}

// ToLocation fills in a cache record for p
func (n *NominatimLocation) ToLocation(p geo.LatLng) models.Location {
	location := models.RoughLocation(p)
	location.Display = n.DisplayName
	location.Area = n.GetArea()
	location.City = n.GetCity()
	location.Country = n.Address.Country
	location.CountryCode = n.Address.CountryCode
	return location
}

// Geocoder resolves points to places: local cache first, then a throttled Nominatim request
type Geocoder struct {
	BaseURL  string
	Language string
	Client   *http.Client

	mu          sync.Mutex
	lastRequest time.Time
	throttling  time.Duration
}

func NewGeocoder(baseURL string) *Geocoder {
	return &Geocoder{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Language:   "en",
		Client:     &http.Client{Timeout: 10 * time.Second},
		throttling: throttling,
	}
}

// Resolve returns the place for p; the returned Location is cached for the next lookups
func (g *Geocoder) Resolve(ctx context.Context, p geo.LatLng) (models.Location, error) {
	if location, ok := models.LocationFind(p); ok {
		metrics.GeocodeRequestsTotal.WithLabelValues("cache").Inc()
		return location, nil
	}
	rough := models.RoughLocation(p)
	nominatim, err := g.reverse(ctx, rough.GpsLat, rough.GpsLong)
	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("fail").Inc()
		return models.Location{}, err
	}
	metrics.GeocodeRequestsTotal.WithLabelValues("remote").Inc()
	location := nominatim.ToLocation(p)
	if err = models.LocationSave(&location); err != nil {
		// still usable, just not cached
		logger.L.Warn("location cache save failed", zap.Error(err))
	}
	return location, nil
}

func (g *Geocoder) wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if since := time.Since(g.lastRequest); since < g.throttling {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.throttling - since):
		}
	}
	g.lastRequest = time.Now()
	return nil
}

func (g *Geocoder) reverse(ctx context.Context, lat, long float64) (*NominatimLocation, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/reverse?format=json&lat=%f&lon=%f", g.BaseURL, lat, long)
	logger.L.Debug("nominatim request", zap.String("url", url))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept-language", g.Language)
	req.Header.Set("user-agent", "travellog")
	start := time.Now()
	resp, err := g.Client.Do(req)
	metrics.GeocodeDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim status: %d", resp.StatusCode)
	}
	result := &NominatimLocation{}
	if err = json.NewDecoder(resp.Body).Decode(result); err != nil {
		return nil, fmt.Errorf("nominatim response: %w", err)
	}
	if result.DisplayName == "" {
		return nil, fmt.Errorf("nominatim: no place at %f, %f", lat, long)
	}
	return result, nil
}

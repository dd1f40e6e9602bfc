// Package metrics exposes the Prometheus counters of the server
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ViewEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "travellog_view_events_total",
		Help: "Map view events pushed to subscribers, by type",
	}, []string{"type"})
	GeocodeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "travellog_geocode_requests_total",
		Help: "Reverse geocoding lookups by result (cache, remote, fail)",
	}, []string{"result"})
	GeocodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "travellog_geocode_duration_ms",
		Help:    "Nominatim request duration in milliseconds",
		Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000},
	})
	PurgedRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "travellog_purged_rows_total",
		Help: "Expired rows removed by the cleanup job, by table",
	}, []string{"table"})
)

func init() {
	prometheus.MustRegister(ViewEventsTotal)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeDurationMs)
	prometheus.MustRegister(PurgedRowsTotal)
}

// RegisterViewCount exposes the number of mounted views, count is read on every scrape
func RegisterViewCount(count func() int) error {
	return prometheus.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "travellog_mounted_views",
		Help: "Map views currently mounted",
	}, func() float64 { return float64(count()) }))
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

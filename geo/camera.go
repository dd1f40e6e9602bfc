package geo

import (
	"math"
)

const (
	tileSize = 256
	// Web Mercator cannot represent the poles
	maxMercatorLatitude = 85.0511287798
	// fractional zooms are rounded to this precision before snapping down to an integer
	zoomRoundPrecision = 100
)

// Size is the measured drawable area of a map, in pixels
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Camera is what the map should display: center + zoom.
// Bounds is set when the camera was produced by fitting a rectangle.
type Camera struct {
	Center LatLng  `json:"center"`
	Zoom   int     `json:"zoom"`
	Bounds *Bounds `json:"bounds,omitempty"`
}

type Options struct {
	DefaultCenter LatLng
	DefaultZoom   int
	MinZoom       int
	MaxZoom       int
	Padding       int // pixels, applied on every side
	MaxBounds     Bounds
}

func (o Options) clampZoom(zoom int) int {
	if zoom < o.MinZoom {
		return o.MinZoom
	}
	if zoom > o.MaxZoom {
		return o.MaxZoom
	}
	return zoom
}

// Fallback is the camera used when there is nothing to frame
func (o Options) Fallback() Camera {
	return Camera{
		Center: o.DefaultCenter,
		Zoom:   o.clampZoom(o.DefaultZoom),
	}
}

// Frame fits all points into size, or falls back to the default camera when there are none
func Frame(points []LatLng, size Size, opt Options) Camera {
	bounds, ok := BoundsOf(points)
	if !ok {
		return opt.Fallback()
	}
	return FitBounds(bounds, size, opt)
}

// FitBounds picks the largest whole zoom at which b fits inside size (minus padding),
// centered on the projected middle of b.
func FitBounds(b Bounds, size Size, opt Options) Camera {
	rect := b
	camera := Camera{Bounds: &rect}

	width := float64(size.Width - 2*opt.Padding)
	height := float64(size.Height - 2*opt.Padding)
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	swX, swY := Project(b.SouthWest, 0)
	neX, neY := Project(b.NorthEast, 0)
	boundsWidth := math.Abs(neX - swX)
	boundsHeight := math.Abs(swY - neY)

	scale := math.Min(width/boundsWidth, height/boundsHeight)
	if math.IsInf(scale, 1) || math.IsNaN(scale) {
		// Single point (or a line): nothing to fit, zoom in as far as allowed
		camera.Center = LatLng{
			Lat: (b.SouthWest.Lat + b.NorthEast.Lat) / 2,
			Lng: (b.SouthWest.Lng + b.NorthEast.Lng) / 2,
		}
		camera.Zoom = opt.MaxZoom
		return camera
	}
	zoom := math.Log2(scale)
	zoom = math.Round(zoom*zoomRoundPrecision) / zoomRoundPrecision
	camera.Zoom = opt.clampZoom(int(math.Floor(zoom)))
	camera.Center = clampToBounds(Unproject((swX+neX)/2, (swY+neY)/2, 0), opt.MaxBounds)
	return camera
}

// Project converts p to pixel coordinates at zoom (spherical Web Mercator, 256px tiles)
func Project(p LatLng, zoom float64) (x, y float64) {
	scale := tileSize * math.Exp2(zoom)
	lat := math.Max(math.Min(p.Lat, maxMercatorLatitude), -maxMercatorLatitude)
	sin := math.Sin(lat * math.Pi / 180)
	x = scale * (p.Lng + 180) / 360
	y = scale * (0.5 - 0.25*math.Log((1+sin)/(1-sin))/math.Pi)
	return
}

// Unproject is the inverse of Project
func Unproject(x, y float64, zoom float64) LatLng {
	scale := tileSize * math.Exp2(zoom)
	n := math.Pi - 2*math.Pi*y/scale
	return LatLng{
		Lat: 180 / math.Pi * math.Atan(math.Sinh(n)),
		Lng: x/scale*360 - 180,
	}
}

func clampToBounds(p LatLng, b Bounds) LatLng {
	if b == (Bounds{}) {
		return p
	}
	p.Lat = math.Max(math.Min(p.Lat, b.NorthEast.Lat), b.SouthWest.Lat)
	p.Lng = math.Max(math.Min(p.Lng, b.NorthEast.Lng), b.SouthWest.Lng)
	return p
}

package geo

// Bounds is an axis-aligned lat/lng rectangle
type Bounds struct {
	SouthWest LatLng `json:"south_west"`
	NorthEast LatLng `json:"north_east"`
}

// WorldBounds is the area the map is never panned out of
var WorldBounds = Bounds{
	SouthWest: LatLng{Lat: -90, Lng: -180},
	NorthEast: LatLng{Lat: 90, Lng: 180},
}

// BoundsOf returns the minimal rectangle covering all points; false if there are none
func BoundsOf(points []LatLng) (b Bounds, ok bool) {
	for i, p := range points {
		if i == 0 {
			b = Bounds{SouthWest: p, NorthEast: p}
			continue
		}
		b.Extend(p)
	}
	return b, len(points) > 0
}

func (b *Bounds) Extend(p LatLng) {
	if p.Lat < b.SouthWest.Lat {
		b.SouthWest.Lat = p.Lat
	}
	if p.Lng < b.SouthWest.Lng {
		b.SouthWest.Lng = p.Lng
	}
	if p.Lat > b.NorthEast.Lat {
		b.NorthEast.Lat = p.Lat
	}
	if p.Lng > b.NorthEast.Lng {
		b.NorthEast.Lng = p.Lng
	}
}

func (b Bounds) Contains(p LatLng) bool {
	return p.Lat >= b.SouthWest.Lat && p.Lat <= b.NorthEast.Lat &&
		p.Lng >= b.SouthWest.Lng && p.Lng <= b.NorthEast.Lng
}

func (b Bounds) MinLat() float64 { return b.SouthWest.Lat }
func (b Bounds) MaxLat() float64 { return b.NorthEast.Lat }
func (b Bounds) MinLng() float64 { return b.SouthWest.Lng }
func (b Bounds) MaxLng() float64 { return b.NorthEast.Lng }

package domain

import "math"

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// kmPerDegree approximates the length of one degree of latitude.
const kmPerDegree = 111.0

// DefaultSearchRadiusKm is used for geo searches that omit a radius.
const DefaultSearchRadiusKm = 5.0

// Library is a physical branch that owns a set of books.
type Library struct {
	Timestamps
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	Phone        string   `json:"phone,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	OpeningHours string   `json:"opening_hours,omitempty"`
	Description  string   `json:"description,omitempty"`
}

// HasLocation reports whether both coordinates are known.
func (l *Library) HasLocation() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// DistanceFrom returns the haversine distance in kilometres from the given point.
// The second return value is false when the library has no coordinates.
func (l *Library) DistanceFrom(lat, lng float64) (float64, bool) {
	if !l.HasLocation() {
		return 0, false
	}
	return Haversine(lat, lng, *l.Latitude, *l.Longitude), true
}

// Haversine returns the great-circle distance between two points in kilometres.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// BoundingBox is a coarse lat/lng rectangle used to prefilter geo queries
// before the exact haversine check. MinLng > MaxLng means the box crosses the
// antimeridian and covers [MinLng, 180] plus [-180, MaxLng].
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// CrossesAntimeridian reports whether the longitude range wraps past ±180.
func (b BoundingBox) CrossesAntimeridian() bool {
	return b.MinLng > b.MaxLng
}

// Contains reports whether the point lies inside the box.
func (b BoundingBox) Contains(lat, lng float64) bool {
	if lat < b.MinLat || lat > b.MaxLat {
		return false
	}
	if b.CrossesAntimeridian() {
		return lng >= b.MinLng || lng <= b.MaxLng
	}
	return lng >= b.MinLng && lng <= b.MaxLng
}

// BoundingBoxAround returns the rectangle that contains every point within
// radiusKm of (lat, lng).
func BoundingBoxAround(lat, lng, radiusKm float64) BoundingBox {
	latDelta := radiusKm / kmPerDegree
	box := BoundingBox{
		MinLat: math.Max(-90, lat-latDelta),
		MaxLat: math.Min(90, lat+latDelta),
		MinLng: -180,
		MaxLng: 180,
	}

	// A circle over a pole reaches every longitude.
	if box.MinLat <= -90 || box.MaxLat >= 90 {
		return box
	}

	// Longitude degrees shrink towards the poles, so size the span at the
	// box edge nearest one.
	cosLat := math.Cos(toRadians(math.Max(math.Abs(box.MinLat), math.Abs(box.MaxLat))))
	if cosLat <= 1e-9 {
		return box
	}
	lngDelta := radiusKm / (kmPerDegree * cosLat)
	if lngDelta >= 180 {
		return box
	}

	box.MinLng, box.MaxLng = lng-lngDelta, lng+lngDelta
	if box.MinLng < -180 {
		box.MinLng += 360
	}
	if box.MaxLng > 180 {
		box.MaxLng -= 360
	}
	return box
}

// LibraryWithDistance pairs a library with its distance from a search origin.
// DistanceKm is nil for searches without an origin.
type LibraryWithDistance struct {
	*Library
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// LibrarySearch selects libraries. Precedence: geo when both coordinates are
// set, then Name, then Address, otherwise everything.
type LibrarySearch struct {
	Name      string
	Address   string
	Latitude  *float64
	Longitude *float64
	RadiusKm  float64
}

// IsGeo reports whether the search has an origin.
func (s LibrarySearch) IsGeo() bool {
	return s.Latitude != nil && s.Longitude != nil
}

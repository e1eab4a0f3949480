// Package geo holds the spherical-Earth math used for dispatch proximity.
package geo

import (
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by Distance.
const EarthRadiusMeters = 6371008.8

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Valid checks latitude and longitude ranges.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Distance returns the haversine great-circle distance in meters.
func Distance(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Box is a lat/lng rectangle. MinLng may exceed MaxLng when the box crosses the antimeridian.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Contains reports whether p lies inside the box.
func (b Box) Contains(p Point) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	if b.MinLng <= b.MaxLng {
		return p.Lng >= b.MinLng && p.Lng <= b.MaxLng
	}
	return p.Lng >= b.MinLng || p.Lng <= b.MaxLng
}

// WrapsAntimeridian reports whether the box crosses longitude ±180.
func (b Box) WrapsAntimeridian() bool {
	return b.MinLng > b.MaxLng
}

// BoundingBox returns a box that contains every point within radius meters of center.
// It over-covers; callers filter exactly with Distance.
func BoundingBox(center Point, radiusMeters float64) Box {
	// padded so points exactly on the circle survive float rounding
	angular := radiusMeters * (1 + 1e-9) / EarthRadiusMeters
	dLat := degrees(angular)

	minLat := center.Lat - dLat
	maxLat := center.Lat + dLat
	if minLat <= -90 || maxLat >= 90 {
		// a pole is inside the circle, every longitude qualifies
		return Box{
			MinLat: math.Max(minLat, -90),
			MaxLat: math.Min(maxLat, 90),
			MinLng: -180,
			MaxLng: 180,
		}
	}

	dLng := degrees(math.Asin(math.Min(1, math.Sin(angular)/math.Cos(radians(center.Lat)))))
	return Box{
		MinLat: minLat,
		MaxLat: maxLat,
		MinLng: normalizeLng(center.Lng - dLng),
		MaxLng: normalizeLng(center.Lng + dLng),
	}
}

func normalizeLng(lng float64) float64 {
	for lng < -180 {
		lng += 360
	}
	for lng > 180 {
		lng -= 360
	}
	return lng
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

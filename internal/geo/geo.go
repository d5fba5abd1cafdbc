// Package geo provides great-circle distance and nearest-site matching.
package geo

import (
	"math"

	"github.com/foresyt/fleetsync/internal/models"
)

// Unit selects the Earth radius constant for distance results. Downstream
// consumers use kilometers and miles independently, so the unit is chosen
// per call rather than fixed module-wide.
type Unit int

const (
	Kilometers Unit = iota
	Miles
)

// Earth radius constants.
const (
	EarthRadiusKm = 6371.0
	EarthRadiusMi = 3958.7613
)

func (u Unit) radius() float64 {
	if u == Miles {
		return EarthRadiusMi
	}
	return EarthRadiusKm
}

// String returns "km" or "mi".
func (u Unit) String() string {
	if u == Miles {
		return "mi"
	}
	return "km"
}

// ParseUnit maps a config string to a Unit, defaulting to kilometers.
func ParseUnit(s string) Unit {
	switch s {
	case "mi", "mile", "miles":
		return Miles
	default:
		return Kilometers
	}
}

// Distance computes the haversine distance between two points in the given
// unit.
func Distance(lat1, lon1, lat2, lon2 float64, unit Unit) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return unit.radius() * c
}

// MatchOptions bounds a nearest-site lookup. MaxDistance <= 0 means
// unbounded.
type MatchOptions struct {
	MaxDistance float64
	Unit        Unit
}

// Nearest returns the closest site to the position, with its distance in
// opts.Unit. The scan is linear and the first site attaining the minimum
// wins ties. When MaxDistance is set and the nearest site exceeds it, the
// result is absent ("unassigned"), never a closest-but-too-far site.
//
// O(sites) per call; fine at fleet scale, but the first thing to replace
// with a spatial index if the site list grows by an order of magnitude.
func Nearest(lat, lon float64, sites []models.JobSite, opts MatchOptions) (*models.JobSite, float64, bool) {
	if len(sites) == 0 {
		return nil, 0, false
	}

	best := -1
	bestDist := math.Inf(1)
	for i := range sites {
		d := Distance(lat, lon, sites[i].Latitude, sites[i].Longitude, opts.Unit)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}

	if opts.MaxDistance > 0 && bestDist > opts.MaxDistance {
		return nil, 0, false
	}
	return &sites[best], bestDist, true
}

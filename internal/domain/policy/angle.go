package policy

import (
	"math"

	"github.com/ge-entretec/debours/internal/domain/entity"
)

// DistanceKm returns the great-circle distance between two locations.
func DistanceKm(a, b entity.Location) float64 {
	const earthRadiusKm = 6371.0

	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// RespectsAngleRule reports whether the angle at the claimant's home
// between the workplace direction and the mission direction exceeds
// 90°. A mission lying in the commute direction (angle <= 90°) is a
// commute disguised as a mission and fails the rule.
func RespectsAngleRule(home, workplace, mission entity.Location) bool {
	// Planar approximation around home; longitude scaled by
	// cos(latitude) so both axes are in comparable units.
	scale := math.Cos(home.Latitude * math.Pi / 180)

	wx := (workplace.Longitude - home.Longitude) * scale
	wy := workplace.Latitude - home.Latitude
	mx := (mission.Longitude - home.Longitude) * scale
	my := mission.Latitude - home.Latitude

	wn := math.Hypot(wx, wy)
	mn := math.Hypot(mx, my)
	if wn == 0 || mn == 0 {
		// Degenerate geometry never satisfies the rule
		return false
	}

	cos := (wx*mx + wy*my) / (wn * mn)
	// Angle > 90° iff the cosine is negative
	return cos < 0
}

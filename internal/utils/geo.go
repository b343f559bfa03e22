package utils

import (
	"math"
	"strings"

	"github.com/umahmood/haversine"
)

/*
   DistanceMeters uses Haversine for a direct "as-the-crow-flies" distance
   between two lat/lng points, in meters.
*/
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := haversine.Coord{Lat: lat1, Lon: lon1}
	p2 := haversine.Coord{Lat: lat2, Lon: lon2}
	_, km := haversine.Distance(p1, p2)
	return km * 1000
}

// ValidateCoordinates checks that lat/lng are inside their legal ranges.
func ValidateCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// SubnetPrefix returns the first three octets of a dotted-quad IPv4
// address ("192.168.43.17" -> "192.168.43"), or "" if the address does
// not have four octets. Matching on this /24 equivalent is the same
// convention the hotspot gateway derivation uses.
func SubnetPrefix(ip string) string {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return ""
	}
	return strings.Join(parts[:3], ".")
}

// SameSubnet reports whether two IPv4 addresses share a first-three-octet
// prefix. Both must be well formed for a match.
func SameSubnet(ipA, ipB string) bool {
	pa := SubnetPrefix(ipA)
	return pa != "" && pa == SubnetPrefix(ipB)
}

// RoundMeters rounds a distance to the nearest whole meter for display.
func RoundMeters(d float64) float64 {
	return math.Round(d)
}

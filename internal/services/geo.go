package services

import (
	"math"
	"strconv"
	"strings"

	"onu-map/internal/domain"
)

// ParseLocation turns upstream coordinate text into a location. Missing,
// unparseable, non-finite, out of range and 0,0 coordinates yield nil.
func ParseLocation(lat, lng string) *domain.LatLng {
	la, ok := parseCoordinate(lat)
	if !ok {
		return nil
	}
	lo, ok := parseCoordinate(lng)
	if !ok {
		return nil
	}

	if la == 0 && lo == 0 {
		return nil
	}
	if la < -90 || la > 90 || lo < -180 || lo > 180 {
		return nil
	}

	return &domain.LatLng{Lat: la, Lng: lo}
}

func parseCoordinate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// some panels export decimal commas
	s = strings.Replace(s, ",", ".", 1)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

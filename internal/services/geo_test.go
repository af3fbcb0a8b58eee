package services

import (
	"testing"

	"onu-map/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng string
		want     *domain.LatLng
	}{
		{name: "valid", lat: "-7.1", lng: "110.8", want: &domain.LatLng{Lat: -7.1, Lng: 110.8}},
		{name: "padded", lat: " -23.55 ", lng: "-46.63", want: &domain.LatLng{Lat: -23.55, Lng: -46.63}},
		{name: "decimal comma", lat: "-7,1", lng: "110,8", want: &domain.LatLng{Lat: -7.1, Lng: 110.8}},
		{name: "zero sentinel", lat: "0", lng: "0"},
		{name: "zero sentinel decimals", lat: "0.000", lng: "0.0"},
		{name: "nan", lat: "NaN", lng: "12"},
		{name: "infinite", lat: "+Inf", lng: "12"},
		{name: "missing longitude", lat: "-7.1", lng: ""},
		{name: "missing both"},
		{name: "non numeric", lat: "abc", lng: "110.8"},
		{name: "latitude out of range", lat: "91", lng: "10"},
		{name: "longitude out of range", lat: "10", lng: "-181"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLocation(tt.lat, tt.lng))
		})
	}
}

func TestParseLocationKeepsZeroOnOneAxis(t *testing.T) {
	loc := ParseLocation("0", "-50.5")
	if assert.NotNil(t, loc) {
		assert.Equal(t, 0.0, loc.Lat)
		assert.Equal(t, -50.5, loc.Lng)
	}
}

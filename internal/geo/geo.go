// Package geo resolves where a complaint happened: GPS coordinates embedded
// in a photo's EXIF block, or coordinates supplied by the client, turned into
// an administrative location through a reverse-geocoding service.
package geo

import (
	"fmt"
	"strconv"
	"strings"
)

// Coordinates is a WGS84 latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// String renders the pair as "lat,lon".
func (c Coordinates) String() string {
	return fmt.Sprintf("%s,%s", formatDegrees(c.Lat), formatDegrees(c.Lon))
}

// ParseCoordinates parses client-supplied latitude and longitude strings.
// Blank or non-numeric input yields false.
func ParseCoordinates(lat, lon string) (Coordinates, bool) {
	lat, lon = strings.TrimSpace(lat), strings.TrimSpace(lon)
	if lat == "" || lon == "" {
		return Coordinates{}, false
	}
	latVal, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return Coordinates{}, false
	}
	lonVal, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: latVal, Lon: lonVal}, true
}

// Location is the administrative address of a point. Any field may be empty.
type Location struct {
	State    string `json:"state"`
	District string `json:"district"`
	City     string `json:"city"`
}

// Empty reports whether no field was resolved.
func (l Location) Empty() bool {
	return l.State == "" && l.District == "" && l.City == ""
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

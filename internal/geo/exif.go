package geo

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

var errMalformedGPS = errors.New("malformed gps tag")

// ExifExtractor reads GPS coordinates from a photo's EXIF metadata.
//
// By default the hemisphere reference tags are ignored, so southern and
// western positions come out with a positive sign. ApplyHemisphere opts into
// signing the values by GPSLatitudeRef/GPSLongitudeRef.
type ExifExtractor struct {
	ApplyHemisphere bool
}

// ExtractCoordinates returns the embedded GPS position. Images without EXIF,
// without a GPS block, or with malformed rationals yield false.
func (e ExifExtractor) ExtractCoordinates(image []byte) (coords Coordinates, ok bool) {
	if len(image) == 0 {
		return Coordinates{}, false
	}
	// goexif can panic on truncated IFDs.
	defer func() {
		if r := recover(); r != nil {
			coords, ok = Coordinates{}, false
		}
	}()

	x, err := exif.Decode(bytes.NewReader(image))
	if err != nil {
		return Coordinates{}, false
	}

	lat, err := readDecimal(x, exif.GPSLatitude)
	if err != nil {
		return Coordinates{}, false
	}
	lon, err := readDecimal(x, exif.GPSLongitude)
	if err != nil {
		return Coordinates{}, false
	}

	if e.ApplyHemisphere {
		if ref := readRef(x, exif.GPSLatitudeRef); ref == "S" {
			lat = -lat
		}
		if ref := readRef(x, exif.GPSLongitudeRef); ref == "W" {
			lon = -lon
		}
	}

	return Coordinates{Lat: lat, Lon: lon}, true
}

func readDecimal(x *exif.Exif, field exif.FieldName) (float64, error) {
	tag, err := x.Get(field)
	if err != nil {
		return 0, err
	}
	dms, err := rationalTriple(tag)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return dmsToDecimal(dms)
}

func rationalTriple(tag *tiff.Tag) ([3][2]int64, error) {
	var dms [3][2]int64
	if tag == nil || tag.Format() != tiff.RatVal || tag.Count < 3 {
		return dms, errMalformedGPS
	}
	for i := 0; i < 3; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return dms, err
		}
		dms[i] = [2]int64{num, den}
	}
	return dms, nil
}

// dmsToDecimal converts degree/minute/second rationals to decimal degrees.
func dmsToDecimal(dms [3][2]int64) (float64, error) {
	var parts [3]float64
	for i, r := range dms {
		if r[1] == 0 {
			return 0, errMalformedGPS
		}
		parts[i] = float64(r[0]) / float64(r[1])
	}
	return parts[0] + parts[1]/60.0 + parts[2]/3600.0, nil
}

func readRef(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	ref, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.ToUpper(strings.Trim(ref, " \x00"))
}

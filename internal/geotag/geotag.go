// Package geotag reads GPS coordinates from EXIF metadata.
package geotag

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	log "github.com/sirupsen/logrus"
)

// Coordinates is a position in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String formats the coordinates with four decimals.
func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lng)
}

// DMSToDecimal converts degrees, minutes and seconds to decimal degrees.
// South and west references produce negative values.
func DMSToDecimal(deg, mins, secs float64, ref string) float64 {
	dd := deg + mins/60 + secs/3600
	if ref == "S" || ref == "W" {
		dd = -dd
	}
	return dd
}

// ExtractFile reads GPS coordinates from the image at path.
func ExtractFile(path string) (*Coordinates, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	return Extract(f)
}

// ExtractBytes reads GPS coordinates from an encoded image.
func ExtractBytes(data []byte) (*Coordinates, error) {
	return Extract(bytes.NewReader(data))
}

// Extract reads GPS coordinates from r. It returns nil coordinates and no
// error when the image has no EXIF block or lacks any of the latitude,
// longitude or reference tags.
func Extract(r io.Reader) (*Coordinates, error) {
	x, err := exif.Decode(r)
	if err != nil {
		if exif.IsCriticalError(err) {
			log.Debugf("geotag: no usable exif: %v", err)
			return nil, nil
		}
		// Non-critical errors still leave the parsed tags usable.
		log.Debugf("geotag: partial exif: %v", err)
	}

	lat, ok := readAxis(x, exif.GPSLatitude, exif.GPSLatitudeRef)
	if !ok {
		return nil, nil
	}
	lng, ok := readAxis(x, exif.GPSLongitude, exif.GPSLongitudeRef)
	if !ok {
		return nil, nil
	}
	return &Coordinates{Lat: lat, Lng: lng}, nil
}

func readAxis(x *exif.Exif, valueField, refField exif.FieldName) (float64, bool) {
	if x == nil {
		return 0, false
	}
	value, err := x.Get(valueField)
	if err != nil {
		return 0, false
	}
	refTag, err := x.Get(refField)
	if err != nil {
		return 0, false
	}
	ref, err := refTag.StringVal()
	if err != nil || ref == "" {
		return 0, false
	}

	dms, err := rationals(value, 3)
	if err != nil {
		log.Debugf("geotag: malformed %s: %v", valueField, err)
		return 0, false
	}
	return DMSToDecimal(dms[0], dms[1], dms[2], ref[:1]), true
}

func rationals(tag *tiff.Tag, n int) ([]float64, error) {
	if int(tag.Count) < n {
		return nil, fmt.Errorf("want %d values, tag has %d", n, tag.Count)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return nil, err
		}
		if den == 0 {
			return nil, fmt.Errorf("zero denominator at %d", i)
		}
		out[i] = float64(num) / float64(den)
	}
	return out, nil
}

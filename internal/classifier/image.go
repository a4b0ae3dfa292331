package classifier

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/noah-isme/civic-complaints-api/internal/models"
)

const (
	sampleSize = 200
	// maxPixels bounds decoding work for a single upload.
	maxPixels = 50_000_000
)

var errImageTooLarge = errors.New("image dimensions too large")

// MeanColor is the average channel intensity in 0..255.
type MeanColor struct {
	R, G, B float64
}

// ClassifyImage scales the photo to 200x200, averages its colour channels and
// applies the colour rules. Undecodable images and colours matching no rule
// yield false.
func ClassifyImage(data []byte) (Result, bool) {
	mean, err := MeanRGB(data)
	if err != nil {
		return Result{}, false
	}
	return ClassifyColor(mean)
}

// ClassifyColor applies the colour rules in order. All comparisons are strict.
func ClassifyColor(c MeanColor) (Result, bool) {
	switch {
	case c.B > 130 && c.G > 120:
		return Result{IssueType: models.IssueDrainage, Severity: models.SeverityHigh}, true
	case c.R > 140 && c.G > 140 && c.B < 100:
		return Result{IssueType: models.IssueElectrical, Severity: models.SeverityCritical}, true
	case c.R < 80 && c.G < 80 && c.B < 80:
		return Result{IssueType: models.IssueRoad, Severity: models.SeverityHigh}, true
	default:
		return Result{}, false
	}
}

// MeanRGB decodes the image and returns the mean colour of its 200x200
// downsample. Alpha is discarded.
func MeanRGB(data []byte) (MeanColor, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return MeanColor{}, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return MeanColor{}, errImageTooLarge
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return MeanColor{}, err
	}

	dst := image.NewNRGBA(image.Rect(0, 0, sampleSize, sampleSize))
	if b := src.Bounds(); b.Dx() == sampleSize && b.Dy() == sampleSize {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}

	var r, g, bl uint64
	for i := 0; i < len(dst.Pix); i += 4 {
		r += uint64(dst.Pix[i])
		g += uint64(dst.Pix[i+1])
		bl += uint64(dst.Pix[i+2])
	}
	n := float64(sampleSize * sampleSize)
	return MeanColor{R: float64(r) / n, G: float64(g) / n, B: float64(bl) / n}, nil
}

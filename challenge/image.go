package challenge

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"math"
	"math/big"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	defaultImageWidth  = 200
	defaultImageHeight = 80

	noisePoints = 400
	strikeLines = 4
	fontSize    = 36
)

// renderImage draws the answer onto a noisy PNG and returns it base64-encoded.
// Per-glyph rotation and color plus noise points and strike lines keep the text
// human-readable but awkward for naive OCR.
func renderImage(answer string, width, height int) (string, error) {
	dc := gg.NewContext(width, height)

	dc.SetRGB(0.97, 0.97, 0.97)
	dc.Clear()

	if err := addNoise(dc, width, height); err != nil {
		return "", err
	}

	parsed, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return "", err
	}
	dc.SetFontFace(truetype.NewFace(parsed, &truetype.Options{Size: fontSize}))

	for i, glyph := range answer {
		n := float64(len(answer))
		dc.SetRGB(
			0.1+0.6*float64(i)/n,
			0.1+0.5*(n-float64(i))/n,
			0.2+0.5*math.Sin(float64(i)),
		)

		angle := -0.2 + 0.4*float64(i)/n
		x := float64(width)/8 + float64(i)*float64(width)/8
		y := float64(height)/2 + 10*math.Sin(float64(i))

		dc.RotateAbout(angle, x, y)
		dc.DrawStringAnchored(string(glyph), x, y, 0.5, 0.5)
		dc.RotateAbout(-angle, x, y)
	}

	if err := addStrikeLines(dc, width, height); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func addNoise(dc *gg.Context, width, height int) error {
	for i := 0; i < noisePoints; i++ {
		x, err := randFloat(width)
		if err != nil {
			return err
		}
		y, err := randFloat(height)
		if err != nil {
			return err
		}
		r, err := randFloat(100)
		if err != nil {
			return err
		}
		g, err := randFloat(100)
		if err != nil {
			return err
		}
		b, err := randFloat(100)
		if err != nil {
			return err
		}

		dc.SetRGBA(r/100, g/100, b/100, 0.3)
		dc.DrawPoint(x, y, 1)
		dc.Fill()
	}
	return nil
}

func addStrikeLines(dc *gg.Context, width, height int) error {
	for i := 0; i < strikeLines; i++ {
		y1, err := randFloat(height)
		if err != nil {
			return err
		}
		y2, err := randFloat(height)
		if err != nil {
			return err
		}

		dc.SetRGBA(0.5, 0.5, 0.5, 0.5)
		dc.SetLineWidth(1)
		dc.DrawLine(0, y1, float64(width), y2)
		dc.Stroke()
	}
	return nil
}

func randFloat(max int) (float64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return float64(n.Int64()), nil
}

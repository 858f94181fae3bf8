package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"os"

	"golang.org/x/image/draw"
)

// MaxSide bounds the width and height of stored product photos.
const MaxSide = 1600

// MaxPixels caps the declared size of an upload before it is decoded.
const MaxPixels = 40_000_000

const jpegQuality = 85

// ErrUnsupported is returned for anything that is not a JPEG or PNG.
var ErrUnsupported = errors.New("unsupported image format")

// ErrTooLarge is returned when the header declares more than MaxPixels.
var ErrTooLarge = errors.New("image dimensions too large")

// ToJPEG sniffs data, shrinks it to fit MaxSide and re-encodes it as JPEG.
func ToJPEG(data []byte) ([]byte, error) {
	switch ct := http.DetectContentType(data); ct {
	case "image/jpeg", "image/png":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ct)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	img = fit(img, MaxSide)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// NormalizeFile rewrites the image at path as JPEG in place. On error the
// file is left untouched.
func NormalizeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := ToJPEG(data)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

func fit(img image.Image, max int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= max && h <= max {
		return img
	}

	nw, nh := max, max
	if w > h {
		nh = h * max / w
	} else {
		nw = w * max / h
	}
	nw, nh = atLeast1(nw), atLeast1(nh)

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func atLeast1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

package devcms

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/eringen/pubfront/richtext"
)

const (
	maxImageWidth = 1600
	jpegQuality   = 80
)

// processImage decodes an image, scales it down to maxImageWidth when wider
// and encodes it as JPEG.
func processImage(src io.Reader) ([]byte, richtext.Dimensions, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, richtext.Dimensions{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = maxImageWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, richtext.Dimensions{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), richtext.Dimensions{Width: w, Height: h}, nil
}

// writeMedia processes the image at path and stores it as name.jpg in dir.
func writeMedia(path, dir, name string) (string, richtext.Dimensions, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", richtext.Dimensions{}, err
	}
	defer f.Close()

	data, dims, err := processImage(f)
	if err != nil {
		return "", richtext.Dimensions{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", richtext.Dimensions{}, fmt.Errorf("create media dir: %w", err)
	}
	filename := name + ".jpg"
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		return "", richtext.Dimensions{}, fmt.Errorf("write image: %w", err)
	}
	return filename, dims, nil
}

package quality

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	// Registered decoders for the formats accepted from clients.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// maxPixels bounds decoded image size before any pixel buffer is allocated.
const maxPixels = 40_000_000

// Decode reads any registered image format.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrImageDecode)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("%w: %s image of %dx%d rejected", ErrImageDecode, format, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return img, nil
}

// NormalizeCrop resamples region of src into a size×size RGBA image.
func NormalizeCrop(src image.Image, region image.Rectangle, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	// CatmullRom = high quality, good for photos/faces
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, region, xdraw.Src, nil)
	return dst
}

// expand grows r by margin times its size on each side, clipped to bounds.
func expand(r image.Rectangle, margin float64, bounds image.Rectangle) image.Rectangle {
	dx := int(math.Round(float64(r.Dx()) * margin))
	dy := int(math.Round(float64(r.Dy()) * margin))
	return image.Rect(r.Min.X-dx, r.Min.Y-dy, r.Max.X+dx, r.Max.Y+dy).Intersect(bounds)
}

// luminance returns the Rec.601 luma of every pixel on a 0..255 scale,
// row-major, together with the image width.
func luminance(img image.Image) ([]float64, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, 0, w*h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			out = append(out, float64(g.Y))
		}
	}
	return out, w
}

// Package appearance implements the pixel-level comparators: colour
// histogram, structural similarity and local binary pattern texture.
package appearance

import (
	"context"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"faceverify/internal/verification/models"
	"faceverify/internal/verification/providers"
)

// grayscale returns the crop resampled to a size×size grey image, memoised
// on the crop.
func grayscale(ctx context.Context, crop *models.FaceCrop, size int) (*image.Gray, error) {
	if err := checkCrop(crop); err != nil {
		return nil, err
	}
	return models.Memoize(ctx, crop, fmt.Sprintf("gray:%d", size), func() (*image.Gray, error) {
		dst := image.NewGray(image.Rect(0, 0, size, size))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), crop.Image, crop.Image.Bounds(), xdraw.Src, nil)
		return dst, nil
	})
}

func checkCrop(crop *models.FaceCrop) error {
	if crop == nil || crop.Image == nil || crop.Image.Bounds().Empty() {
		return providers.NewProviderError(providers.ErrorBadData, "appearance", "missing face crop", nil)
	}
	return nil
}

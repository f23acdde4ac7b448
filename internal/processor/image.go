package processor

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/timkrebs/imageweb/internal/orientation"
)

// Metadata is the subset of decoded image metadata the processors read and update
type Metadata struct {
	Orientation orientation.Code
}

// FormattedImage is a decoded image together with the format it will be
// encoded to. Processors mutate it in place.
type FormattedImage struct {
	Image    *image.NRGBA
	Format   imaging.Format
	Metadata Metadata
	// Quality is the JPEG encoder quality, 1..100
	Quality int
}

// NewFormattedImage wraps an image that carries no orientation metadata
func NewFormattedImage(img image.Image, format imaging.Format) *FormattedImage {
	return &FormattedImage{
		Image:   imaging.Clone(img),
		Format:  format,
		Quality: DefaultQuality,
	}
}

// Size returns the current pixel dimensions
func (f *FormattedImage) Size() image.Point {
	return f.Image.Bounds().Size()
}

// Upright applies the correction for the pending orientation and marks the
// image as upright. Images without orientation metadata are left alone.
func (f *FormattedImage) Upright() orientation.Transform {
	correction := orientation.Resolve(f.Metadata.Orientation)
	f.Image = orientation.Apply(f.Image, correction)
	if f.Metadata.Orientation != orientation.Unknown {
		f.Metadata.Orientation = orientation.TopLeft
	}
	return correction
}

// Oriented reports whether the pixels still wait on an orientation correction
func (f *FormattedImage) Oriented() bool {
	return orientation.Resolve(f.Metadata.Orientation).IsIdentity()
}

package resize

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// ErrImageTooLarge is returned when a resize would exceed the configured limits
var ErrImageTooLarge = errors.New("image exceeds size limits")

// Limits bounds the images a Resizer will produce. Zero fields are unlimited.
type Limits struct {
	MaxWidth  int
	MaxHeight int
	MaxPixels int64
}

// Check validates a size against the limits
func (l Limits) Check(size image.Point) error {
	switch {
	case l.MaxWidth > 0 && size.X > l.MaxWidth:
		return fmt.Errorf("%w: width %d > %d", ErrImageTooLarge, size.X, l.MaxWidth)
	case l.MaxHeight > 0 && size.Y > l.MaxHeight:
		return fmt.Errorf("%w: height %d > %d", ErrImageTooLarge, size.Y, l.MaxHeight)
	case l.MaxPixels > 0 && int64(size.X)*int64(size.Y) > l.MaxPixels:
		return fmt.Errorf("%w: %d pixels > %d", ErrImageTooLarge, int64(size.X)*int64(size.Y), l.MaxPixels)
	}
	return nil
}

// Request is a resize request together with its rendering choices
type Request struct {
	Options
	Sampler    Sampler
	Background color.Color
}

// Resizer scales images according to the mode policy
type Resizer struct {
	limits Limits
}

// NewResizer creates a resizer enforcing the given limits
func NewResizer(limits Limits) *Resizer {
	return &Resizer{limits: limits}
}

// Limits returns the limits the resizer enforces
func (r *Resizer) Limits() Limits {
	return r.limits
}

// Resize produces an image whose size is exactly the policy's canvas. The
// source is returned untouched when the geometry is the identity.
func (r *Resizer) Resize(img *image.NRGBA, req Request) (*image.NRGBA, Geometry, error) {
	src := img.Bounds().Size()
	geom, err := Calculate(src, req.Options)
	if err != nil {
		return nil, Geometry{}, err
	}
	if err := r.limits.Check(geom.Canvas); err != nil {
		return nil, geom, err
	}

	if geom.Fills() && geom.Canvas == src {
		return img, geom, nil
	}

	if geom.Crops() {
		region := sourceRegion(src, geom).Add(img.Bounds().Min)
		visible := imaging.Crop(img, region)
		if visible.Bounds().Size() == geom.Canvas {
			return visible, geom, nil
		}
		return imaging.Resize(visible, geom.Canvas.X, geom.Canvas.Y, req.Sampler.Filter()), geom, nil
	}

	size := geom.Destination.Size()
	scaled := img
	if size != src {
		scaled = imaging.Resize(img, size.X, size.Y, req.Sampler.Filter())
	}

	switch {
	case geom.Fills():
		return scaled, geom, nil
	default:
		bg := req.Background
		if bg == nil {
			bg = color.Transparent
		}
		canvas := imaging.New(geom.Canvas.X, geom.Canvas.Y, bg)
		return imaging.Paste(canvas, scaled, geom.Destination.Min), geom, nil
	}
}

// sourceRegion maps the part of the destination that lands on the canvas back
// onto source pixels, so a crop never scales pixels it would throw away.
func sourceRegion(src image.Point, geom Geometry) image.Rectangle {
	dest := geom.Destination.Size()
	visible := image.Rectangle{Max: geom.Canvas}.Sub(geom.Destination.Min).Intersect(image.Rectangle{Max: dest})
	sx := float64(src.X) / float64(dest.X)
	sy := float64(src.Y) / float64(dest.Y)

	region := image.Rect(
		int(math.Floor(float64(visible.Min.X)*sx)),
		int(math.Floor(float64(visible.Min.Y)*sy)),
		int(math.Ceil(float64(visible.Max.X)*sx)),
		int(math.Ceil(float64(visible.Max.Y)*sy)),
	).Intersect(image.Rectangle{Max: src})
	if region.Dx() < 1 {
		region.Max.X = min(src.X, region.Min.X+1)
		region.Min.X = region.Max.X - 1
	}
	if region.Dy() < 1 {
		region.Max.Y = min(src.Y, region.Min.Y+1)
		region.Min.Y = region.Max.Y - 1
	}
	return region
}

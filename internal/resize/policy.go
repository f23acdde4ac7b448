package resize

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrInvalidSize is returned when the source or requested dimensions cannot produce an image
var ErrInvalidSize = errors.New("invalid resize dimensions")

// MaxDimension is the largest width or height the policy will produce
const MaxDimension = 65535

// Options is a resize request. A zero Width or Height is derived from the
// other axis using the source aspect ratio.
type Options struct {
	Width  int
	Height int
	Mode   Mode
	Anchor Anchor
	// Center is an optional focal point for Crop given as fractions of the
	// source in 0..1. It is used only when it holds exactly two values.
	Center []float64
}

// Geometry is the result of the mode policy: the size of the output canvas
// and where the scaled source lands on it. Destination may extend past the
// canvas when the mode crops.
type Geometry struct {
	Canvas      image.Point
	Destination image.Rectangle
}

// Fills reports whether the scaled source exactly covers the canvas
func (g Geometry) Fills() bool {
	return g.Destination == image.Rectangle{Max: g.Canvas}
}

// Crops reports whether part of the scaled source falls outside the canvas
func (g Geometry) Crops() bool {
	return !g.Destination.In(image.Rectangle{Max: g.Canvas})
}

// Calculate applies the mode policy to a source of the given size
func Calculate(src image.Point, opts Options) (Geometry, error) {
	if src.X <= 0 || src.Y <= 0 {
		return Geometry{}, fmt.Errorf("%w: source %dx%d", ErrInvalidSize, src.X, src.Y)
	}
	w, h := opts.Width, opts.Height
	if w < 0 || h < 0 || (w == 0 && h == 0) {
		return Geometry{}, fmt.Errorf("%w: requested %dx%d", ErrInvalidSize, w, h)
	}
	if w > MaxDimension || h > MaxDimension {
		return Geometry{}, fmt.Errorf("%w: requested %dx%d exceeds %d", ErrImageTooLarge, w, h, MaxDimension)
	}

	derived := w == 0 || h == 0
	if w == 0 {
		w = max(1, round(float64(src.X)*float64(h)/float64(src.Y)))
	}
	if h == 0 {
		h = max(1, round(float64(src.Y)*float64(w)/float64(src.X)))
	}
	if w > MaxDimension || h > MaxDimension {
		return Geometry{}, fmt.Errorf("%w: derived %dx%d exceeds %d", ErrImageTooLarge, w, h, MaxDimension)
	}

	target := image.Pt(w, h)
	if derived && (opts.Mode == Crop || opts.Mode == Pad || opts.Mode == BoxPad) {
		return fill(target), nil
	}

	switch opts.Mode {
	case Stretch:
		return fill(target), nil
	case Pad:
		return pad(src, target, opts.Anchor), nil
	case BoxPad:
		if src.X <= w && src.Y <= h {
			hAlign, vAlign := opts.Anchor.split()
			off := image.Pt(offset(hAlign, w, src.X), offset(vAlign, h, src.Y))
			return Geometry{Canvas: target, Destination: image.Rectangle{Min: off, Max: off.Add(src)}}, nil
		}
		return pad(src, target, opts.Anchor), nil
	case Max:
		return fill(maxSize(src, target)), nil
	case Min:
		return fill(minSize(src, target)), nil
	default:
		return crop(src, target, opts.Anchor, opts.Center), nil
	}
}

func fill(size image.Point) Geometry {
	return Geometry{Canvas: size, Destination: image.Rectangle{Max: size}}
}

func ratios(src, target image.Point) (float64, float64) {
	return float64(target.X) / float64(src.X), float64(target.Y) / float64(src.Y)
}

func crop(src, target image.Point, anchor Anchor, center []float64) Geometry {
	ratioW, ratioH := ratios(src, target)
	hAlign, vAlign := anchor.split()
	focal := len(center) == 2

	var dest image.Rectangle
	if ratioH < ratioW {
		dh := max(1, round(float64(src.Y)*ratioW))
		y := offset(vAlign, target.Y, dh)
		if focal {
			y = focus(target.Y, dh, center[1])
		}
		dest = image.Rect(0, y, target.X, y+dh)
	} else {
		dw := max(1, round(float64(src.X)*ratioH))
		x := offset(hAlign, target.X, dw)
		if focal {
			x = focus(target.X, dw, center[0])
		}
		dest = image.Rect(x, 0, x+dw, target.Y)
	}
	return Geometry{Canvas: target, Destination: dest}
}

func pad(src, target image.Point, anchor Anchor) Geometry {
	ratioW, ratioH := ratios(src, target)
	hAlign, vAlign := anchor.split()

	var dest image.Rectangle
	switch {
	case ratioH < ratioW:
		dw := max(1, round(float64(src.X)*ratioH))
		x := offset(hAlign, target.X, dw)
		dest = image.Rect(x, 0, x+dw, target.Y)
	case ratioW < ratioH:
		dh := max(1, round(float64(src.Y)*ratioW))
		y := offset(vAlign, target.Y, dh)
		dest = image.Rect(0, y, target.X, y+dh)
	default:
		dest = image.Rectangle{Max: target}
	}
	return Geometry{Canvas: target, Destination: dest}
}

func maxSize(src, target image.Point) image.Point {
	ratioW, ratioH := ratios(src, target)
	if ratioW < ratioH {
		return image.Pt(target.X, max(1, round(float64(src.Y)*ratioW)))
	}
	return image.Pt(max(1, round(float64(src.X)*ratioH)), target.Y)
}

func minSize(src, target image.Point) image.Point {
	if target.X > src.X || target.Y > src.Y {
		return src
	}
	ratioW, ratioH := ratios(src, target)
	if ratioW > ratioH {
		return image.Pt(target.X, max(1, round(float64(src.Y)*ratioW)))
	}
	return image.Pt(max(1, round(float64(src.X)*ratioH)), target.Y)
}

// offset positions length inside span; negative results crop
func offset(a align, span, length int) int {
	switch a {
	case alignStart:
		return 0
	case alignEnd:
		return span - length
	default:
		return (span - length) / 2
	}
}

// focus centres the fraction c of length on span without exposing the canvas
func focus(span, length int, c float64) int {
	off := round(float64(span)/2 - float64(length)*c)
	return min(0, max(span-length, off))
}

func round(v float64) int {
	return int(math.Round(v))
}

package resize

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func createTestImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

var red = color.NRGBA{R: 255, A: 255}

func TestResizer_Resize(t *testing.T) {
	r := NewResizer(Limits{})

	tests := []struct {
		name string
		src  image.Point
		opts Options
		want image.Point
	}{
		{"stretch", image.Pt(1, 1), Options{Width: 4, Height: 6, Mode: Stretch}, image.Pt(4, 6)},
		{"crop", image.Pt(200, 100), Options{Width: 50, Height: 50}, image.Pt(50, 50)},
		{"pad", image.Pt(200, 100), Options{Width: 50, Height: 50, Mode: Pad}, image.Pt(50, 50)},
		{"boxpad", image.Pt(20, 10), Options{Width: 50, Height: 50, Mode: BoxPad}, image.Pt(50, 50)},
		{"max", image.Pt(200, 100), Options{Width: 50, Height: 50, Mode: Max}, image.Pt(50, 25)},
		{"min", image.Pt(20, 10), Options{Width: 50, Height: 50, Mode: Min}, image.Pt(20, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range Samplers() {
				got, geom, err := r.Resize(createTestImage(tt.src.X, tt.src.Y, red), Request{Options: tt.opts, Sampler: s})
				if err != nil {
					t.Fatalf("Resize(%v) error = %v", s, err)
				}
				if got.Bounds().Size() != tt.want {
					t.Errorf("Resize(%v) size = %v, want %v", s, got.Bounds().Size(), tt.want)
				}
				if geom.Canvas != tt.want {
					t.Errorf("Resize(%v) canvas = %v, want %v", s, geom.Canvas, tt.want)
				}
			}
		})
	}
}

func TestResizer_PadFillsBackground(t *testing.T) {
	r := NewResizer(Limits{})
	blue := color.NRGBA{B: 255, A: 255}

	got, _, err := r.Resize(createTestImage(20, 10, red), Request{
		Options:    Options{Width: 20, Height: 20, Mode: Pad},
		Sampler:    NearestNeighbor,
		Background: blue,
	})
	if err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if c := got.NRGBAAt(10, 0); c != blue {
		t.Errorf("padding pixel = %v, want %v", c, blue)
	}
	if c := got.NRGBAAt(10, 10); c != red {
		t.Errorf("image pixel = %v, want %v", c, red)
	}
}

func TestResizer_CropKeepsAnchoredSide(t *testing.T) {
	r := NewResizer(Limits{})
	src := createTestImage(20, 10, red)
	green := color.NRGBA{G: 255, A: 255}
	for y := 0; y < 10; y++ {
		for x := 10; x < 20; x++ {
			src.SetNRGBA(x, y, green)
		}
	}

	got, _, err := r.Resize(src, Request{
		Options: Options{Width: 10, Height: 10, Mode: Crop, Anchor: Right},
		Sampler: NearestNeighbor,
	})
	if err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if got.Bounds().Size() != image.Pt(10, 10) {
		t.Fatalf("size = %v, want (10,10)", got.Bounds().Size())
	}
	if c := got.NRGBAAt(0, 0); c != green {
		t.Errorf("pixel = %v, want %v", c, green)
	}
}

func TestResizer_IdentityReturnsSource(t *testing.T) {
	r := NewResizer(Limits{})
	src := createTestImage(8, 8, red)

	got, _, err := r.Resize(src, Request{Options: Options{Width: 8, Height: 8}})
	if err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if got != src {
		t.Error("identity resize should return the source image")
	}
}

func TestResizer_Limits(t *testing.T) {
	tests := []struct {
		name   string
		limits Limits
		opts   Options
	}{
		{"width", Limits{MaxWidth: 100}, Options{Width: 101, Height: 10, Mode: Stretch}},
		{"height", Limits{MaxHeight: 100}, Options{Width: 10, Height: 101, Mode: Stretch}},
		{"pixels", Limits{MaxPixels: 10_000}, Options{Width: 101, Height: 100, Mode: Stretch}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResizer(tt.limits)
			_, _, err := r.Resize(createTestImage(20, 10, red), Request{Options: tt.opts})
			if !errors.Is(err, ErrImageTooLarge) {
				t.Errorf("Resize() error = %v, want ErrImageTooLarge", err)
			}
		})
	}
}

// Only the canvas counts against the limits, never the scaled size before cropping.
func TestResizer_CropWithinLimits(t *testing.T) {
	r := NewResizer(Limits{MaxWidth: 8192, MaxHeight: 8192, MaxPixels: 16_777_216})

	tests := []struct {
		name string
		src  image.Point
		opts Options
		want image.Point
	}{
		{"wide banner", image.Pt(300, 200), Options{Width: 8000, Height: 400, Mode: Crop}, image.Pt(8000, 400)},
		{"tall strip", image.Pt(200, 300), Options{Width: 400, Height: 8000, Mode: Crop}, image.Pt(400, 8000)},
		{"focal point", image.Pt(300, 200), Options{Width: 8000, Height: 400, Mode: Crop, Center: []float64{0.5, 0.9}}, image.Pt(8000, 400)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := r.Resize(createTestImage(tt.src.X, tt.src.Y, red), Request{Options: tt.opts, Sampler: Triangle})
			if err != nil {
				t.Fatalf("Resize() error = %v", err)
			}
			if got.Bounds().Size() != tt.want {
				t.Errorf("size = %v, want %v", got.Bounds().Size(), tt.want)
			}
		})
	}
}

func TestSourceRegion(t *testing.T) {
	tests := []struct {
		name string
		src  image.Point
		opts Options
		want image.Rectangle
	}{
		{"right half", image.Pt(20, 10), Options{Width: 10, Height: 10, Anchor: Right}, image.Rect(10, 0, 20, 10)},
		{"top half", image.Pt(10, 20), Options{Width: 10, Height: 10, Anchor: Top}, image.Rect(0, 0, 10, 10)},
		{"centre of upscale", image.Pt(4, 2), Options{Width: 8, Height: 8}, image.Rect(1, 0, 3, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geom, err := Calculate(tt.src, tt.opts)
			if err != nil {
				t.Fatalf("Calculate() error = %v", err)
			}
			if got := sourceRegion(tt.src, geom); got != tt.want {
				t.Errorf("sourceRegion() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResizer_InvalidSize(t *testing.T) {
	r := NewResizer(Limits{})
	_, _, err := r.Resize(createTestImage(4, 4, red), Request{})
	if !errors.Is(err, ErrInvalidSize) {
		t.Errorf("Resize() error = %v, want ErrInvalidSize", err)
	}
}

package processor

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/timkrebs/imageweb/internal/commands"
	"github.com/timkrebs/imageweb/internal/orientation"
	"github.com/timkrebs/imageweb/internal/resize"
)

// Resize command names. The r-prefixed forms are accepted aliases.
const (
	Sampler  = "sampler"
	RSampler = "rsampler"
	Width    = "width"
	Height   = "height"
	XY       = "xy"
	RXY      = "rxy"
	Mode     = "mode"
	RMode    = "rmode"
	Orient   = "orient"
	ROrient  = "rorient"
	Anchor   = "ranchor"
	PadColor = "rcolor"
)

// Outcome describes what a resize did to an image
type Outcome struct {
	Width          int
	Height         int
	Rotation       int
	FlipHorizontal bool
	FlipVertical   bool
	Canvas         image.Point
	Destination    image.Rectangle
	Resized        bool
}

// ResizeWebProcessor corrects EXIF orientation and resizes images from URL commands
type ResizeWebProcessor struct {
	resizer *resize.Resizer
}

// NewResizeWebProcessor creates a resize processor backed by resizer
func NewResizeWebProcessor(resizer *resize.Resizer) *ResizeWebProcessor {
	if resizer == nil {
		resizer = resize.NewResizer(resize.Limits{})
	}
	return &ResizeWebProcessor{resizer: resizer}
}

func (p *ResizeWebProcessor) Name() string {
	return "resize"
}

func (p *ResizeWebProcessor) Commands() []string {
	return []string{Sampler, RSampler, Width, Height, XY, RXY, Mode, RMode, Orient, ROrient, Anchor, PadColor}
}

// Request reads the resize request from the commands. Width and height are
// as requested, before any orientation swap.
func (p *ResizeWebProcessor) Request(cmds *commands.Collection, parser *commands.Parser, culture commands.Culture) resize.Request {
	center := parser.FloatArray(cmds, cmds.First(XY, RXY), nil, culture)
	if len(center) != 2 {
		center = nil
	}
	return resize.Request{
		Options: resize.Options{
			Width:  int(parser.Uint(cmds, Width, 0, culture)),
			Height: int(parser.Uint(cmds, Height, 0, culture)),
			Mode:   commands.EnumValue(parser, cmds, cmds.First(Mode, RMode), ResizeModes, resize.Crop, culture),
			Anchor: commands.EnumValue(parser, cmds, Anchor, Anchors, resize.Center, culture),
			Center: center,
		},
		Sampler:    commands.EnumValue(parser, cmds, cmds.First(Sampler, RSampler), Samplers, resize.Bicubic, culture),
		Background: parser.Color(cmds, PadColor, color.NRGBA{}, culture),
	}
}

// AutoOrient reports whether EXIF orientation should be corrected. It is on
// unless orient or rorient is false.
func AutoOrient(cmds *commands.Collection, parser *commands.Parser, culture commands.Culture) bool {
	return parser.Bool(cmds, cmds.First(Orient, ROrient), true, culture)
}

// Transform corrects orientation and resizes img in place, reporting what was done
func (p *ResizeWebProcessor) Transform(img *FormattedImage, logger *slog.Logger, cmds *commands.Collection, parser *commands.Parser, culture commands.Culture) (Outcome, error) {
	req := p.Request(cmds, parser, culture)

	var correction orientation.Transform
	if AutoOrient(cmds, parser, culture) {
		correction = img.Upright()
	}
	if correction.SwapsAxes() {
		req.Width, req.Height = req.Height, req.Width
	}

	out := Outcome{
		Rotation:       correction.Rotation,
		FlipHorizontal: correction.FlipHorizontal,
		FlipVertical:   correction.FlipVertical,
	}

	if req.Width > 0 || req.Height > 0 {
		resized, geom, err := p.resizer.Resize(img.Image, req)
		if err != nil {
			return out, fmt.Errorf("failed to resize image: %w", err)
		}
		img.Image = resized
		out.Canvas = geom.Canvas
		out.Destination = geom.Destination
		out.Resized = true
	}

	size := img.Size()
	out.Width, out.Height = size.X, size.Y
	if !out.Resized {
		out.Canvas = size
		out.Destination = image.Rectangle{Max: size}
	}

	if logger != nil {
		logger.Debug("image resized",
			"width", out.Width,
			"height", out.Height,
			"mode", req.Mode.String(),
			"sampler", req.Sampler.String(),
			"rotation", out.Rotation,
		)
	}
	return out, nil
}

func (p *ResizeWebProcessor) Process(img *FormattedImage, logger *slog.Logger, cmds *commands.Collection, parser *commands.Parser, culture commands.Culture) (*FormattedImage, error) {
	if _, err := p.Transform(img, logger, cmds, parser, culture); err != nil {
		return nil, err
	}
	return img, nil
}

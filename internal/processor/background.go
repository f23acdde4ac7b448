package processor

import (
	"image"
	"image/color"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/timkrebs/imageweb/internal/commands"
)

// BackgroundColor is the command that flattens transparency onto a colour
const BackgroundColor = "bgcolor"

// BackgroundColorWebProcessor composites the image over a solid colour
type BackgroundColorWebProcessor struct{}

func (BackgroundColorWebProcessor) Name() string {
	return "backgroundcolor"
}

func (BackgroundColorWebProcessor) Commands() []string {
	return []string{BackgroundColor}
}

func (BackgroundColorWebProcessor) Process(img *FormattedImage, logger *slog.Logger, cmds *commands.Collection, parser *commands.Parser, culture commands.Culture) (*FormattedImage, error) {
	c := parser.Color(cmds, BackgroundColor, color.NRGBA{}, culture)
	if c.A == 0 {
		return img, nil
	}
	size := img.Size()
	bg := imaging.New(size.X, size.Y, c)
	img.Image = imaging.Overlay(bg, img.Image, image.Pt(0, 0), 1.0)
	return img, nil
}

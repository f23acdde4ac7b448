package processor

import (
	"log/slog"

	"github.com/timkrebs/imageweb/internal/commands"
)

// Format and quality command names
const (
	Format  = "format"
	Quality = "quality"
)

// DefaultQuality is the JPEG quality used when none is requested
const DefaultQuality = 75

// FormatWebProcessor selects the output encoding
type FormatWebProcessor struct{}

func (FormatWebProcessor) Name() string {
	return "format"
}

func (FormatWebProcessor) Commands() []string {
	return []string{Format}
}

func (FormatWebProcessor) Process(img *FormattedImage, logger *slog.Logger, cmds *commands.Collection, parser *commands.Parser, culture commands.Culture) (*FormattedImage, error) {
	img.Format = commands.EnumValue(parser, cmds, Format, Formats, img.Format, culture)
	return img, nil
}

// QualityWebProcessor sets the JPEG encoder quality, clamped to 1..100
type QualityWebProcessor struct{}

func (QualityWebProcessor) Name() string {
	return "quality"
}

func (QualityWebProcessor) Commands() []string {
	return []string{Quality}
}

func (QualityWebProcessor) Process(img *FormattedImage, logger *slog.Logger, cmds *commands.Collection, parser *commands.Parser, culture commands.Culture) (*FormattedImage, error) {
	q := parser.Uint(cmds, Quality, uint(img.Quality), culture)
	img.Quality = int(min(max(q, 1), 100))
	return img, nil
}

package processor

import (
	"strings"

	"github.com/disintegration/imaging"

	"github.com/timkrebs/imageweb/internal/commands"
	"github.com/timkrebs/imageweb/internal/resize"
)

// Enum tables for the command values processors accept. They are built
// once at package initialization and shared read-only.
var (
	ResizeModes = commands.NewEnum("ResizeMode", resize.Modes(), resize.Mode.String)
	Samplers    = commands.NewEnum("Sampler", resize.Samplers(), resize.Sampler.String)
	Anchors     = commands.NewEnum("AnchorPosition", resize.Anchors(), resize.Anchor.String)
)

// Formats lists the encoder formats. Names are lower case file extensions.
var Formats = commands.NewEnum("Format", []imaging.Format{imaging.JPEG, imaging.PNG, imaging.GIF, imaging.TIFF, imaging.BMP}, formatName).
	Alias("jpg", imaging.JPEG).
	Alias("tif", imaging.TIFF)

func formatName(f imaging.Format) string {
	return strings.ToLower(f.String())
}

// contentTypes maps encoder formats to their MIME type
var contentTypes = map[imaging.Format]string{
	imaging.JPEG: "image/jpeg",
	imaging.PNG:  "image/png",
	imaging.GIF:  "image/gif",
	imaging.TIFF: "image/tiff",
	imaging.BMP:  "image/bmp",
}

// ContentType returns the MIME type for an encoder format
func ContentType(f imaging.Format) string {
	if ct, ok := contentTypes[f]; ok {
		return ct
	}
	return "application/octet-stream"
}

package processor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/timkrebs/imageweb/internal/commands"
	"github.com/timkrebs/imageweb/internal/metrics"
	"github.com/timkrebs/imageweb/internal/orientation"
	"github.com/timkrebs/imageweb/internal/resize"
)

// ErrDecode is returned when the source bytes are not a supported image
var ErrDecode = errors.New("unsupported or corrupt image")

// Processor decodes a source image, runs the web processors whose commands
// are present and encodes the result.
type Processor struct {
	processors []WebProcessor
	parser     *commands.Parser
	logger     *slog.Logger
	source     resize.Limits
	metrics    *metrics.ProcessingMetrics
}

// ProcessResult contains the processed image and metadata
type ProcessResult struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// DefaultProcessors returns the processor chain in execution order
func DefaultProcessors(resizer *resize.Resizer) []WebProcessor {
	return []WebProcessor{
		BackgroundColorWebProcessor{},
		NewResizeWebProcessor(resizer),
		FormatWebProcessor{},
		QualityWebProcessor{},
	}
}

// New creates a processor running the given chain. An empty chain runs
// DefaultProcessors with no size limits.
func New(parser *commands.Parser, logger *slog.Logger, processors ...WebProcessor) *Processor {
	if parser == nil {
		parser = commands.NewParser(commands.DefaultRegistry(), logger)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if len(processors) == 0 {
		processors = DefaultProcessors(nil)
	}
	return &Processor{processors: processors, parser: parser, logger: logger}
}

// SetMetrics injects metrics collectors into the processor
func (p *Processor) SetMetrics(m *metrics.ProcessingMetrics) {
	p.metrics = m
}

// SetSourceLimits bounds the dimensions of images accepted for decoding
func (p *Processor) SetSourceLimits(l resize.Limits) {
	p.source = l
}

// Processors returns the chain in execution order
func (p *Processor) Processors() []WebProcessor {
	return slices.Clone(p.processors)
}

// Commands returns every command name recognised by the chain, sorted
func (p *Processor) Commands() []string {
	var names []string
	for _, wp := range p.processors {
		names = append(names, wp.Commands()...)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// Sanitize returns a copy of cmds without the commands no processor recognises
func (p *Processor) Sanitize(cmds *commands.Collection) *commands.Collection {
	known := p.Commands()
	out := commands.NewCollection()
	for _, c := range cmds.All() {
		if _, ok := slices.BinarySearch(known, strings.ToLower(c.Name)); ok {
			out.Add(c)
		}
	}
	return out
}

// Decode reads and decodes a source image along with its EXIF orientation
func (p *Processor) Decode(reader io.Reader) (*FormattedImage, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := p.source.Check(image.Pt(cfg.Width, cfg.Height)); err != nil {
		return nil, err
	}

	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	format, err := imaging.FormatFromExtension(name)
	if err != nil {
		// decoders without an encoder, such as webp
		format = imaging.PNG
	}

	fi := NewFormattedImage(img, format)
	fi.Metadata.Orientation = orientation.FromEXIF(bytes.NewReader(data))
	return fi, nil
}

// Apply runs each processor whose commands are present in cmds. Unless
// orientation is disabled the result is upright even when no processor
// corrected it, because re-encoding would otherwise lose the EXIF tag.
func (p *Processor) Apply(img *FormattedImage, cmds *commands.Collection, culture commands.Culture) (*FormattedImage, error) {
	for _, wp := range p.processors {
		if !handles(wp, cmds) {
			continue
		}
		start := time.Now()
		out, err := wp.Process(img, p.logger.With("processor", wp.Name()), cmds, p.parser, culture)
		if p.metrics != nil {
			metrics.RecordDuration(start, p.metrics.ProcessorDuration.WithLabelValues(wp.Name()))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to apply %s: %w", wp.Name(), err)
		}
		img = out
	}
	if !img.Oriented() && AutoOrient(cmds, p.parser, culture) {
		img.Upright()
	}
	return img, nil
}

// Encode encodes the image in its target format. A JPEG whose orientation
// is still pending carries the tag forward.
func (p *Processor) Encode(img *FormattedImage) (*ProcessResult, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img.Image, img.Format, imaging.JPEGQuality(img.Quality)); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", img.Format, err)
	}
	data := buf.Bytes()
	if img.Format == imaging.JPEG && !img.Oriented() {
		data = orientation.EmbedJPEG(data, img.Metadata.Orientation)
	}

	size := img.Size()
	return &ProcessResult{
		Data:        data,
		ContentType: ContentType(img.Format),
		Width:       size.X,
		Height:      size.Y,
	}, nil
}

// Process decodes the image read from reader, applies cmds and encodes the result
func (p *Processor) Process(reader io.Reader, cmds *commands.Collection, culture commands.Culture) (*ProcessResult, error) {
	start := time.Now()
	result, format, err := p.process(reader, cmds, culture)

	if p.metrics != nil {
		status := "success"
		if err != nil {
			status = "failed"
		}
		metrics.RecordDuration(start, p.metrics.ProcessingDuration.WithLabelValues(status))
		p.metrics.ImagesTotal.WithLabelValues(format, status).Inc()
		if result != nil {
			p.metrics.OutputPixels.Observe(float64(result.Width * result.Height))
		}
	}
	return result, err
}

func (p *Processor) process(reader io.Reader, cmds *commands.Collection, culture commands.Culture) (*ProcessResult, string, error) {
	img, err := p.Decode(reader)
	if err != nil {
		return nil, "unknown", err
	}
	source := formatName(img.Format)
	img, err = p.Apply(img, cmds, culture)
	if err != nil {
		return nil, source, err
	}
	result, err := p.Encode(img)
	return result, formatName(img.Format), err
}

package processor

import (
	"log/slog"

	"github.com/timkrebs/imageweb/internal/commands"
)

// WebProcessor applies one family of URL commands to an image
type WebProcessor interface {
	// Name identifies the processor in logs and metrics
	Name() string
	// Commands lists every command name the processor reads, aliases included
	Commands() []string
	// Process applies the processor's commands to img. Malformed command
	// values fall back to defaults; only failures of the imaging operations
	// are returned.
	Process(img *FormattedImage, logger *slog.Logger, cmds *commands.Collection, parser *commands.Parser, culture commands.Culture) (*FormattedImage, error)
}

// handles reports whether any of the processor's commands is present
func handles(p WebProcessor, cmds *commands.Collection) bool {
	for _, name := range p.Commands() {
		if cmds.Contains(name) {
			return true
		}
	}
	return false
}

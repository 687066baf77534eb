package display

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Viewport receives window-level requests from the display.
type Viewport interface {
	SetAlwaysOnTop(on bool)
}

// TerminalViewport records window requests. A terminal has no window level
// to change, so the display shows the pin state in its header instead.
type TerminalViewport struct {
	mu     sync.Mutex
	onTop  bool
	logger *log.Logger
}

// NewTerminalViewport creates a viewport that logs requests to logger.
func NewTerminalViewport(logger *log.Logger) *TerminalViewport {
	if logger == nil {
		logger = log.Default()
	}
	return &TerminalViewport{logger: logger.WithPrefix("display")}
}

func (v *TerminalViewport) SetAlwaysOnTop(on bool) {
	v.mu.Lock()
	v.onTop = on
	v.mu.Unlock()
	v.logger.Debug("Window level changed", "always_on_top", on)
}

// AlwaysOnTop reports the last requested state.
func (v *TerminalViewport) AlwaysOnTop() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.onTop
}

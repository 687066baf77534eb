package display

import (
	"time"

	"github.com/zenibako/theatremix-display/theatremix"
)

// Status line texts.
const (
	StatusConnecting      = "Connecting…"
	StatusSubscribed      = "Subscribed"
	StatusReconnecting    = "Reconnecting…"
	StatusSubscribeFailed = "Subscription failed"

	errorPrefix       = "Error: "
	invalidHostPrefix = "Invalid host: "
)

// NextPlaceholder fills the next-cue slot; the console never reports it.
const NextPlaceholder = "(not provided by OSC)"

// CueState is what the display knows about the console.
type CueState struct {
	Current   theatremix.CueInfo
	Next      string
	Connected bool
	LastRx    time.Time // zero until something arrives
}

// NewCueState returns the state shown before any event.
func NewCueState() CueState {
	return CueState{Next: NextPlaceholder}
}

// Apply folds one agent event into the state. It returns the new status text
// and true when the event changes the status line.
func (s *CueState) Apply(ev theatremix.Event, now time.Time) (string, bool) {
	switch e := ev.(type) {
	case theatremix.CueFired:
		s.Current = e.Cue
		s.touch(now)
	case theatremix.Thump:
		s.touch(now)
	case theatremix.SubscribeOK:
		s.Connected = true
		return StatusSubscribed, true
	case theatremix.SubscribeFail:
		s.Connected = false
		return StatusSubscribeFailed, true
	case theatremix.Error:
		s.Connected = false
		return errorPrefix + e.Reason(), true
	}
	return "", false
}

// Invalidate marks the subscription as gone after a host change.
func (s *CueState) Invalidate() {
	s.Connected = false
}

// touch moves LastRx forward, never back.
func (s *CueState) touch(now time.Time) {
	if now.After(s.LastRx) {
		s.LastRx = now
	}
}

// SinceLastRx returns the time since the last packet, or false if none.
func (s CueState) SinceLastRx(now time.Time) (time.Duration, bool) {
	if s.LastRx.IsZero() {
		return 0, false
	}
	d := now.Sub(s.LastRx)
	if d < 0 {
		d = 0
	}
	return d, true
}

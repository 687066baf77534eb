package display

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zenibako/theatremix-display/theatremix"
)

func TestCueStateApply(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 19, 30, 0, 0, time.UTC)

	t.Run("cue fired replaces current and touches last rx", func(t *testing.T) {
		s := NewCueState()
		cue := theatremix.CueInfo{Number: "Q12", Text: "Enter Juliet", Color: "red", HasColor: true}

		status, changed := s.Apply(theatremix.CueFired{Cue: cue}, t0)

		assert.False(t, changed)
		assert.Empty(t, status)
		assert.Equal(t, cue, s.Current)
		assert.Equal(t, t0, s.LastRx)
		assert.Equal(t, NextPlaceholder, s.Next)
	})

	t.Run("subscribe ok connects", func(t *testing.T) {
		s := NewCueState()
		status, changed := s.Apply(theatremix.SubscribeOK{Expiry: 10}, t0)

		assert.True(t, changed)
		assert.Equal(t, StatusSubscribed, status)
		assert.True(t, s.Connected)
		assert.True(t, s.LastRx.IsZero(), "subscribe ok does not count as received traffic")
	})

	t.Run("subscribe fail disconnects", func(t *testing.T) {
		s := NewCueState()
		s.Apply(theatremix.SubscribeOK{Expiry: 10}, t0)
		status, changed := s.Apply(theatremix.SubscribeFail{}, t0)

		assert.True(t, changed)
		assert.Equal(t, StatusSubscribeFailed, status)
		assert.False(t, s.Connected)
	})

	t.Run("error disconnects with reason", func(t *testing.T) {
		s := NewCueState()
		s.Apply(theatremix.SubscribeOK{Expiry: 10}, t0)
		ev := theatremix.Error{Err: &theatremix.EndpointError{
			Op:   theatremix.OpResolve,
			Host: "nowhere.invalid",
			Err:  errors.New("no such host"),
		}}

		status, changed := s.Apply(ev, t0)

		assert.True(t, changed)
		assert.Equal(t, "Error: resolve nowhere.invalid: no such host", status)
		assert.False(t, s.Connected)
	})

	t.Run("thump only touches last rx", func(t *testing.T) {
		s := NewCueState()
		s.Current = theatremix.CueInfo{Number: "Q1"}

		_, changed := s.Apply(theatremix.Thump{}, t0)

		assert.False(t, changed)
		assert.Equal(t, t0, s.LastRx)
		assert.Equal(t, "Q1", s.Current.Number)
		assert.False(t, s.Connected)
	})
}

func TestCueStateApplyIsIdempotent(t *testing.T) {
	t0 := time.Now()
	s := NewCueState()
	ev := theatremix.CueFired{Cue: theatremix.CueInfo{Number: "Q7", Text: "Blackout"}}

	s.Apply(ev, t0)
	first := s.Current
	s.Apply(ev, t0.Add(time.Second))

	assert.Equal(t, first, s.Current)
	assert.Equal(t, t0.Add(time.Second), s.LastRx)
}

func TestCueStateLastRxNeverMovesBack(t *testing.T) {
	t0 := time.Now()
	s := NewCueState()

	s.Apply(theatremix.Thump{}, t0.Add(2*time.Second))
	s.Apply(theatremix.Thump{}, t0)

	assert.Equal(t, t0.Add(2*time.Second), s.LastRx)
}

func TestSinceLastRx(t *testing.T) {
	t0 := time.Now()
	s := NewCueState()

	_, ok := s.SinceLastRx(t0)
	assert.False(t, ok)

	s.Apply(theatremix.Thump{}, t0)
	d, ok := s.SinceLastRx(t0.Add(1500 * time.Millisecond))
	assert.True(t, ok)
	assert.Equal(t, 1500*time.Millisecond, d)
}

func TestTerminalViewportRecordsAlwaysOnTop(t *testing.T) {
	v := NewTerminalViewport(nil)
	assert.False(t, v.AlwaysOnTop())

	v.SetAlwaysOnTop(true)
	assert.True(t, v.AlwaysOnTop())

	v.SetAlwaysOnTop(false)
	assert.False(t, v.AlwaysOnTop())
}

package theatremix

import (
	"fmt"
	"math"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"github.com/zenibako/theatremix-display/messages"
)

const (
	// maxDatagram is the receive buffer size; longer datagrams are truncated.
	maxDatagram = 1536

	minLeaseSeconds   = 2
	minSubscribeEvery = 2 * time.Second
	thumpEvery        = 2 * time.Second
)

// DecodePacket parses one datagram and returns its messages in order. A
// bundle is flattened one level; bundles nested inside it are skipped.
func DecodePacket(data []byte) (msgs []*osc.Message, err error) {
	// malformed input must not take down the agent
	defer func() {
		if r := recover(); r != nil {
			msgs, err = nil, fmt.Errorf("decode OSC packet: %v", r)
		}
	}()

	packet, err := osc.ParsePacket(string(data))
	if err != nil {
		return nil, fmt.Errorf("decode OSC packet: %w", err)
	}

	switch p := packet.(type) {
	case *osc.Message:
		return []*osc.Message{p}, nil
	case *osc.Bundle:
		return p.Messages, nil
	default:
		return nil, fmt.Errorf("decode OSC packet: unsupported packet type %T", packet)
	}
}

// decodeMessage turns a recognized message into an event. A /subscribeok
// also stores the clamped lease in *lease. Unrecognized addresses and a
// /subscribeok without an integer expiry yield no event.
func decodeMessage(msg *osc.Message, lease *uint32) (Event, bool) {
	switch messages.Classify(msg.Address) {
	case messages.MsgSubscribeOK:
		expiry, ok := intArg(msg.Arguments, 0)
		if !ok {
			return nil, false
		}
		*lease = clampLease(expiry)
		return SubscribeOK{Expiry: *lease}, true
	case messages.MsgSubscribeFail:
		return SubscribeFail{}, true
	case messages.MsgThump:
		return Thump{}, true
	case messages.MsgCueFired:
		return CueFired{Cue: cueFromArguments(msg.Arguments)}, true
	default:
		return nil, false
	}
}

func intArg(args []any, i int) (int64, bool) {
	if i >= len(args) {
		return 0, false
	}
	switch v := args[i].(type) {
	case int32:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

// clampLease keeps a peer from forcing a re-subscribe storm with a tiny expiry.
func clampLease(expiry int64) uint32 {
	if expiry < minLeaseSeconds {
		return minLeaseSeconds
	}
	if expiry > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(expiry)
}

// subscribeInterval is half the lease, but never under two seconds. With no
// lease the agent subscribes every two seconds.
func subscribeInterval(lease uint32) time.Duration {
	if lease == 0 {
		return minSubscribeEvery
	}
	interval := time.Duration(lease/2) * time.Second
	if interval < minSubscribeEvery {
		return minSubscribeEvery
	}
	return interval
}

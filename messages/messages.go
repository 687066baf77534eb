package messages

import (
	"fmt"

	"github.com/hypebeast/go-osc/osc"
)

// OSC message types and addresses spoken by the TheatreMix cue-notification service

// Port is the fixed UDP port TheatreMix listens on for OSC subscribers.
const Port = 32000

// Message types
type MessageType string

const (
	MsgSubscribe     MessageType = "subscribe"
	MsgSubscribeOK   MessageType = "subscribe_ok"
	MsgSubscribeFail MessageType = "subscribe_fail"
	MsgThump         MessageType = "thump"
	MsgCueFired      MessageType = "cue_fired"
	MsgUnknown       MessageType = "unknown"
)

// OSC Address patterns
const (
	// Outbound (client -> console)
	AddrSubscribe = "/subscribe"

	// Both directions
	AddrThump = "/thump"

	// Inbound (console -> client)
	AddrSubscribeOK   = "/subscribeok"
	AddrSubscribeFail = "/subscribefail"
	AddrCueFired      = "/cuefired"
)

var addressTypes = map[string]MessageType{
	AddrSubscribe:     MsgSubscribe,
	AddrSubscribeOK:   MsgSubscribeOK,
	AddrSubscribeFail: MsgSubscribeFail,
	AddrThump:         MsgThump,
	AddrCueFired:      MsgCueFired,
}

// Classify maps an OSC address to its message type. Addresses are matched
// literally; anything unrecognized is MsgUnknown.
func Classify(address string) MessageType {
	if t, ok := addressTypes[address]; ok {
		return t
	}
	return MsgUnknown
}

// Subscribe builds the argument-less subscription request.
func Subscribe() *osc.Message {
	return osc.NewMessage(AddrSubscribe)
}

// Thump builds the argument-less keep-alive ping.
func Thump() *osc.Message {
	return osc.NewMessage(AddrThump)
}

// Encode serializes a message to its OSC 1.0 wire form.
func Encode(msg *osc.Message) ([]byte, error) {
	data, err := msg.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Address, err)
	}
	return data, nil
}

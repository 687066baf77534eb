package theatremix

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hypebeast/go-osc/osc"

	"github.com/zenibako/theatremix-display/messages"
)

// ReceivedMessage captures details about received OSC messages for testing
type ReceivedMessage struct {
	Address   string
	Arguments []any
	Timestamp time.Time
}

// MockConsole simulates the console side of the TheatreMix OSC protocol for
// testing: it answers /subscribe, can fire cues at the last subscriber and
// records everything it receives.
type MockConsole struct {
	host string
	port int

	conn      *net.UDPConn
	client    *net.UDPAddr // last address a datagram came from
	mu        sync.RWMutex
	isRunning bool
	done      chan struct{}

	autoReply        bool  // answer /subscribe
	failSubscription bool  // answer /subscribe with /subscribefail
	expiry           int32 // expiry sent in /subscribeok
	echoThump        bool  // answer /thump with /thump

	receivedMessages []ReceivedMessage
	received         chan struct{}
}

// NewMockConsole creates a mock console. Port 0 picks a free port on Start.
func NewMockConsole(host string, port int) *MockConsole {
	return &MockConsole{
		host:             host,
		port:             port,
		autoReply:        true,
		expiry:           10,
		receivedMessages: make([]ReceivedMessage, 0),
		received:         make(chan struct{}, 1),
	}
}

// Start binds the mock console and begins serving.
func (m *MockConsole) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return fmt.Errorf("mock console already running")
	}

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(m.host, fmt.Sprint(m.port)))
	if err != nil {
		return fmt.Errorf("resolve mock console address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen mock console: %w", err)
	}

	m.conn = conn
	m.port = conn.LocalAddr().(*net.UDPAddr).Port
	m.done = make(chan struct{})
	m.isRunning = true
	go m.serve(conn, m.done)

	log.Infof("Mock TheatreMix console started on %s", conn.LocalAddr())
	return nil
}

// Stop closes the socket and waits for the serve loop to exit.
func (m *MockConsole) Stop() error {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return nil
	}
	m.isRunning = false
	conn, done := m.conn, m.done
	m.conn = nil
	m.mu.Unlock()

	err := conn.Close()
	<-done
	log.Info("Mock TheatreMix console stopped")
	return err
}

// Port returns the bound UDP port.
func (m *MockConsole) Port() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.port
}

// SetExpiry sets the lease returned in /subscribeok.
func (m *MockConsole) SetExpiry(seconds int32) {
	m.mu.Lock()
	m.expiry = seconds
	m.mu.Unlock()
}

// SetAutoReply controls whether /subscribe is answered at all.
func (m *MockConsole) SetAutoReply(enabled bool) {
	m.mu.Lock()
	m.autoReply = enabled
	m.mu.Unlock()
}

// SetFailSubscriptions makes the console answer /subscribe with /subscribefail.
func (m *MockConsole) SetFailSubscriptions(fail bool) {
	m.mu.Lock()
	m.failSubscription = fail
	m.mu.Unlock()
}

// SetEchoThump makes the console answer each /thump with its own.
func (m *MockConsole) SetEchoThump(enabled bool) {
	m.mu.Lock()
	m.echoThump = enabled
	m.mu.Unlock()
}

func (m *MockConsole) serve(conn *net.UDPConn, done chan struct{}) {
	defer close(done)
	buf := make([]byte, 65535)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection") {
				return
			}
			log.Warnf("Mock console read error: %v", err)
			continue
		}

		msgs, err := DecodePacket(buf[:n])
		if err != nil {
			log.Debugf("Mock console discarding datagram: %v", err)
			continue
		}

		m.mu.Lock()
		m.client = from
		for _, msg := range msgs {
			m.receivedMessages = append(m.receivedMessages, ReceivedMessage{
				Address:   msg.Address,
				Arguments: msg.Arguments,
				Timestamp: time.Now(),
			})
		}
		m.mu.Unlock()

		select {
		case m.received <- struct{}{}:
		default:
		}

		for _, msg := range msgs {
			m.handle(msg)
		}
	}
}

func (m *MockConsole) handle(msg *osc.Message) {
	m.mu.RLock()
	autoReply, fail, expiry, echo := m.autoReply, m.failSubscription, m.expiry, m.echoThump
	m.mu.RUnlock()

	var reply *osc.Message
	switch messages.Classify(msg.Address) {
	case messages.MsgSubscribe:
		if !autoReply {
			return
		}
		if fail {
			reply = osc.NewMessage(messages.AddrSubscribeFail)
		} else {
			reply = osc.NewMessage(messages.AddrSubscribeOK, expiry)
		}
	case messages.MsgThump:
		if !echo {
			return
		}
		reply = osc.NewMessage(messages.AddrThump)
	default:
		return
	}

	if err := m.Send(reply); err != nil {
		log.Warnf("Mock console failed to reply to %s: %v", msg.Address, err)
	}
}

// Send delivers a message to the last client heard from.
func (m *MockConsole) Send(msg *osc.Message) error {
	data, err := messages.Encode(msg)
	if err != nil {
		return err
	}
	return m.SendRaw(data)
}

// FireCue sends /cuefired with the given string arguments.
func (m *MockConsole) FireCue(args ...string) error {
	msg := osc.NewMessage(messages.AddrCueFired)
	for _, arg := range args {
		msg.Append(arg)
	}
	return m.Send(msg)
}

// SendBundle wraps msgs in one bundle datagram.
func (m *MockConsole) SendBundle(msgs ...*osc.Message) error {
	bundle := osc.NewBundle(time.Now())
	for _, msg := range msgs {
		if err := bundle.Append(msg); err != nil {
			return err
		}
	}
	data, err := bundle.MarshalBinary()
	if err != nil {
		return err
	}
	return m.SendRaw(data)
}

// SendRaw writes an arbitrary datagram to the last client.
func (m *MockConsole) SendRaw(data []byte) error {
	m.mu.RLock()
	conn, client := m.conn, m.client
	m.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("mock console not running")
	}
	if client == nil {
		return fmt.Errorf("mock console has no client yet")
	}
	_, err := conn.WriteToUDP(data, client)
	return err
}

// GetReceivedMessages returns a copy of everything received so far.
func (m *MockConsole) GetReceivedMessages() []ReceivedMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ReceivedMessage, len(m.receivedMessages))
	copy(out, m.receivedMessages)
	return out
}

// MessagesTo returns received messages with the given address, in order.
func (m *MockConsole) MessagesTo(address string) []ReceivedMessage {
	var out []ReceivedMessage
	for _, msg := range m.GetReceivedMessages() {
		if msg.Address == address {
			out = append(out, msg)
		}
	}
	return out
}

// WaitForMessages blocks until count messages with address have arrived.
func (m *MockConsole) WaitForMessages(address string, count int, timeout time.Duration) ([]ReceivedMessage, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if got := m.MessagesTo(address); len(got) >= count {
			return got, nil
		}
		select {
		case <-m.received:
		case <-time.After(20 * time.Millisecond):
		case <-deadline.C:
			got := m.MessagesTo(address)
			return got, fmt.Errorf("timeout waiting for %d %s messages, got %d", count, address, len(got))
		}
	}
}

// Clear forgets received messages.
func (m *MockConsole) Clear() {
	m.mu.Lock()
	m.receivedMessages = make([]ReceivedMessage, 0)
	m.mu.Unlock()
}

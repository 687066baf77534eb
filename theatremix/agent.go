package theatremix

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hypebeast/go-osc/osc"
	"golang.org/x/time/rate"

	"github.com/zenibako/theatremix-display/messages"
	"github.com/zenibako/theatremix-display/metrics"
	"github.com/zenibako/theatremix-display/queue"
)

const (
	defaultRecvTimeout = 200 * time.Millisecond
	defaultIdleSleep   = 100 * time.Millisecond
)

// Agent keeps a subscription to a TheatreMix console alive and turns the
// inbound OSC stream into events. Only the goroutine running Run touches the
// socket; the display talks to it through the two queues.
type Agent struct {
	host     string
	port     int
	events   *queue.Queue[Event]
	commands *queue.Queue[Command]

	logger      *log.Logger
	metrics     *metrics.Collector
	resolve     ResolveFunc
	dial        dialFunc
	rebindRetry time.Duration
	recvTimeout time.Duration
	idleSleep   time.Duration
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger; the agent logs under the "osc" prefix.
func WithLogger(logger *log.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithPort overrides the console port (32000).
func WithPort(port int) Option {
	return func(a *Agent) {
		if port > 0 {
			a.port = port
		}
	}
}

// WithMetrics records agent activity in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(a *Agent) {
		a.metrics = c
	}
}

// WithResolver replaces the system resolver.
func WithResolver(resolve ResolveFunc) Option {
	return func(a *Agent) {
		if resolve != nil {
			a.resolve = resolve
		}
	}
}

// WithRebindRetry lets the agent re-resolve its host on its own, at most
// once per interval, after the endpoint is lost or setup fails. Zero (the
// default) waits for the next SetHost command instead.
func WithRebindRetry(interval time.Duration) Option {
	return func(a *Agent) {
		a.rebindRetry = interval
	}
}

// NewAgent creates an agent for host. It publishes to events and takes
// commands from commands; Run stops once commands is closed.
func NewAgent(host string, events *queue.Queue[Event], commands *queue.Queue[Command], opts ...Option) *Agent {
	a := &Agent{
		host:        host,
		port:        messages.Port,
		events:      events,
		commands:    commands,
		logger:      log.Default(),
		resolve:     ResolveHost,
		dial:        dialUDP,
		recvTimeout: defaultRecvTimeout,
		idleSleep:   defaultIdleSleep,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.WithPrefix("osc")
	return a
}

// Run drives the control loop until the command queue is closed (returning
// nil) or ctx is cancelled (returning ctx.Err()). Each iteration waits at
// most the receive timeout plus the idle sleep.
func (a *Agent) Run(ctx context.Context) error {
	s := a.newSession()
	defer s.dropEndpoint()

	s.setHost(a.host)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cmd, err := a.commands.TryRecv()
		switch {
		case err == nil:
			s.handle(cmd)
		case errors.Is(err, queue.ErrClosed):
			a.logger.Debug("Command queue closed, stopping agent")
			return nil
		}

		s.step(time.Now())

		if !sleep(ctx, a.idleSleep) {
			return ctx.Err()
		}
	}
}

// session holds the state of one Run: the endpoint, the lease and the send
// timers. Nothing here outlives the loop.
type session struct {
	*Agent

	host   string
	remote *net.UDPAddr
	conn   endpoint
	lease  uint32

	lastSubscribe time.Time
	lastThump     time.Time

	retry   *rate.Limiter
	failing bool
	buf     []byte
}

func (a *Agent) newSession() *session {
	s := &session{
		Agent: a,
		buf:   make([]byte, maxDatagram),
	}
	if a.rebindRetry > 0 {
		s.retry = rate.NewLimiter(rate.Every(a.rebindRetry), 1)
	}
	return s
}

func (s *session) handle(cmd Command) {
	switch c := cmd.(type) {
	case SetHost:
		s.logger.Info("Switching console host", "from", s.host, "to", c.Host)
		s.setHost(c.Host)
	default:
		s.logger.Warnf("Ignoring unknown command %T", cmd)
	}
}

// setHost replaces the endpoint with one for host. The lease and both timers
// reset so the next step subscribes and thumps straight away.
func (s *session) setHost(host string) {
	s.dropEndpoint()
	s.remote = nil
	s.host = host
	s.lease = 0
	s.failing = false
	s.lastSubscribe = time.Time{}
	s.lastThump = time.Time{}
	s.connect()
}

// connect resolves the current host and binds an endpoint to it.
func (s *session) connect() bool {
	remote, err := s.resolve(s.host, s.port)
	if err != nil {
		s.fail(OpResolve, err)
		return false
	}
	s.remote = remote
	return s.bind()
}

// bind opens a fresh endpoint to the last resolved address.
func (s *session) bind() bool {
	conn, err := s.dial(s.remote)
	if err != nil {
		s.remote = nil
		s.fail(OpBind, err)
		return false
	}
	s.conn = conn
	s.metrics.EndpointUp(true)
	s.logger.Debug("Endpoint bound", "local", conn.LocalAddr(), "remote", s.remote)
	return true
}

// restoreEndpoint recreates an endpoint dropped after an I/O error. Without
// rebind retry it reuses the cached address and never resolves again.
func (s *session) restoreEndpoint() {
	if s.retry != nil && s.host != "" {
		if s.retry.Allow() {
			s.logger.Debug("Retrying console host", "host", s.host)
			s.connect()
		}
		return
	}
	if s.remote != nil {
		s.bind()
	}
}

func (s *session) dropEndpoint() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		s.logger.Debug("Closing endpoint failed", "error", err)
	}
	s.conn = nil
	s.lease = 0
	s.metrics.EndpointUp(false)
	s.metrics.Lease(0)
}

func (s *session) fail(op string, err error) {
	epErr := &EndpointError{Op: op, Host: s.host, Err: err}
	s.logger.Warn("Endpoint setup failed", "op", op, "host", s.host, "error", err)
	if s.retry != nil {
		// failures spend the token so the next attempt waits a full interval
		s.retry.Allow()
	}
	s.publish(Error{Err: epErr})
}

// step runs the send and receive half of one iteration.
func (s *session) step(now time.Time) {
	if s.conn == nil {
		s.restoreEndpoint()
		if s.conn == nil {
			return
		}
	}

	replace := false
	if now.Sub(s.lastSubscribe) >= subscribeInterval(s.lease) {
		if !s.send(messages.Subscribe()) {
			replace = true
		}
		s.lastSubscribe = now
	}
	if now.Sub(s.lastThump) >= thumpEvery {
		if !s.send(messages.Thump()) {
			replace = true
		}
		s.lastThump = now
	}

	if !s.receive() {
		replace = true
	}

	if replace {
		s.dropEndpoint()
	}
}

func (s *session) send(msg *osc.Message) bool {
	data, err := messages.Encode(msg)
	if err != nil {
		s.logger.Error("Failed to encode message", "address", msg.Address, "error", err)
		return false
	}
	if _, err := s.conn.Write(data); err != nil {
		s.ioFailed("send", err)
		s.metrics.SendFailed(msg.Address)
		return false
	}
	s.metrics.MessageSent(msg.Address)
	return true
}

// receive waits up to the receive timeout for one datagram. It returns false
// when the endpoint must be replaced.
func (s *session) receive() bool {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.recvTimeout)); err != nil {
		s.ioFailed("set deadline", err)
		return false
	}

	n, err := s.conn.Read(s.buf)
	if err != nil {
		if isTimeout(err) {
			return true
		}
		s.ioFailed("receive", err)
		return false
	}
	s.failing = false
	s.metrics.PacketReceived()

	msgs, err := DecodePacket(s.buf[:n])
	if err != nil {
		s.metrics.DecodeFailed()
		s.logger.Debug("Discarding datagram", "bytes", n, "error", err)
		return true
	}
	for _, msg := range msgs {
		s.dispatch(msg)
	}
	return true
}

func (s *session) dispatch(msg *osc.Message) {
	ev, ok := decodeMessage(msg, &s.lease)
	if !ok {
		s.logger.Debugf("Ignoring OSC message: %s %v", msg.Address, msg.Arguments)
		return
	}
	if sub, isSub := ev.(SubscribeOK); isSub {
		s.metrics.Lease(sub.Expiry)
		s.logger.Info("Subscribed", "lease", sub.Expiry, "renew_every", subscribeInterval(s.lease))
	}
	s.publish(ev)
}

func (s *session) publish(ev Event) {
	if err := s.events.Send(ev); err != nil {
		s.logger.Debug("Dropping event, display has gone", "kind", ev.Kind())
		return
	}
	s.metrics.EventPublished(string(ev.Kind()))
}

// ioFailed logs the first of a run of socket errors at warn level and the
// rest at debug, so a console that is switched off does not flood the log.
func (s *session) ioFailed(op string, err error) {
	if s.failing {
		s.logger.Debug("Endpoint I/O failed", "op", op, "error", err)
		return
	}
	s.failing = true
	s.logger.Warn("Endpoint I/O failed, replacing endpoint", "op", op, "remote", s.remote, "error", err)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Package metrics exposes Prometheus instrumentation for the OSC agent.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "theatremix"

// Collector records agent activity. A nil *Collector is valid and records nothing.
type Collector struct {
	packetsReceived prometheus.Counter
	decodeErrors    prometheus.Counter
	messagesSent    *prometheus.CounterVec
	sendFailures    *prometheus.CounterVec
	endpointBinds   prometheus.Counter
	events          *prometheus.CounterVec
	lease           prometheus.Gauge
	connected       prometheus.Gauge
}

// New registers the agent collectors with reg.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		packetsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "osc_packets_received_total",
			Help:      "Datagrams received from the console.",
		}),
		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "osc_decode_errors_total",
			Help:      "Datagrams discarded because they were not valid OSC.",
		}),
		messagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "osc_messages_sent_total",
			Help:      "OSC messages sent to the console, by address.",
		}, []string{"address"}),
		sendFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "osc_send_failures_total",
			Help:      "OSC sends that failed and caused the endpoint to be replaced.",
		}, []string{"address"}),
		endpointBinds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "endpoint_binds_total",
			Help:      "UDP endpoints bound to the console.",
		}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events published to the display, by kind.",
		}, []string{"kind"}),
		lease: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscription_lease_seconds",
			Help:      "Subscription lease reported by the console; 0 when none is active.",
		}),
		connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "endpoint_up",
			Help:      "1 while the agent holds a bound UDP endpoint.",
		}),
	}
}

func (c *Collector) PacketReceived() {
	if c == nil {
		return
	}
	c.packetsReceived.Inc()
}

func (c *Collector) DecodeFailed() {
	if c == nil {
		return
	}
	c.decodeErrors.Inc()
}

func (c *Collector) MessageSent(address string) {
	if c == nil {
		return
	}
	c.messagesSent.WithLabelValues(address).Inc()
}

func (c *Collector) SendFailed(address string) {
	if c == nil {
		return
	}
	c.sendFailures.WithLabelValues(address).Inc()
}

// EndpointUp tracks endpoint creation and teardown.
func (c *Collector) EndpointUp(up bool) {
	if c == nil {
		return
	}
	if up {
		c.endpointBinds.Inc()
		c.connected.Set(1)
		return
	}
	c.connected.Set(0)
}

func (c *Collector) EventPublished(kind string) {
	if c == nil {
		return
	}
	c.events.WithLabelValues(kind).Inc()
}

func (c *Collector) Lease(seconds uint32) {
	if c == nil {
		return
	}
	c.lease.Set(float64(seconds))
}

// Router serves /metrics from gatherer and a trivial /healthz.
func Router(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Get("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return r
}

// Serve runs an HTTP server on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.PacketReceived()
		c.DecodeFailed()
		c.MessageSent("/subscribe")
		c.SendFailed("/thump")
		c.EndpointUp(true)
		c.EventPublished("thump")
		c.Lease(10)
	})
}

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.PacketReceived()
	c.PacketReceived()
	c.DecodeFailed()
	c.MessageSent("/subscribe")
	c.MessageSent("/subscribe")
	c.MessageSent("/thump")
	c.EndpointUp(true)
	c.EndpointUp(false)
	c.Lease(30)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.packetsReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.decodeErrors))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.messagesSent.WithLabelValues("/subscribe")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.messagesSent.WithLabelValues("/thump")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.endpointBinds))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.connected))
	assert.Equal(t, 30.0, testutil.ToFloat64(c.lease))
}

func TestRouterServesMetricsAndHealth(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	c.EventPublished("cue_fired")

	srv := httptest.NewServer(Router(reg))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `theatremix_events_total{kind="cue_fired"} 1`), "metrics body:\n%s", body)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

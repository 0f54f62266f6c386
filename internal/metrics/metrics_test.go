package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndGauges(t *testing.T) {
	m := New()

	m.Polls.WithLabelValues("ok").Inc()
	m.Polls.WithLabelValues("ok").Inc()
	m.Orders.WithLabelValues("BUY", "filled").Inc()
	m.SetPosition(true, decimal.NewFromInt(100), decimal.RequireFromString("107.1"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Polls.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Orders.WithLabelValues("BUY", "filled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InPosition))
	assert.Equal(t, 107.1, testutil.ToFloat64(m.RiskReference))

	m.SetPosition(false, decimal.Zero, decimal.Zero)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InPosition))
}

func TestHandlerExposesSeries(t *testing.T) {
	m := New()
	m.PersistFailures.Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), "bot_persist_failures_total 1"))
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Decisions.WithLabelValues("buy").Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Decisions.WithLabelValues("buy")))
}

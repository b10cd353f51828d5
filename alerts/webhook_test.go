package alerts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ruteri/shard-integrity-enforcer/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSinkDeliver(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL, 5*time.Second, testLogger())
	alert := interfaces.NewApoptosisBackdoorAlert("/shards/shard_0.bin")
	require.NoError(t, sink.Deliver(context.Background(), alert))

	assert.Equal(t, string(interfaces.AlertCryptographicApoptosis), received["alert_type"])
	assert.Equal(t, string(interfaces.ReasonMathematicalBackdoor), received["reason"])
	assert.Equal(t, "/shards/shard_0.bin", received["shard_file"])
}

func TestWebhookSinkRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL, 5*time.Second, testLogger())
	err := sink.Deliver(context.Background(), interfaces.NewRegularityAlert("/shards/shard_0.bin"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookSinkUnreachable(t *testing.T) {
	sink := NewWebhookSink("http://127.0.0.1:1/unreachable", time.Second, testLogger())
	err := sink.Deliver(context.Background(), interfaces.NewRegularityAlert("/shards/shard_0.bin"))
	require.Error(t, err)
}

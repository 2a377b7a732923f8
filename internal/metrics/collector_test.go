package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/rickgao/wsconn/internal/connection"
	"github.com/rickgao/wsconn/internal/recorder"
)

type staticStats connection.Stats

func (s staticStats) Stats() connection.Stats { return connection.Stats(s) }

type staticRecorder recorder.Stats

func (s staticRecorder) Stats() recorder.Stats { return recorder.Stats(s) }

func gather(t *testing.T, c prometheus.Collector) map[string]*dto.MetricFamily {
	t.Helper()
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func valueOf(m *dto.Metric) float64 {
	switch {
	case m.GetGauge() != nil:
		return m.GetGauge().GetValue()
	case m.GetCounter() != nil:
		return m.GetCounter().GetValue()
	}
	return -1
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestConnectionCollector(t *testing.T) {
	src := staticStats{
		State:             connection.StateOpen,
		RetryCount:        0,
		Buffered:          4,
		Evicted:           2,
		MessagesSent:      10,
		MessagesReceived:  7,
		HeartbeatsSent:    3,
		PongTimeouts:      1,
		ReconnectAttempts: 5,
		GiveUps:           1,
		ConnectedAt:       time.Now().Add(-time.Minute),
	}

	families := gather(t, NewCollector("wsconn", "feed", src))

	want := map[string]float64{
		"wsconn_connection_buffered_messages":        4,
		"wsconn_connection_evicted_messages_total":   2,
		"wsconn_connection_messages_sent_total":      10,
		"wsconn_connection_messages_received_total":  7,
		"wsconn_connection_heartbeats_sent_total":    3,
		"wsconn_connection_pong_timeouts_total":      1,
		"wsconn_connection_reconnect_attempts_total": 5,
		"wsconn_connection_reconnect_give_ups_total": 1,
		"wsconn_connection_retry_count":              0,
	}
	for name, v := range want {
		f, ok := families[name]
		if !ok {
			t.Errorf("metric %s missing", name)
			continue
		}
		m := f.GetMetric()[0]
		if got := valueOf(m); got != v {
			t.Errorf("%s = %v, want %v", name, got, v)
		}
		if got := labelValue(m, "connection"); got != "feed" {
			t.Errorf("%s connection label = %q, want feed", name, got)
		}
	}

	state := families["wsconn_connection_state"]
	if state == nil || len(state.GetMetric()) != 3 {
		t.Fatalf("state family = %v, want three series", state)
	}
	for _, m := range state.GetMetric() {
		wantV := 0.0
		if labelValue(m, "state") == "OPEN" {
			wantV = 1
		}
		if got := valueOf(m); got != wantV {
			t.Errorf("state{%s} = %v, want %v", labelValue(m, "state"), got, wantV)
		}
	}

	uptime := valueOf(families["wsconn_connection_uptime_seconds"].GetMetric()[0])
	if uptime < 59 {
		t.Errorf("uptime = %v, want about 60s", uptime)
	}
}

func TestRecorderCollector(t *testing.T) {
	src := staticRecorder{Messages: 100, Events: 6, Dropped: 2, Flushes: 9, Errors: 1}

	families := gather(t, NewRecorderCollector("wsconn", src))

	rows := families["wsconn_recorder_rows_written_total"]
	if rows == nil || len(rows.GetMetric()) != 2 {
		t.Fatalf("rows family = %v, want two series", rows)
	}
	for _, m := range rows.GetMetric() {
		want := map[string]float64{"ws_messages": 100, "ws_events": 6}[labelValue(m, "table")]
		if got := valueOf(m); got != want {
			t.Errorf("rows{table=%s} = %v, want %v", labelValue(m, "table"), got, want)
		}
	}
	if got := valueOf(families["wsconn_recorder_errors_total"].GetMetric()[0]); got != 1 {
		t.Errorf("errors_total = %v, want 1", got)
	}
}

func TestNewMux(t *testing.T) {
	reg, err := NewRegistry(NewCollector("wsconn", "feed", staticStats{State: connection.StateClosed}))
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	var healthy atomic.Bool
	health := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})
	server := httptest.NewServer(NewMux(reg, "/metrics", health))
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("unhealthy status = %d, want 503", resp.StatusCode)
	}

	healthy.Store(true)
	resp, err = http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthy status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `wsconn_connection_state{connection="feed",state="CLOSED"} 1`) {
		t.Errorf("metrics output missing state series:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("metrics output missing Go runtime collector")
	}
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/wsconn/internal/connection"
	"github.com/rickgao/wsconn/internal/recorder"
)

// StatsSource is implemented by *connection.Manager.
type StatsSource interface {
	Stats() connection.Stats
}

// RecorderSource is implemented by *recorder.Recorder.
type RecorderSource interface {
	Stats() recorder.Stats
}

type connectionCollector struct {
	source StatsSource

	state        *prometheus.Desc
	retries      *prometheus.Desc
	buffered     *prometheus.Desc
	evicted      *prometheus.Desc
	sent         *prometheus.Desc
	received     *prometheus.Desc
	heartbeats   *prometheus.Desc
	pongTimeouts *prometheus.Desc
	attempts     *prometheus.Desc
	giveUps      *prometheus.Desc
	uptime       *prometheus.Desc
}

// NewCollector returns a collector for one connection. name becomes the
// "connection" const label.
func NewCollector(namespace, name string, source StatsSource) prometheus.Collector {
	labels := prometheus.Labels{"connection": name}
	desc := func(metric, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "connection", metric),
			help, variable, labels,
		)
	}

	return &connectionCollector{
		source:       source,
		state:        desc("state", "1 for the current lifecycle state, 0 otherwise.", "state"),
		retries:      desc("retry_count", "Reconnect attempts since the last successful open."),
		buffered:     desc("buffered_messages", "Outbound messages waiting for an open connection."),
		evicted:      desc("evicted_messages_total", "Buffered messages dropped because the buffer was full."),
		sent:         desc("messages_sent_total", "Frames written to the socket, heartbeats included."),
		received:     desc("messages_received_total", "Inbound frames delivered to the application."),
		heartbeats:   desc("heartbeats_sent_total", "Liveness probes written successfully."),
		pongTimeouts: desc("pong_timeouts_total", "Sessions closed because no heartbeat reply arrived."),
		attempts:     desc("reconnect_attempts_total", "Reconnect dials started."),
		giveUps:      desc("reconnect_give_ups_total", "Times the retry policy stopped reconnecting."),
		uptime:       desc("uptime_seconds", "Seconds since the current session opened, 0 when not open."),
	}
}

func (c *connectionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.state
	ch <- c.retries
	ch <- c.buffered
	ch <- c.evicted
	ch <- c.sent
	ch <- c.received
	ch <- c.heartbeats
	ch <- c.pongTimeouts
	ch <- c.attempts
	ch <- c.giveUps
	ch <- c.uptime
}

func (c *connectionCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()

	for _, st := range []connection.State{connection.StateClosed, connection.StateConnecting, connection.StateOpen} {
		v := 0.0
		if s.State == st {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, v, st.String())
	}

	ch <- prometheus.MustNewConstMetric(c.retries, prometheus.GaugeValue, float64(s.RetryCount))
	ch <- prometheus.MustNewConstMetric(c.buffered, prometheus.GaugeValue, float64(s.Buffered))
	ch <- prometheus.MustNewConstMetric(c.evicted, prometheus.CounterValue, float64(s.Evicted))
	ch <- prometheus.MustNewConstMetric(c.sent, prometheus.CounterValue, float64(s.MessagesSent))
	ch <- prometheus.MustNewConstMetric(c.received, prometheus.CounterValue, float64(s.MessagesReceived))
	ch <- prometheus.MustNewConstMetric(c.heartbeats, prometheus.CounterValue, float64(s.HeartbeatsSent))
	ch <- prometheus.MustNewConstMetric(c.pongTimeouts, prometheus.CounterValue, float64(s.PongTimeouts))
	ch <- prometheus.MustNewConstMetric(c.attempts, prometheus.CounterValue, float64(s.ReconnectAttempts))
	ch <- prometheus.MustNewConstMetric(c.giveUps, prometheus.CounterValue, float64(s.GiveUps))
	ch <- prometheus.MustNewConstMetric(c.uptime, prometheus.GaugeValue, s.Uptime().Seconds())
}

type recorderCollector struct {
	source RecorderSource

	rows    *prometheus.Desc
	dropped *prometheus.Desc
	flushes *prometheus.Desc
	errors  *prometheus.Desc
}

// NewRecorderCollector returns a collector for the message recorder.
func NewRecorderCollector(namespace string, source RecorderSource) prometheus.Collector {
	desc := func(metric, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "recorder", metric), help, variable, nil)
	}

	return &recorderCollector{
		source:  source,
		rows:    desc("rows_written_total", "Rows written to the database.", "table"),
		dropped: desc("dropped_total", "Entries dropped because the input buffer was full."),
		flushes: desc("flushes_total", "Successful batch flushes."),
		errors:  desc("errors_total", "Failed batch inserts."),
	}
}

func (c *recorderCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.rows
	ch <- c.dropped
	ch <- c.flushes
	ch <- c.errors
}

func (c *recorderCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.rows, prometheus.CounterValue, float64(s.Messages), "ws_messages")
	ch <- prometheus.MustNewConstMetric(c.rows, prometheus.CounterValue, float64(s.Events), "ws_events")
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.Dropped))
	ch <- prometheus.MustNewConstMetric(c.flushes, prometheus.CounterValue, float64(s.Flushes))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(s.Errors))
}

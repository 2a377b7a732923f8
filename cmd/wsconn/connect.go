package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/wsconn/internal/config"
	"github.com/rickgao/wsconn/internal/connection"
	"github.com/rickgao/wsconn/internal/database"
	"github.com/rickgao/wsconn/internal/metrics"
	"github.com/rickgao/wsconn/internal/recorder"
	"github.com/rickgao/wsconn/internal/version"
)

var (
	errGaveUp    = errors.New("reconnection gave up")
	errLostPeer  = errors.New("connection closed by peer")
	connectFlags struct {
		configPath  string
		protocols   []string
		noHeartbeat bool
		transport   string
	}
)

var connectCmd = &cobra.Command{
	Use:   "connect [url]",
	Short: "Connect to a WebSocket endpoint and relay stdin/stdout",
	Long: `Connect opens a WebSocket connection to url (or client.url from the
config file). Every stdin line is sent as a text frame. Inbound text frames
are printed as-is, binary frames as base64 prefixed with "binary:".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConnect,
}

func init() {
	f := connectCmd.Flags()
	f.StringVarP(&connectFlags.configPath, "config", "c", "", "Path to YAML config file")
	f.StringSliceVarP(&connectFlags.protocols, "protocol", "p", nil, "Sub-protocol to offer (repeatable)")
	f.BoolVar(&connectFlags.noHeartbeat, "no-heartbeat", false, "Disable the liveness probe")
	f.StringVar(&connectFlags.transport, "transport", "", "WebSocket library: gorilla or coder")
}

func runConnect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(connectFlags.configPath, args)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log, verbose, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	logger.Info("starting wsconn",
		"version", version.Version,
		"commit", version.Commit,
		"url", cfg.Client.URL,
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return run(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
}

// loadConfig reads the optional config file and applies flag overrides.
func loadConfig(path string, args []string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadWithDefaults(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if len(args) > 0 {
		cfg.Client.URL = args[0]
	}
	if len(connectFlags.protocols) > 0 {
		cfg.Client.Protocols = connectFlags.protocols
	}
	if connectFlags.noHeartbeat {
		cfg.Heartbeat.Enabled = false
	}
	if connectFlags.transport != "" {
		cfg.Client.Transport = connectFlags.transport
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// run wires the manager to stdin/stdout, the recorder and the metrics
// server, and blocks until ctx is cancelled or the connection is lost for
// good.
func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	// Optional recorder
	var (
		rec  *recorder.Recorder
		pool pinger
	)
	if cfg.Recorder.Enabled {
		p, err := database.Connect(ctx, cfg.Recorder.Database, logger)
		if err != nil {
			return fmt.Errorf("connect recorder database: %w", err)
		}
		defer p.Close()
		pool = p

		if err := recorder.EnsureSchema(ctx, p); err != nil {
			return err
		}
		rec = recorder.New(recorder.Config{
			BatchSize:     cfg.Recorder.BatchSize,
			FlushInterval: cfg.Recorder.FlushInterval,
			BufferSize:    cfg.Recorder.BufferSize,
		}, p, logger)
		if err := rec.Start(ctx); err != nil {
			return fmt.Errorf("start recorder: %w", err)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			_ = rec.Stop(stopCtx)
		}()
	}

	// Fatal conditions reported from callbacks
	fatal := make(chan error, 1)
	report := func(err error) {
		select {
		case fatal <- err:
		default:
		}
	}

	r := &relay{out: out, rec: rec, logger: logger}
	opts := append(managerOptions(cfg, logger), r.options()...)
	if rc := buildReconnect(cfg.Reconnect, func() {
		r.record(uuid.Nil, recorder.EventGaveUp, "")
		report(errGaveUp)
	}); rc != nil {
		opts = append(opts, connection.WithAutoReconnect(*rc))
	} else {
		r.onLost = func() { report(errLostPeer) }
	}

	m, err := connection.New(cfg.Client.URL, opts...)
	if err != nil {
		return err
	}
	defer m.Destroy()
	r.manager = m

	// Optional metrics and health server
	if cfg.Metrics.Enabled {
		cs := []prometheus.Collector{metrics.NewCollector("wsconn", hostOf(cfg.Client.URL), m)}
		if rec != nil {
			cs = append(cs, metrics.NewRecorderCollector("wsconn", rec))
		}
		reg, err := metrics.NewRegistry(cs...)
		if err != nil {
			return err
		}
		mux := metrics.NewMux(reg, cfg.Metrics.Path, createHealthHandler(m, pool, logger))
		addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		g.Go(func() error {
			return metrics.Serve(gctx, addr, mux, logger)
		})
	}

	lines := readLines(in)
	opened := false
	if cfg.Client.ImmediateOpen() {
		m.Open()
		opened = true
	}

	// stdin pump
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					logger.Debug("stdin closed")
					lines = nil
					continue
				}
				r.send(line)
				if !opened {
					// Lazy connect: the first line is buffered and flushed on open
					m.Open()
					opened = true
				}
			}
		}
	})

	// Shutdown
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-fatal:
			return err
		}
	})

	err = g.Wait()
	m.CloseNormal()
	logger.Info("wsconn stopped", "stats", fmt.Sprintf("%+v", m.Stats()))
	return err
}

// readLines scans in on its own goroutine so a blocked read never holds up
// shutdown.
func readLines(in io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Host
}

// relay connects manager callbacks to stdout and the recorder.
type relay struct {
	out     io.Writer
	outMu   sync.Mutex
	rec     *recorder.Recorder
	logger  *slog.Logger
	manager *connection.Manager
	onLost  func()
}

func (r *relay) options() []connection.Option {
	return []connection.Option{
		connection.WithOnConnected(func(info connection.SessionInfo) {
			r.record(info.ID, recorder.EventConnected, info.Subprotocol)
		}),
		connection.WithOnReconnected(func(info connection.SessionInfo) {
			r.record(info.ID, recorder.EventReconnected, "")
		}),
		connection.WithOnReconnecting(func(retries int) {
			r.record(uuid.Nil, recorder.EventReconnecting, fmt.Sprintf("attempt %d", retries))
		}),
		connection.WithOnDisconnected(func(info connection.SessionInfo, ev connection.CloseEvent) {
			r.record(info.ID, recorder.EventDisconnected, fmt.Sprintf("%d %s", ev.Code, ev.Reason))
			if !ev.Explicit && r.onLost != nil {
				r.onLost()
			}
		}),
		connection.WithOnError(func(info connection.SessionInfo, err error) {
			r.record(info.ID, recorder.EventError, err.Error())
		}),
		connection.WithOnMessage(func(info connection.SessionInfo, msg connection.Message) {
			if r.rec != nil {
				r.rec.RecordMessage(info.ID, recorder.Inbound, msg)
			}
			r.print(msg)
		}),
	}
}

func (r *relay) send(line string) {
	msg := connection.TextMessage(line)
	if !r.manager.Send(msg) {
		r.logger.Debug("not connected, message buffered", "bytes", len(line))
		return
	}
	if r.rec != nil {
		info, _ := r.manager.Session()
		r.rec.RecordMessage(info.ID, recorder.Outbound, msg)
	}
}

func (r *relay) print(msg connection.Message) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	if msg.Type == connection.MessageBinary {
		fmt.Fprintln(r.out, "binary:"+base64.StdEncoding.EncodeToString(msg.Data))
		return
	}
	fmt.Fprintln(r.out, msg.Text())
}

func (r *relay) record(id uuid.UUID, event, detail string) {
	if r.rec != nil {
		r.rec.RecordEvent(id, event, detail)
	}
}

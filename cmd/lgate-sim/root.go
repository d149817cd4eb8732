package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/soypat/lgate"
	"github.com/soypat/lgate/diag"
	"github.com/soypat/lgate/diag/mqttdiag"
	"github.com/soypat/lgate/diag/promdiag"
	"github.com/soypat/lgate/gateway"
	"github.com/soypat/lgate/internal"
	"github.com/soypat/lgate/internal/hostlink"
	"github.com/soypat/lgate/link"
)

type options struct {
	tap        string
	hostAddr   string
	group      string
	radioIface string
	broker     string
	metrics    string
	tick       time.Duration
	logLevel   string
}

var opts = options{
	tap:      "tap0",
	hostAddr: "192.168.1.2/24",
	group:    hostlink.DefaultGroup.String(),
	tick:     time.Second,
	logLevel: "info",
}

var rootCmd = &cobra.Command{
	Use:   "lgate-sim",
	Short: "Run the Ethernet/802.15.4 gateway on a TAP interface and a multicast radio medium",
	Long: `
Run the gateway firmware core on a host. Addresses, routes and pool sizes are the
compiled-in firmware defaults, flags only select host plumbing.

Examples:
  lgate-sim                                   # tap0, default radio group, logs to stderr
  lgate-sim --tap tap1 --metrics :9100        # expose Prometheus metrics
  lgate-sim --mqtt mqtt://localhost:1883/lgate/gw0 --log-level debug
`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, opts)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&opts.tap, "tap", "i", opts.tap, "TAP interface carrying the Ethernet port")
	flags.StringVar(&opts.hostAddr, "host-addr", opts.hostAddr, "Address assigned to the host side of the TAP interface, empty to leave it unconfigured")
	flags.StringVarP(&opts.group, "group", "g", opts.group, "Multicast group:port of the simulated radio medium")
	flags.StringVar(&opts.radioIface, "radio-iface", opts.radioIface, "Host interface joining the radio group")
	flags.StringVar(&opts.broker, "mqtt", opts.broker, "MQTT broker URL to publish diagnostic events to")
	flags.StringVar(&opts.metrics, "metrics", opts.metrics, "Listen address of the Prometheus metrics endpoint")
	flags.DurationVar(&opts.tick, "tick", opts.tick, "Period of the timer task")
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "Log level: trace, debug, info, warn or error")
}

func parseLevel(s string) (slog.Level, error) {
	if strings.EqualFold(s, "trace") {
		return internal.LevelTrace, nil
	}
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(s))
	return lvl, err
}

func run(ctx context.Context, o options) (err error) {
	if o.tick <= 0 {
		return fmt.Errorf("tick must be positive: %w", lgate.ErrInvalidConfig)
	}
	lvl, err := parseLevel(o.logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	group, err := netip.ParseAddrPort(o.group)
	if err != nil {
		return fmt.Errorf("bad radio group: %w", err)
	}
	var hostAddr netip.Prefix
	if o.hostAddr != "" {
		hostAddr, err = netip.ParsePrefix(o.hostAddr)
		if err != nil {
			return fmt.Errorf("bad host address: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()
	spawn := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := fn(ctx)
			if err != nil && ctx.Err() == nil {
				logger.Error("sim:"+name, slog.String("err", err.Error()))
			}
		}()
	}

	logSink := diag.NewLogSink(logger, 256)
	sinks := []diag.Sink{logSink}
	spawn("log", logSink.Run)
	if o.broker != "" {
		pub, err := mqttdiag.New(mqttdiag.Config{Broker: o.broker, ClientID: "lgate-sim", Logger: logger})
		if err != nil {
			return err
		}
		if err := pub.Connect(); err != nil {
			return err
		}
		sinks = append(sinks, pub)
		spawn("mqtt", pub.Run)
	}

	// Interrupts only fire once the readers run, after the gateway is built.
	var gw *gateway.Gateway
	hcfg := func(id link.ID) hostlink.Config {
		return hostlink.Config{OnReceive: func() { gw.Interrupt(id) }, Logger: logger}
	}
	tap, err := hostlink.OpenTap(o.tap, hostAddr, hcfg(link.Ethernet))
	if err != nil {
		return err
	}
	defer tap.Close()
	radio, err := hostlink.OpenRadio(hostlink.RadioConfig{
		Config:    hcfg(link.Radio),
		Group:     group,
		Interface: o.radioIface,
	})
	if err != nil {
		return err
	}
	defer radio.Close()

	cfg := gateway.DefaultConfig()
	cfg.Sink = diag.Tee(sinks...)
	cfg.Logger = logger
	gw, err = gateway.New(cfg, tap, radio)
	if err != nil {
		return err
	}
	if o.metrics != "" {
		srv, err := metricsServer(o.metrics, gw, logSink)
		if err != nil {
			return err
		}
		spawn("metrics", func(ctx context.Context) error {
			go func() {
				<-ctx.Done()
				shutdown, done := context.WithTimeout(context.Background(), 5*time.Second)
				defer done()
				srv.Shutdown(shutdown)
			}()
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	spawn("tap", tap.Run)
	spawn("radio", radio.Run)
	spawn("timer", func(ctx context.Context) error {
		ticker := time.NewTicker(o.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				gw.Tick()
			}
		}
	})
	logger.Info("sim:start", slog.String("tap", o.tap), slog.String("group", group.String()), slog.Uint64("node", uint64(radio.NodeID())))

	err = gw.Run(ctx)
	cancel()
	c := gw.Counters()
	logger.Info("sim:stop",
		slog.Uint64("eth-rx", c.RxFrames(link.Ethernet)),
		slog.Uint64("radio-rx", c.RxFrames(link.Radio)),
		slog.Uint64("drops", c.TotalDrops()),
		slog.Uint64("missed", gw.Missed()),
	)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func metricsServer(addr string, gw *gateway.Gateway, events *diag.LogSink) (*http.Server, error) {
	reg := prometheus.NewRegistry()
	err := reg.Register(promdiag.NewCollector(promdiag.Config{
		Counters:      gw.Counters(),
		PoolFree:      gw.PoolFree,
		PoolExhausted: gw.PoolExhausted,
		Missed:        gw.Missed,
		Events:        events.Dropped,
	}))
	if err != nil {
		return nil, err
	}
	if err = reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}, nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"

	"github.com/MapleGits/MapleGame/apm"
	"github.com/MapleGits/MapleGame/base/log"
	"github.com/MapleGits/MapleGame/config"
	"github.com/MapleGits/MapleGame/module"
	"github.com/MapleGits/MapleGame/network/dispatch"
	"github.com/MapleGits/MapleGame/network/gate"
	"github.com/MapleGits/MapleGame/network/metrics"
)

func serveCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the channel server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, v, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			if err := log.Setup(cfg.LogOptions()); err != nil {
				return err
			}
			defer log.Flush()
			sc := config.NewSafeConfig(cfg)
			var watch *viper.Viper
			if configPath != "" {
				watch = v
			}
			return serve(cmd, sc, watch)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "config file (yaml/json/toml)")
	flags.String("listen", "", "tcp listen address, e.g. :8585")
	flags.String("log-level", "", "debug|info|warn|error")
	flags.String("metrics-listen", "", "admin http address serving /metrics, empty to disable")
	flags.String("crypto-mode", "", "aes|none")
	return cmd
}

// serve watch不为nil时监听配置文件的变化
func serve(cmd *cobra.Command, sc *config.SafeConfig, watch *viper.Viper) error {
	cfg := sc.Load()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New("channel", reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// 先加载的模块后销毁，recorder和tracer要等gate关闭之后再关
	var mods []module.Module
	var traces trace.TracerProvider
	if cfg.Trace.Enabled {
		tp, err := apm.InitProvider(apm.TraceParam{
			ServiceName:    "channel",
			ServiceVersion: version,
			Environment:    cfg.Trace.Environment,
			Endpoint:       cfg.Trace.Endpoint,
			EnableTLS:      cfg.Trace.TLS,
			SampleRate:     cfg.Trace.SampleRate,
		}, true)
		if err != nil {
			return err
		}
		traces = tp
		mods = append(mods, newCloser("tracer", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return tp.Shutdown(ctx)
		}))
	}
	tracer := dispatch.NewTracer(cfg.PacketLogLevel(), nil, m)
	if cfg.Packet.RecordPath != "" {
		rec := dispatch.NewFileRecorder(cfg.Packet.RecordPath, cfg.Log.MaxSize, cfg.Log.MaxBackups)
		tracer.Recorder = rec
		mods = append(mods, newCloser("recorder", rec.Close))
	}
	d, err := newDispatcher(tracer)
	if err != nil {
		return err
	}
	g := gate.FromConfig(cfg, d, m)
	g.Hooks = keepAliveHooks()

	mods = append(mods, g)
	if cfg.Metrics.Listen != "" {
		mods = append(mods, newAdmin(cfg.Metrics.Listen, reg, g, traces))
	}
	if watch != nil {
		config.Watch(watch, sc, packetLogReloader(tracer))
	}
	log.Info("channel %s starting, crypto=%s packet-log=%s", version, cfg.Crypto.Mode, cfg.PacketLogLevel())
	return module.StaticRun(cmd.Context(), mods, nil)
}

// packetLogReloader 配置文件里的packet.log_level变化后立即生效
func packetLogReloader(tracer *dispatch.Tracer) func(*config.Config) {
	return func(cfg *config.Config) {
		tracer.SetLevel(cfg.PacketLogLevel())
	}
}

// closer 只在销毁时释放一个资源
type closer struct {
	name  string
	close func() error
}

func newCloser(name string, fn func() error) *closer {
	return &closer{name: name, close: fn}
}

func (c *closer) Name() string {
	return c.name
}

func (c *closer) OnInit() error {
	return nil
}

func (c *closer) Run(ctx context.Context) {
	<-ctx.Done()
}

func (c *closer) OnDestroy() {
	if err := c.close(); err != nil {
		log.Warn("close %s: %v", c.name, err)
	}
}

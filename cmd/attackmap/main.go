// Command attackmap animates synthetic cyber attacks on a world map, in a
// desktop window, a terminal or over a websocket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/config"
	"github.com/sudorandom/attack-map/pkg/dashboard"
	"github.com/sudorandom/attack-map/pkg/metrics"
	"github.com/sudorandom/attack-map/pkg/scheduler"
)

// Globals are flags shared by every command. Set flags override the
// config file.
type Globals struct {
	Config  string `help:"YAML config file." type:"path" short:"c"`
	Debug   bool   `help:"Enable debug logging."`
	LogFile string `help:"Write logs to this file instead of stderr." type:"path"`

	Events int    `help:"Number of synthetic events to generate." default:"0"`
	Seed   int64  `help:"Random seed for synthetic events (0 uses the clock)." default:"0"`
	Speed  int    `help:"Playback speed level, 1 to 10." default:"0"`
	Mode   string `help:"Playback mode: simultaneous or sequential."`
	Filter string `help:"Attack type filter, or All."`
	Light  bool   `help:"Start with the light theme."`
	Paused bool   `help:"Start paused."`
}

type cli struct {
	Globals

	View    viewCmd    `cmd:"" default:"1" help:"Open the map in a window."`
	Serve   serveCmd   `cmd:"" help:"Stream animation instructions over a websocket with a control API."`
	Term    termCmd    `cmd:"" help:"Draw the map in the terminal."`
	Table   tableCmd   `cmd:"" help:"Print the attack table."`
	Country countryCmd `cmd:"" help:"Print the details for one country."`
	Stats   statsCmd   `cmd:"" help:"Print an aggregate as a bar chart."`
}

// app is the state every command starts from.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	metrics *metrics.Registry
}

func (g *Globals) load() (config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return cfg, err
	}
	if g.Events > 0 {
		cfg.Data.Count = g.Events
	}
	if g.Seed != 0 {
		cfg.Data.Seed = g.Seed
	}
	if g.Speed != 0 {
		cfg.Playback.SpeedLevel = g.Speed
	}
	if g.Mode != "" {
		cfg.Playback.Mode = scheduler.Mode(g.Mode)
	}
	if g.Filter != "" {
		cfg.Playback.AttackTypeFilter = g.Filter
	}
	if g.Light {
		cfg.Theme.Light = true
	}
	if g.Paused {
		cfg.Playback.Paused = true
	}
	if g.Debug {
		cfg.Debug = true
	}
	return cfg, cfg.Validate()
}

func (g *Globals) setup(quietStderr bool) (*app, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Debug, g.LogFile, quietStderr)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &app{cfg: cfg, logger: logger, metrics: metrics.NewRegistry()}, nil
}

// newLogger builds a production logger, or a development one in debug
// mode. quietStderr drops output unless a log file is given, for commands
// that own the terminal.
func newLogger(debug bool, file string, quietStderr bool) (*zap.Logger, error) {
	if file == "" && quietStderr {
		return zap.NewNop(), nil
	}
	zc := zap.NewProductionConfig()
	if debug {
		zc = zap.NewDevelopmentConfig()
	}
	if file != "" {
		zc.OutputPaths = []string{file}
		zc.ErrorOutputPaths = []string{file}
	}
	return zc.Build()
}

// newDashboard wires a dashboard to the given sink and notifiers.
func (a *app) newDashboard(sink scheduler.Sink, notifiers ...dashboard.Notifier) *dashboard.Dashboard {
	return dashboard.New(dashboard.Options{
		Config:   a.cfg,
		Sink:     sink,
		Notifier: dashboard.Notifiers(notifiers),
		Logger:   a.logger.Named("dashboard"),
		Metrics:  a.metrics,
	})
}

// load fetches the base map in the background and generates events. The
// map failing to load does not stop the animation.
func (a *app) load(ctx context.Context, dash *dashboard.Dashboard) error {
	go func() {
		_ = dash.LoadBaseMap(ctx, dashboard.FetchSource(a.cfg.Map, a.logger.Named("basemap")))
	}()
	return dash.LoadData(ctx, dashboard.MockSource(a.cfg.Data, scheduler.RealClock{}))
}

func (a *app) events(ctx context.Context) ([]attack.Event, error) {
	return dashboard.MockSource(a.cfg.Data, scheduler.RealClock{})(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var c cli
	kctx := kong.Parse(&c,
		kong.Name("attackmap"),
		kong.Description("Animated cyber-attack map."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := kctx.Run(&c.Globals)
	kctx.FatalIfErrorf(err)
}

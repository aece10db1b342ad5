package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/hajimehoshi/ebiten/v2"
	_ "github.com/silbinarywolf/preferdiscretegpu"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sudorandom/attack-map/pkg/analytics"
	"github.com/sudorandom/attack-map/pkg/dashboard"
	"github.com/sudorandom/attack-map/pkg/mapview"
	"github.com/sudorandom/attack-map/pkg/server"
	"github.com/sudorandom/attack-map/pkg/stream"
	"github.com/sudorandom/attack-map/pkg/termview"
)

type viewCmd struct {
	TPS        int           `help:"Ticks per second." default:"60"`
	CaptureDir string        `help:"Save PNG frames to this directory." type:"path"`
	Capture    time.Duration `help:"Interval between captured frames." default:"0s"`
}

func (c *viewCmd) Run(g *Globals, ctx context.Context) error {
	a, err := g.setup(false)
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	capture := a.cfg.Capture
	if c.CaptureDir != "" {
		capture.Dir = c.CaptureDir
	}
	if c.Capture > 0 {
		capture.Interval = c.Capture
	}

	toasts := mapview.NewToasts(nil)
	dash := a.newDashboard(nil, toasts)
	defer func() { _ = dash.Close() }()

	game := mapview.New(mapview.Options{
		Dashboard: dash,
		Toasts:    toasts,
		Logger:    a.logger.Named("mapview"),
		Capture:   capture,
	})
	if err := a.load(ctx, dash); err != nil {
		a.logger.Error("starting without attack data", zap.Error(err))
	}

	ebiten.SetTPS(c.TPS)
	ebiten.SetWindowSize(a.cfg.Map.Width, a.cfg.Map.Height)
	ebiten.SetWindowTitle("Cyber Attack Map")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(game)
}

type serveCmd struct {
	Addr string `help:"Listen address (overrides the config file)."`
}

func (c *serveCmd) Run(g *Globals, ctx context.Context) error {
	a, err := g.setup(false)
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	addr := a.cfg.Server.Addr
	if c.Addr != "" {
		addr = c.Addr
	}

	hub := stream.NewHub(stream.Options{Logger: a.logger.Named("stream"), Metrics: a.metrics})
	inbox := dashboard.NewInbox(64)
	dash := a.newDashboard(hub, inbox, hub)
	defer func() { _ = dash.Close() }()

	handler := server.NewHandler(server.Options{
		Dashboard: dash,
		Inbox:     inbox,
		Stream:    hub,
		Metrics:   a.metrics.Handler(),
		Logger:    a.logger,
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		a.logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		ticker := time.NewTicker(a.cfg.Server.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				dash.Tick()
			}
		}
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hub.Close()
		return srv.Shutdown(shutdownCtx)
	})
	if err := a.load(ctx, dash); err != nil {
		a.logger.Error("serving without attack data", zap.Error(err))
	}
	return eg.Wait()
}

type termCmd struct{}

func (c *termCmd) Run(g *Globals, ctx context.Context) error {
	a, err := g.setup(true)
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialise terminal: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()

	inbox := dashboard.NewInbox(16)
	dash := a.newDashboard(nil, inbox)
	defer func() { _ = dash.Close() }()

	view := termview.New(screen, dash, inbox, nil, a.logger.Named("termview"))
	if err := a.load(ctx, dash); err != nil {
		a.logger.Error("starting without attack data", zap.Error(err))
	}
	view.Run(ctx.Done())
	return nil
}

type tableCmd struct {
	Sort  string `help:"Sort column: type, origin, target, protocol or time." default:"time" enum:"type,origin,target,protocol,time"`
	Asc   bool   `help:"Sort ascending."`
	Limit int    `help:"Rows to print, 0 for all." default:"20"`
}

func (c *tableCmd) Run(g *Globals, ctx context.Context) error {
	a, err := g.setup(true)
	if err != nil {
		return err
	}
	events, err := a.events(ctx)
	if err != nil {
		return err
	}
	s := analytics.SortState{Field: analytics.SortField(c.Sort), Direction: analytics.Desc}
	if c.Asc {
		s.Direction = analytics.Asc
	}
	fmt.Println(analytics.RenderTable(events, s, c.Limit, time.Now()))
	return nil
}

type countryCmd struct {
	Name string `arg:"" help:"Country name, e.g. Japan."`
}

func (c *countryCmd) Run(g *Globals, ctx context.Context) error {
	a, err := g.setup(true)
	if err != nil {
		return err
	}
	events, err := a.events(ctx)
	if err != nil {
		return err
	}
	d := analytics.DetailFor(events, c.Name)
	if d.Empty() {
		fmt.Println(dashboard.EmptyNoCountryData.Message())
		return nil
	}
	fmt.Println(analytics.RenderCountry(d))
	return nil
}

type statsCmd struct {
	By    string `arg:"" help:"Aggregate: month, country, hour, protocol, host, type, port, source or yearmonth."`
	Width int    `help:"Bar width in characters." default:"40"`
}

func (c *statsCmd) Run(g *Globals, ctx context.Context) error {
	agg, ok := analytics.Aggregations[c.By]
	if !ok {
		return fmt.Errorf("unknown aggregate %q", c.By)
	}
	a, err := g.setup(true)
	if err != nil {
		return err
	}
	events, err := a.events(ctx)
	if err != nil {
		return err
	}
	title := "Attacks by " + strings.ToUpper(c.By[:1]) + c.By[1:]
	fmt.Println(analytics.RenderBars(title, agg(events), c.Width))
	return nil
}

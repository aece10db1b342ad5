// Package dashboard owns the state behind the attack map: the event set,
// playback settings, theme, selected country, projection and base map. It
// restarts the animation scheduler whenever one of its inputs changes and
// raises a notification for every control change.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/sudorandom/attack-map/pkg/analytics"
	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/config"
	"github.com/sudorandom/attack-map/pkg/geo"
	"github.com/sudorandom/attack-map/pkg/interaction"
	"github.com/sudorandom/attack-map/pkg/metrics"
	"github.com/sudorandom/attack-map/pkg/mockdata"
	"github.com/sudorandom/attack-map/pkg/scene"
	"github.com/sudorandom/attack-map/pkg/scheduler"
	"github.com/sudorandom/attack-map/pkg/utils"
	"github.com/sudorandom/attack-map/pkg/viewport"
)

// DataSource produces the event set.
type DataSource func(ctx context.Context) ([]attack.Event, error)

// BaseMapSource produces the country geometry.
type BaseMapSource func(ctx context.Context) (*geo.BaseMap, error)

// Options configures a Dashboard.
type Options struct {
	Config   config.Config
	Clock    scheduler.Clock
	Sink     scheduler.Sink
	Notifier Notifier
	Logger   *zap.Logger
	Metrics  *metrics.Registry
}

// Dashboard is safe for use from several goroutines.
type Dashboard struct {
	mu sync.Mutex

	cfg      config.Config
	clock    scheduler.Clock
	logger   *zap.Logger
	metrics  *metrics.Registry
	notifier Notifier

	events   []attack.Event
	loaded   bool
	playback scheduler.PlaybackConfig
	theme    scene.Theme
	selected string

	proj    *geo.Projector
	baseMap *geo.BaseMap
	mapErr  error

	scene *scene.Scene
	sched *scheduler.Scheduler
	view  *viewport.Controller

	// layerMu guards layer. It is never taken while holding mu.
	layerMu sync.Mutex
	layer   *interaction.Layer
}

// New builds a dashboard from a validated configuration. The scheduler
// stays idle until events are loaded.
func New(opts Options) *Dashboard {
	if opts.Clock == nil {
		opts.Clock = scheduler.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func(Notification) {})
	}
	d := &Dashboard{
		cfg:      opts.Config,
		clock:    opts.Clock,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		notifier: opts.Notifier,
		playback: opts.Config.Playback,
		theme:    scene.Theme{Light: opts.Config.Theme.Light},
		proj:     geo.NewProjector(opts.Config.Map.Projection, opts.Config.Map.Width, opts.Config.Map.Height, opts.Config.Map.Scale),
		scene:    scene.New(),
		view:     viewport.NewController(),
	}
	d.sched = scheduler.New(scheduler.Options{
		Clock:   opts.Clock,
		Sink:    scheduler.MultiSink{d.scene, opts.Sink},
		Limits:  opts.Config.Limits,
		Logger:  opts.Logger.Named("scheduler"),
		Metrics: opts.Metrics,
	})
	d.layer = interaction.NewLayer(interaction.NewTooltip(), d.SelectCountry)
	d.layer.SetGeometry(d.proj, nil)
	return d
}

// MockSource generates synthetic events from the data configuration. A
// zero end time means now.
func MockSource(cfg config.DataConfig, clock scheduler.Clock) DataSource {
	return func(ctx context.Context) ([]attack.Event, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := cfg.End
		if end.IsZero() {
			end = clock.Now()
		}
		seed := cfg.Seed
		if seed == 0 {
			seed = clock.Now().UnixNano()
		}
		return mockdata.Generate(cfg.Count, cfg.Start, end, rand.New(rand.NewSource(seed))), nil
	}
}

// FetchSource downloads the configured base map, through the on-disk cache
// when it is enabled.
func FetchSource(cfg config.MapConfig, logger *zap.Logger) BaseMapSource {
	dir := ""
	if cfg.UseCache {
		dir = cfg.CacheDir
		if dir == "" {
			dir = utils.DefaultCacheDir
		}
	}
	cache := utils.NewCache(dir, logger)
	return func(ctx context.Context) (*geo.BaseMap, error) {
		return geo.FetchBaseMap(ctx, cache, cfg.BaseMapURL)
	}
}

// LoadData replaces the event set from src. A failure keeps the current
// events and raises a destructive notification.
func (d *Dashboard) LoadData(ctx context.Context, src DataSource) error {
	events, err := src(ctx)
	if err != nil {
		d.logger.Error("failed to load attack data", zap.Error(err))
		d.notify(dataErrorNotification)
		return fmt.Errorf("failed to load attack data: %w", err)
	}

	d.mu.Lock()
	start := d.cfg.Data.Start
	end := d.cfg.Data.End
	if end.IsZero() {
		end = d.clock.Now()
	}
	d.setEventsLocked(events)
	d.mu.Unlock()

	d.logger.Info("attack data loaded", zap.Int("events", len(events)))
	d.notify(dataLoadedNotification(len(events), start.Format(dateLayout), end.Format(dateLayout)))
	return nil
}

// SetEvents replaces the event set and restarts playback.
func (d *Dashboard) SetEvents(events []attack.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setEventsLocked(events)
}

func (d *Dashboard) setEventsLocked(events []attack.Event) {
	d.events = events
	d.loaded = true
	d.restartLocked()
}

// LoadBaseMap fetches the country geometry. On failure the map keeps its
// placeholder, hover and click find no countries, and a destructive
// notification is raised. Attacks keep animating either way.
func (d *Dashboard) LoadBaseMap(ctx context.Context, src BaseMapSource) error {
	bm, err := src(ctx)
	d.metrics.RecordBaseMapLoad(err == nil)
	if err != nil {
		if !errors.Is(err, geo.ErrBaseMapUnavailable) {
			err = fmt.Errorf("%w: %v", geo.ErrBaseMapUnavailable, err)
		}
		d.logger.Error("failed to load base map", zap.Error(err))
		d.mu.Lock()
		d.mapErr = err
		d.mu.Unlock()
		d.notify(baseMapErrorNotification)
		return err
	}
	d.mu.Lock()
	d.baseMap = bm
	d.mapErr = nil
	d.mu.Unlock()

	d.layerMu.Lock()
	d.layer.SetGeometry(d.proj, bm)
	d.layerMu.Unlock()
	d.logger.Info("base map loaded", zap.Int("countries", len(bm.Countries)))
	return nil
}

// TogglePause flips the paused flag.
func (d *Dashboard) TogglePause() {
	d.mu.Lock()
	d.playback.Paused = !d.playback.Paused
	paused := d.playback.Paused
	d.restartLocked()
	d.mu.Unlock()
	d.notify(pauseNotification(paused))
}

// ToggleMode switches between simultaneous and sequential playback.
func (d *Dashboard) ToggleMode() {
	d.mu.Lock()
	d.playback.Mode = d.playback.Mode.Toggle()
	mode := d.playback.Mode
	d.restartLocked()
	d.mu.Unlock()
	d.notify(modeNotification(mode))
}

// SetSpeed sets the speed level, 1 (slowest) to 10 (fastest).
func (d *Dashboard) SetSpeed(level int) error {
	d.mu.Lock()
	p := d.playback
	p.SpeedLevel = level
	if err := config.ValidatePlayback(p); err != nil {
		d.mu.Unlock()
		return err
	}
	d.playback = p
	d.restartLocked()
	d.mu.Unlock()
	d.notify(speedNotification(level))
	return nil
}

// SetFilter restricts playback to one attack type, or attack.FilterAll.
func (d *Dashboard) SetFilter(filter string) error {
	d.mu.Lock()
	p := d.playback
	p.AttackTypeFilter = filter
	if err := config.ValidatePlayback(p); err != nil {
		d.mu.Unlock()
		return err
	}
	d.playback = p
	d.restartLocked()
	d.mu.Unlock()
	d.notify(filterNotification(filter))
	return nil
}

// Filters lists the attack-type filters in control order.
var Filters = func() []string {
	out := []string{attack.FilterAll}
	for _, t := range attack.Types {
		out = append(out, string(t))
	}
	return out
}()

// NextFilter returns the filter after current in Filters, wrapping around.
// Unknown filters restart at attack.FilterAll.
func NextFilter(current string) string {
	for i, f := range Filters {
		if f == current {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return attack.FilterAll
}

// CycleFilter moves to the next attack-type filter.
func (d *Dashboard) CycleFilter() error {
	return d.SetFilter(NextFilter(d.Playback().AttackTypeFilter))
}

// StepSpeed changes the speed level by delta. Steps past either end of the
// range are ignored.
func (d *Dashboard) StepSpeed(delta int) error {
	level := d.Playback().SpeedLevel + delta
	if level < scheduler.MinSpeedLevel || level > scheduler.MaxSpeedLevel {
		return nil
	}
	return d.SetSpeed(level)
}

// ToggleTheme switches between the light and dark palettes. Animation is
// not restarted.
func (d *Dashboard) ToggleTheme() {
	d.mu.Lock()
	d.theme = d.theme.Toggle()
	light := d.theme.Light
	d.mu.Unlock()
	d.notify(themeNotification(light))
}

// SelectCountry shows details for name. An empty name clears the
// selection without a notification.
func (d *Dashboard) SelectCountry(name string) {
	d.mu.Lock()
	d.selected = name
	d.mu.Unlock()
	if name != "" {
		d.notify(selectNotification(name))
	}
}

// Resize rebuilds the projection for the new surface, returns the
// viewport to identity and restarts playback with re-projected endpoints.
func (d *Dashboard) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, h := d.proj.Size(); w == width && h == height {
		return
	}
	d.cfg.Map.Width, d.cfg.Map.Height = width, height
	d.proj.Resize(width, height)
	d.view.ResetImmediate()
	d.restartLocked()
}

// ResetViewport starts the animated return to identity. Tick moves it.
func (d *Dashboard) ResetViewport() {
	d.view.Reset(d.clock.Now())
}

// Tick fires due animation callbacks and moves a running viewport reset.
func (d *Dashboard) Tick() {
	now := d.clock.Now()
	d.sched.Advance(now)
	d.view.Advance(now)
}

// Close stops playback.
func (d *Dashboard) Close() error {
	return d.sched.Close()
}

func (d *Dashboard) restartLocked() {
	if !d.loaded {
		return
	}
	if err := d.sched.Start(d.events, d.playback, d.proj); err != nil {
		d.logger.Debug("scheduler not restarted", zap.Error(err))
	}
}

func (d *Dashboard) notify(n Notification) {
	d.metrics.RecordNotification(n.Destructive)
	d.notifier.Notify(n)
}

// Playback returns the current playback settings.
func (d *Dashboard) Playback() scheduler.PlaybackConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playback
}

// Theme returns the current theme.
func (d *Dashboard) Theme() scene.Theme {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.theme
}

// SelectedCountry returns the selected country, or "".
func (d *Dashboard) SelectedCountry() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected
}

// Events returns the loaded event set.
func (d *Dashboard) Events() []attack.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.events
}

// BaseMap returns the loaded country geometry and the last load error.
func (d *Dashboard) BaseMap() (*geo.BaseMap, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.baseMap, d.mapErr
}

// Projector returns the projection for the current surface.
func (d *Dashboard) Projector() *geo.Projector { return d.proj }

// Scene returns the retained elements fed by the scheduler.
func (d *Dashboard) Scene() *scene.Scene { return d.scene }

// Scheduler returns the animation scheduler.
func (d *Dashboard) Scheduler() *scheduler.Scheduler { return d.sched }

// Viewport returns the zoom/pan controller.
func (d *Dashboard) Viewport() *viewport.Controller { return d.view }

// Tooltip returns the shared tooltip handle.
func (d *Dashboard) Tooltip() *interaction.Tooltip {
	d.layerMu.Lock()
	defer d.layerMu.Unlock()
	return d.layer.Tooltip()
}

// HoveredCountry returns the country under the pointer, if any.
func (d *Dashboard) HoveredCountry() string {
	d.layerMu.Lock()
	defer d.layerMu.Unlock()
	return d.layer.HoveredCountry()
}

// Pointer handles a pointer move. (sx, sy) is the screen position; the
// map point is derived through the current viewport transform.
func (d *Dashboard) Pointer(sx, sy float64) interaction.Content {
	mx, my := d.view.Transform().Invert(sx, sy)
	elements := d.sched.Elements()
	d.layerMu.Lock()
	defer d.layerMu.Unlock()
	return d.layer.Pointer(elements, geo.Point{X: mx, Y: my}, sx, sy)
}

// Leave hides the tooltip when the pointer leaves the map.
func (d *Dashboard) Leave() {
	d.layerMu.Lock()
	defer d.layerMu.Unlock()
	d.layer.Leave()
}

// ClickAt selects the country under screen point (sx, sy) and returns its
// name, or "" for empty space.
func (d *Dashboard) ClickAt(sx, sy float64) string {
	mx, my := d.view.Transform().Invert(sx, sy)
	d.layerMu.Lock()
	defer d.layerMu.Unlock()
	return d.layer.ClickAt(geo.Point{X: mx, Y: my})
}

// Size returns the projection surface size.
func (d *Dashboard) Size() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.proj.Size()
}

// MapState reports why the map has no attacks to animate.
func (d *Dashboard) MapState() EmptyState {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case !d.loaded:
		return EmptyLoading
	case len(d.events) == 0:
		return EmptyNoEvents
	}
	for _, ev := range d.events {
		if ev.Matches(d.playback.AttackTypeFilter) {
			return NotEmpty
		}
	}
	return EmptyNoMatches
}

// CountryDetail aggregates the selected country.
func (d *Dashboard) CountryDetail() (analytics.CountryDetail, EmptyState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.selected == "" {
		return analytics.CountryDetail{}, EmptyNoSelection
	}
	detail := analytics.DetailFor(d.events, d.selected)
	if detail.Empty() {
		return detail, EmptyNoCountryData
	}
	return detail, NotEmpty
}

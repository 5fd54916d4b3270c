package app

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/klabast/wb-services/newsletter/internal/calendar"
	"github.com/klabast/wb-services/newsletter/internal/content"
	"github.com/klabast/wb-services/newsletter/internal/i18n"
	"github.com/klabast/wb-services/newsletter/internal/weather"
	"github.com/klabast/wb-services/newsletter/pkg/logging"
)

// WeekLoader provides the startup documents and week documents
type WeekLoader interface {
	Documents() (*content.Documents, bool)
	Week(ctx context.Context, date string) (*content.Week, error)
}

// WeatherLookup answers best-effort forecast lookups
type WeatherLookup interface {
	Lookup(ctx context.Context, monday time.Time, newest bool, now time.Time) *weather.Daily
}

// State is the reader's current selection
type State struct {
	Lang      i18n.Lang
	Classroom string
	WeekKey   string
	Week      *content.Week
	// DarkMode is nil until the reader picks a theme
	DarkMode *bool
}

// LoadError is an essential-content failure with the banner text to show
type LoadError struct {
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *LoadError) Cause() error  { return e.Err }
func (e *LoadError) Unwrap() error { return e.Err }

// ErrNotReady is returned while no document load has succeeded yet
var ErrNotReady = errors.New("documents not loaded")

// Controller owns one reader's State. Every mutation goes through its
// methods; week loads carry a sequence number and a load that completes
// after a newer one was started is dropped.
type Controller struct {
	loader     WeekLoader
	weather    WeatherLookup
	prefs      Preferences
	logger     *logging.Logger
	now        func() time.Time
	filePrefix string

	mu      sync.Mutex
	state   State
	docs    *content.Documents
	issued  uint64
	current uint64
}

// ControllerOptions wires a controller
type ControllerOptions struct {
	Loader     WeekLoader
	Weather    WeatherLookup
	Prefs      Preferences
	Logger     *logging.Logger
	Now        func() time.Time
	Lang       i18n.Lang
	FilePrefix string
}

// NewController restores the persisted selection from opts.Prefs
func NewController(opts ControllerOptions) *Controller {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if _, ok := i18n.Parse(string(opts.Lang)); !ok {
		opts.Lang = i18n.Spanish
	}

	c := &Controller{
		loader:     opts.Loader,
		weather:    opts.Weather,
		prefs:      opts.Prefs,
		logger:     opts.Logger,
		now:        opts.Now,
		filePrefix: opts.FilePrefix,
		state:      State{Lang: opts.Lang},
	}
	if c.prefs != nil {
		c.state.Classroom, _ = c.prefs.Get(PrefClassroom)
		if v, ok := c.prefs.Get(PrefDarkMode); ok {
			if dark, err := strconv.ParseBool(v); err == nil {
				c.state.DarkMode = &dark
			}
		}
	}
	return c
}

// Init picks the requested week when it is published, else the newest one, and loads it
func (c *Controller) Init(ctx context.Context, requested string) error {
	docs, ok := c.loader.Documents()
	if !ok {
		return &LoadError{Message: MsgLoadFailed, Err: ErrNotReady}
	}

	c.mu.Lock()
	c.docs = docs
	if c.state.Classroom != "" && !docs.Config.HasClassroom(c.state.Classroom) {
		c.state.Classroom = ""
	}
	c.mu.Unlock()

	target := requested
	if !docs.Index.Contains(target) {
		target = docs.Index.Newest()
	}
	return c.LoadWeek(ctx, target)
}

// LoadWeek fetches the week keyed by date and makes it current
func (c *Controller) LoadWeek(ctx context.Context, date string) error {
	c.mu.Lock()
	c.issued++
	seq := c.issued
	c.mu.Unlock()

	week, err := c.loader.Week(ctx, date)
	if err != nil {
		c.logger.Error(ctx, "Failed to load week", logging.Fields{"week": date}, err)
		return &LoadError{Message: fmt.Sprintf(MsgWeekLoadFailed, date), Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq < c.current {
		c.logger.Debug(ctx, "Dropped superseded week load", logging.Fields{"week": date, "seq": seq, "current": c.current})
		return nil
	}
	c.current = seq
	c.state.WeekKey = date
	c.state.Week = week
	return nil
}

// HashChange follows a deep link: it loads key when it is published and not already shown
func (c *Controller) HashChange(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	docs := c.docs
	shown := c.state.WeekKey
	c.mu.Unlock()

	if docs == nil || !docs.Index.Contains(key) || key == shown {
		return false, nil
	}
	if err := c.LoadWeek(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

// SetLanguage switches the display language
func (c *Controller) SetLanguage(l i18n.Lang) {
	if _, ok := i18n.Parse(string(l)); !ok {
		return
	}
	c.mu.Lock()
	c.state.Lang = l
	c.mu.Unlock()
}

// SelectClassroom personalises the view; "" clears the selection
func (c *Controller) SelectClassroom(name string) error {
	c.mu.Lock()
	docs := c.docs
	c.mu.Unlock()
	if docs == nil {
		if d, ok := c.loader.Documents(); ok {
			docs = d
		}
	}
	if name != "" && (docs == nil || !docs.Config.HasClassroom(name)) {
		return errors.Errorf("unknown classroom %q", name)
	}

	c.mu.Lock()
	c.state.Classroom = name
	c.mu.Unlock()

	if c.prefs != nil {
		c.prefs.Set(PrefClassroom, name)
	}
	return nil
}

// ToggleDarkMode flips the theme and persists the new value
func (c *Controller) ToggleDarkMode(systemDark bool) bool {
	c.mu.Lock()
	dark := systemDark
	if c.state.DarkMode != nil {
		dark = *c.state.DarkMode
	}
	dark = !dark
	c.state.DarkMode = &dark
	c.mu.Unlock()

	if c.prefs != nil {
		c.prefs.Set(PrefDarkMode, strconv.FormatBool(dark))
	}
	return dark
}

// State returns a copy of the current selection
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View renders the current week, enriched with weather when available
func (c *Controller) View(ctx context.Context) (content.View, error) {
	c.mu.Lock()
	st := c.state
	docs := c.docs
	c.mu.Unlock()

	if docs == nil || st.Week == nil {
		return content.View{}, &LoadError{Message: MsgLoadFailed, Err: ErrNotReady}
	}

	now := c.now()
	var daily *weather.Daily
	if c.weather != nil {
		if monday, err := calendar.ParseDate(st.Week.Date); err == nil {
			daily = c.weather.Lookup(ctx, monday, st.WeekKey == docs.Index.Newest(), now)
		}
	}

	return content.Render(content.Input{
		Week:       st.Week,
		Docs:       docs,
		Lang:       st.Lang,
		Classroom:  st.Classroom,
		Now:        now,
		Weather:    daily,
		FilePrefix: c.filePrefix,
	}), nil
}

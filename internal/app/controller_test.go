package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klabast/wb-services/newsletter/internal/content"
	"github.com/klabast/wb-services/newsletter/internal/i18n"
	"github.com/klabast/wb-services/newsletter/internal/weather"
)

const testDataDir = "../content/testdata"

func testLibrary(t *testing.T) *content.Library {
	t.Helper()
	lib := content.NewLibrary(content.DirSource{Root: testDataDir}, nil, nil)
	_, err := lib.Load(context.Background())
	require.NoError(t, err)
	return lib
}

// blockingLoader holds back one week until release is closed
type blockingLoader struct {
	*content.Library
	block   string
	started chan struct{}
	release chan struct{}
}

func (b *blockingLoader) Week(ctx context.Context, date string) (*content.Week, error) {
	if date == b.block {
		close(b.started)
		<-b.release
	}
	return b.Library.Week(ctx, date)
}

type stubWeather struct {
	calls  int32
	newest bool
}

func (s *stubWeather) Lookup(ctx context.Context, monday time.Time, newest bool, now time.Time) *weather.Daily {
	atomic.AddInt32(&s.calls, 1)
	s.newest = newest
	return nil
}

func newTestController(t *testing.T, loader WeekLoader, prefs Preferences) *Controller {
	return NewController(ControllerOptions{
		Loader: loader,
		Prefs:  prefs,
		Now:    func() time.Time { return gateNow },
		Lang:   i18n.English,
	})
}

func TestControllerInit(t *testing.T) {
	ctx := context.Background()
	lib := testLibrary(t)

	ctl := newTestController(t, lib, memoryPrefs{})
	require.NoError(t, ctl.Init(ctx, ""))
	assert.Equal(t, "2025-11-17", ctl.State().WeekKey)

	ctl = newTestController(t, lib, memoryPrefs{})
	require.NoError(t, ctl.Init(ctx, "2025-09-08"))
	assert.Equal(t, "2025-09-08", ctl.State().WeekKey)
	assert.Equal(t, "2025-09-08", ctl.State().Week.Date)

	ctl = newTestController(t, lib, memoryPrefs{})
	require.NoError(t, ctl.Init(ctx, "2030-01-07"))
	assert.Equal(t, "2025-11-17", ctl.State().WeekKey, "unpublished weeks fall back to the newest")
}

func TestControllerInitNotReady(t *testing.T) {
	lib := content.NewLibrary(content.DirSource{Root: testDataDir}, nil, nil)
	ctl := newTestController(t, lib, memoryPrefs{})

	err := ctl.Init(context.Background(), "")
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, MsgLoadFailed, le.Message)
	assert.Equal(t, ErrNotReady, errors.Cause(err))
}

func TestControllerRestoresPreferences(t *testing.T) {
	lib := testLibrary(t)
	prefs := memoryPrefs{PrefClassroom: "Mr. Patel", PrefDarkMode: "true"}

	ctl := newTestController(t, lib, prefs)
	require.NoError(t, ctl.Init(context.Background(), ""))

	st := ctl.State()
	assert.Equal(t, "Mr. Patel", st.Classroom)
	require.NotNil(t, st.DarkMode)
	assert.True(t, *st.DarkMode)
}

func TestControllerDropsRemovedClassroom(t *testing.T) {
	lib := testLibrary(t)
	ctl := newTestController(t, lib, memoryPrefs{PrefClassroom: "Mrs. Gone"})
	require.NoError(t, ctl.Init(context.Background(), ""))
	assert.Empty(t, ctl.State().Classroom)
}

func TestControllerSelectClassroom(t *testing.T) {
	lib := testLibrary(t)
	prefs := memoryPrefs{}
	ctl := newTestController(t, lib, prefs)
	require.NoError(t, ctl.Init(context.Background(), ""))

	require.NoError(t, ctl.SelectClassroom("Ms. García"))
	assert.Equal(t, "Ms. García", ctl.State().Classroom)
	assert.Equal(t, "Ms. García", prefs[PrefClassroom])

	assert.Error(t, ctl.SelectClassroom("Nobody"))
	assert.Equal(t, "Ms. García", ctl.State().Classroom)

	require.NoError(t, ctl.SelectClassroom(""))
	assert.Empty(t, ctl.State().Classroom)
	assert.Equal(t, "", prefs[PrefClassroom])
}

func TestControllerToggleDarkMode(t *testing.T) {
	prefs := memoryPrefs{}
	ctl := newTestController(t, testLibrary(t), prefs)
	assert.Nil(t, ctl.State().DarkMode)

	assert.False(t, ctl.ToggleDarkMode(true), "first toggle flips the system preference")
	assert.Equal(t, "false", prefs[PrefDarkMode])

	assert.True(t, ctl.ToggleDarkMode(true))
	assert.Equal(t, "true", prefs[PrefDarkMode])
}

func TestControllerSetLanguage(t *testing.T) {
	ctl := newTestController(t, testLibrary(t), nil)

	ctl.SetLanguage(i18n.Spanish)
	assert.Equal(t, i18n.Spanish, ctl.State().Lang)

	ctl.SetLanguage(i18n.Lang("de"))
	assert.Equal(t, i18n.Spanish, ctl.State().Lang)
}

func TestControllerHashChange(t *testing.T) {
	ctx := context.Background()
	ctl := newTestController(t, testLibrary(t), nil)
	require.NoError(t, ctl.Init(ctx, ""))

	changed, err := ctl.HashChange(ctx, "2025-11-17")
	require.NoError(t, err)
	assert.False(t, changed, "already shown")

	changed, err = ctl.HashChange(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.False(t, changed, "not published")

	changed, err = ctl.HashChange(ctx, "2025-09-08")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "2025-09-08", ctl.State().WeekKey)
}

func TestControllerDropsSupersededLoad(t *testing.T) {
	ctx := context.Background()
	loader := &blockingLoader{
		Library: testLibrary(t),
		block:   "2025-09-08",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	ctl := newTestController(t, loader, nil)
	require.NoError(t, ctl.Init(ctx, "2025-11-17"))

	errc := make(chan error, 1)
	go func() { errc <- ctl.LoadWeek(ctx, "2025-09-08") }()
	<-loader.started

	require.NoError(t, ctl.LoadWeek(ctx, "2025-11-17"))
	close(loader.release)
	require.NoError(t, <-errc)

	assert.Equal(t, "2025-11-17", ctl.State().WeekKey)
	assert.Equal(t, "2025-11-17", ctl.State().Week.Date)
}

func TestControllerLoadWeekFailure(t *testing.T) {
	ctx := context.Background()
	ctl := newTestController(t, testLibrary(t), nil)
	require.NoError(t, ctl.Init(ctx, ""))

	err := ctl.LoadWeek(ctx, "2025-12-01")
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "Could not load newsletter for 2025-12-01. The data file may be missing.", le.Message)
	assert.Equal(t, content.ErrNotFound, errors.Cause(err))
	assert.Equal(t, "2025-11-17", ctl.State().WeekKey, "failed loads keep the shown week")
}

func TestControllerView(t *testing.T) {
	ctx := context.Background()
	w := &stubWeather{}
	ctl := NewController(ControllerOptions{
		Loader:  testLibrary(t),
		Weather: w,
		Prefs:   memoryPrefs{PrefClassroom: "Mr. Patel"},
		Now:     func() time.Time { return gateNow },
		Lang:    i18n.English,
	})

	_, err := ctl.View(ctx)
	assert.Error(t, err, "nothing loaded yet")

	require.NoError(t, ctl.Init(ctx, ""))
	v, err := ctl.View(ctx)
	require.NoError(t, err)

	assert.Equal(t, "2025-11-17", v.WeekKey)
	assert.Equal(t, i18n.English, v.Lang)
	assert.NotNil(t, v.MySpecials)
	assert.EqualValues(t, 1, atomic.LoadInt32(&w.calls))
	assert.True(t, w.newest)
}

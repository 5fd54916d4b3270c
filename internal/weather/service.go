package weather

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/klabast/wb-services/newsletter/internal/calendar"
	"github.com/klabast/wb-services/newsletter/pkg/logging"
)

// DefaultHorizonDays is how far ahead the provider returns daily forecasts
const DefaultHorizonDays = 16

// Fetcher is the network side of a lookup
type Fetcher interface {
	Fetch(ctx context.Context, start, end time.Time) (*Forecast, error)
}

// Recorder receives lookup outcomes (hit, miss, skipped, error)
type Recorder interface {
	WeatherLookup(result string)
}

type nopRecorder struct{}

func (nopRecorder) WeatherLookup(string) {}

// Service answers best-effort forecast lookups for a displayed week.
// Results are kept for the life of the process, keyed by "start_end".
type Service struct {
	fetcher     Fetcher
	horizonDays int
	logger      *logging.Logger
	recorder    Recorder

	mu    sync.Mutex
	cache map[string]*Forecast
	group singleflight.Group
}

// NewService creates a lookup service; recorder may be nil
func NewService(f Fetcher, horizonDays int, logger *logging.Logger, recorder Recorder) *Service {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		fetcher:     f,
		horizonDays: horizonDays,
		logger:      logger.With(logging.Fields{"component": "weather"}),
		recorder:    recorder,
		cache:       make(map[string]*Forecast),
	}
}

// CacheKey is the memo key for a Monday-to-Friday window
func CacheKey(monday time.Time) string {
	return calendar.FormatDate(monday) + "_" + calendar.FormatDate(monday.AddDate(0, 0, 4))
}

// InHorizon reports whether the Friday of the week starting monday is within the forecast horizon
func (s *Service) InHorizon(monday, now time.Time) bool {
	friday := monday.AddDate(0, 0, 4)
	end := time.Date(friday.Year(), friday.Month(), friday.Day(), 0, 0, 0, 0, now.Location())
	daysUntilEnd := int(math.Ceil(end.Sub(now).Hours() / 24))
	return daysUntilEnd <= s.horizonDays
}

// Lookup returns the daily forecast for the week starting monday, or nil.
// Only the newest week within the horizon is looked up; any failure yields nil.
func (s *Service) Lookup(ctx context.Context, monday time.Time, newest bool, now time.Time) *Daily {
	if s == nil || !newest || !s.InHorizon(monday, now) {
		if s != nil {
			s.recorder.WeatherLookup("skipped")
		}
		return nil
	}

	key := CacheKey(monday)

	s.mu.Lock()
	cached, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		s.recorder.WeatherLookup("hit")
		return usable(cached)
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		f, err := s.fetcher.Fetch(ctx, monday, monday.AddDate(0, 0, 4))
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[key] = f
		s.mu.Unlock()
		return f, nil
	})
	if err != nil {
		s.recorder.WeatherLookup("error")
		s.logger.Warn(ctx, "Weather lookup failed", logging.Fields{"key": key}, err)
		return nil
	}

	s.recorder.WeatherLookup("miss")
	return usable(v.(*Forecast))
}

func usable(f *Forecast) *Daily {
	if f == nil || f.Daily == nil || len(f.Daily.Time) == 0 {
		return nil
	}
	return f.Daily
}

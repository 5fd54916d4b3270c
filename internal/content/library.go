package content

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/klabast/wb-services/newsletter/internal/calendar"
	"github.com/klabast/wb-services/newsletter/pkg/logging"
)

// Recorder receives document load outcomes
type Recorder interface {
	DocumentError(document string)
	LibraryReload(result string, at time.Time)
}

type nopRecorder struct{}

func (nopRecorder) DocumentError(string)            {}
func (nopRecorder) LibraryReload(string, time.Time) {}

// Library owns the startup documents and fetches week documents on demand.
// Each Load takes a sequence token; a load that finishes after a newer one
// has already been applied is discarded.
type Library struct {
	source   Source
	logger   *logging.Logger
	recorder Recorder

	mu      sync.RWMutex
	docs    *Documents
	issued  uint64
	applied uint64
}

// NewLibrary creates an empty library; call Load before serving
func NewLibrary(src Source, logger *logging.Logger, recorder Recorder) *Library {
	if logger == nil {
		logger = logging.Discard()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Library{
		source:   src,
		logger:   logger.With(logging.Fields{"component": "library"}),
		recorder: recorder,
	}
}

// Load fetches config, week index and calendar in parallel and installs them
func (l *Library) Load(ctx context.Context) (*Documents, error) {
	l.mu.Lock()
	l.issued++
	token := l.issued
	l.mu.Unlock()

	docs := &Documents{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var cfg Config
		if err := l.fetchJSON(gctx, ConfigPath, &cfg); err != nil {
			return err
		}
		if err := Validate(&cfg); err != nil {
			return l.fail(gctx, ConfigPath, err)
		}
		docs.Config = &cfg
		return nil
	})
	g.Go(func() error {
		var ix Index
		if err := l.fetchJSON(gctx, IndexPath, &ix); err != nil {
			return err
		}
		if err := ValidateIndex(ix); err != nil {
			return l.fail(gctx, IndexPath, err)
		}
		docs.Index = ix
		return nil
	})
	g.Go(func() error {
		var cal calendar.Calendar
		if err := l.fetchJSON(gctx, CalendarPath, &cal); err != nil {
			return err
		}
		if err := Validate(&cal); err != nil {
			return l.fail(gctx, CalendarPath, err)
		}
		if _, _, err := cal.Bounds(); err != nil {
			return l.fail(gctx, CalendarPath, errors.Wrap(ErrInvalidDocument, err.Error()))
		}
		docs.Calendar = &cal
		return nil
	})

	if err := g.Wait(); err != nil {
		l.recorder.LibraryReload("error", time.Now())
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if token < l.applied {
		l.recorder.LibraryReload("stale", time.Now())
		l.logger.Info(ctx, "Discarded stale document load", logging.Fields{"token": token, "applied": l.applied})
		return docs, nil
	}
	l.docs = docs
	l.applied = token
	l.recorder.LibraryReload("ok", time.Now())
	l.logger.Info(ctx, "Documents loaded", logging.Fields{
		"weeks":      len(docs.Index),
		"classrooms": len(docs.Config.Classrooms),
		"newest":     docs.Index.Newest(),
	})
	return docs, nil
}

// Documents returns the installed documents, if any load has succeeded
func (l *Library) Documents() (*Documents, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.docs, l.docs != nil
}

// Week fetches and validates the week document keyed by date
func (l *Library) Week(ctx context.Context, date string) (*Week, error) {
	if _, err := calendar.ParseDate(date); err != nil {
		return nil, errors.Wrap(ErrNotFound, date)
	}
	var w Week
	p := WeekPath(date)
	if err := l.fetchJSON(ctx, p, &w); err != nil {
		return nil, err
	}
	if err := Validate(&w); err != nil {
		return nil, l.fail(ctx, p, err)
	}
	return &w, nil
}

func (l *Library) fetchJSON(ctx context.Context, name string, v interface{}) error {
	data, err := l.source.Fetch(ctx, name)
	if err != nil {
		return l.fail(ctx, name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return l.fail(ctx, name, errors.Wrap(ErrInvalidDocument, err.Error()))
	}
	return nil
}

func (l *Library) fail(ctx context.Context, name string, err error) error {
	l.recorder.DocumentError(name)
	l.logger.Error(ctx, "Failed to load document", logging.Fields{"document": name}, err)
	return errors.Wrapf(err, "load %s", name)
}

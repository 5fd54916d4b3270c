package content

import (
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/klabast/wb-services/newsletter/pkg/logging"
)

// Document paths relative to the data root
const (
	ConfigPath   = "config.json"
	IndexPath    = "weeks/weeks-index.json"
	CalendarPath = "calendar.json"
	WeeksDir     = "weeks"
)

// ErrNotFound is returned when a document does not exist at its source
var ErrNotFound = errors.New("document not found")

// WeekPath returns the path of the week document keyed by date
func WeekPath(date string) string {
	return path.Join(WeeksDir, date+".json")
}

// Source fetches raw newsletter documents by relative path
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// DirSource reads documents from a data directory
type DirSource struct {
	Root   string
	Logger *logging.Logger
}

// Fetch reads Root/name
func (s DirSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return nil, errors.Errorf("invalid document path %q", name)
	}

	file, err := os.Open(filepath.Join(s.Root, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrNotFound, name)
		}
		return nil, errors.Wrapf(err, "open %s", name)
	}
	defer func() {
		if err := file.Close(); err != nil && s.Logger != nil {
			s.Logger.Warn(ctx, "Error closing document", logging.Fields{"path": name}, err)
		}
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return data, nil
}

// HTTPSource fetches documents below a base URL, busting caches with ?v=<unix ms>
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
	Now     func() time.Time
}

// Fetch GETs BaseURL/name
func (s HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	u := strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(name, "/") +
		"?v=" + strconv.FormatInt(now().UnixMilli(), 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build request for %s", name)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", name)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrap(ErrNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetch %s: status %d", name, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return data, nil
}

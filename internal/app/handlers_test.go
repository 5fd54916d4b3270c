package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klabast/wb-services/newsletter/internal/content"
	"github.com/klabast/wb-services/newsletter/internal/i18n"
	"github.com/klabast/wb-services/newsletter/pkg/logging"
	"github.com/klabast/wb-services/newsletter/pkg/metrics"
)

type testServer struct {
	router http.Handler
	gate   *Gate
	unlock *http.Cookie
}

func testSettings() *Settings {
	return &Settings{
		Port:             8080,
		DataDir:          testDataDir,
		Timezone:         "UTC",
		DefaultLang:      i18n.Spanish,
		SchoolName:       "Bancroft Elementary",
		GateDigest:       Digest(testPassword),
		GateDays:         30,
		ICSProductID:     DefaultICSProductID,
		ICSSummarySuffix: DefaultICSSummarySuffix,
		ICSDescription:   DefaultICSDescription,
		ICSUIDDomain:     "newsletter.test",
		FilePrefix:       DefaultFilePrefix,
	}
}

func newTestServer(t *testing.T, lib Library) *testServer {
	t.Helper()
	settings := testSettings()
	gate := NewGate(settings.GateDigest, settings.GateDays, nil)

	srv, err := NewServer(ServerOptions{
		Settings: settings,
		Library:  lib,
		Gate:     gate,
		Admin:    &AdminAuth{logger: logging.Discard()},
		Metrics:  metrics.NewCollector("newsletter"),
		Static:   fstest.MapFS{"style.css": {Data: []byte("body{}")}},
		Now:      func() time.Time { return gateNow },
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	require.True(t, gate.Attempt(NewCookiePreferences(w, httptest.NewRequest("POST", "/unlock", nil)), testPassword, gateNow))

	return &testServer{router: srv.Router(), gate: gate, unlock: w.Result().Cookies()[0]}
}

func (ts *testServer) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) get(target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest("GET", target, nil), cookies...)
}

func (ts *testServer) post(target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return ts.do(req, cookies...)
}

func document(t *testing.T, w *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(w.Body)
	require.NoError(t, err)
	return doc
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestPagesRequireUnlock(t *testing.T) {
	ts := newTestServer(t, testLibrary(t))

	w := ts.get("/week/2025-09-08?lang=en")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/unlock?next="+url.QueryEscape("/week/2025-09-08?lang=en"), w.Header().Get("Location"))

	w = ts.get("/api/weeks")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"locked"`)
}

func TestUnlock(t *testing.T) {
	ts := newTestServer(t, testLibrary(t))

	t.Run("Form", func(t *testing.T) {
		w := ts.get("/unlock?next=/week/2025-09-08&lang=en")
		require.Equal(t, http.StatusOK, w.Code)
		doc := document(t, w)
		input := doc.Find("#password-input")
		require.Equal(t, 1, input.Length())
		_, autofocus := input.Attr("autofocus")
		assert.True(t, autofocus)
		assert.Equal(t, "/week/2025-09-08", doc.Find(`input[name="next"]`).AttrOr("value", ""))
	})

	t.Run("Already unlocked", func(t *testing.T) {
		w := ts.get("/unlock?next=/week/2025-09-08", ts.unlock)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/week/2025-09-08", w.Header().Get("Location"))
	})

	t.Run("Wrong password", func(t *testing.T) {
		w := ts.post("/unlock", url.Values{"password": {"tigers"}, "next": {"/"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Nil(t, cookieNamed(w, PrefAuth))
		doc := document(t, w)
		assert.Equal(t, MsgWrongPassword, doc.Find("#password-error").Text())
	})

	t.Run("Right password", func(t *testing.T) {
		w := ts.post("/unlock", url.Values{"password": {testPassword}, "next": {"/week/2025-09-08"}})
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/week/2025-09-08", w.Header().Get("Location"))

		c := cookieNamed(w, PrefAuth)
		require.NotNil(t, c)
		assert.Equal(t, http.StatusOK, ts.get("/", c).Code)
	})

	t.Run("Offsite next", func(t *testing.T) {
		for _, next := range []string{"//evil.example", "https://evil.example", `/\evil.example`} {
			w := ts.post("/unlock", url.Values{"password": {testPassword}, "next": {next}})
			assert.Equal(t, "/", w.Header().Get("Location"), next)
		}
	})
}

func TestPageRendersNewestWeek(t *testing.T) {
	ts := newTestServer(t, testLibrary(t))

	w := ts.get("/?lang=en", ts.unlock)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))

	doc := document(t, w)
	assert.Equal(t, "en", doc.Find("html").AttrOr("lang", ""))
	assert.Equal(t, "Bancroft Weekly", doc.Find("#title").Text())
	assert.Equal(t, "November 17, 2025", doc.Find("#date-display").Text())
	assert.Equal(t, 5, doc.Find("#specials-table tr").Length())
	assert.Equal(t, 2, doc.Find("#archive-list li").Length())
	assert.Equal(t, "/week/2025-11-17?lang=en", doc.Find("#archive-list a.active").AttrOr("href", ""))
	assert.Equal(t, 0, doc.Find("#my-specials").Length())
	assert.Equal(t, 1, doc.Find("#dashboard").Length())
	assert.Equal(t, 0, doc.Find("script").Length())
	assert.Empty(t, doc.Find("body").AttrOr("class", ""), "theme follows the system until chosen")
}

func TestPageLanguage(t *testing.T) {
	ts := newTestServer(t, testLibrary(t))

	req := httptest.NewRequest("GET", "/week/2025-11-17", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	doc := document(t, ts.do(req, ts.unlock))
	assert.Equal(t, "November 17, 2025", doc.Find("#date-display").Text())

	doc = document(t, ts.get("/week/2025-11-17", ts.unlock))
	assert.Equal(t, "17 de noviembre de 2025", doc.Find("#date-display").Text(), "Spanish by default")

	req = httptest.NewRequest("GET", "/week/2025-11-17?lang=es", nil)
	req.Header.Set("Accept-Language", "en-US")
	doc = document(t, ts.do(req, ts.unlock))
	assert.Equal(t, "es", doc.Find("html").AttrOr("lang", ""), "query wins over the header")
}

func TestPageArchiveWeek(t *testing.T) {
	ts := newTestServer(t, testLibrary(t))

	doc := document(t, ts.get("/week/2025-09-08?lang=en", ts.unlock))
	assert.Equal(t, "/week/2025-09-08?lang=en", doc.Find("#archive-list a.active").AttrOr("href", ""))

	doc = document(t, ts.get("/week/2031-01-06?lang=en", ts.unlock))
	assert.Equal(t, "/week/2025-11-17?lang=en", doc.Find("#archive-list a.active").AttrOr("href", ""))
}

func TestPageMissingWeekFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{content.ConfigPath, content.CalendarPath, content.WeekPath("2025-11-17")} {
		data, err := os.ReadFile(filepath.Join(testDataDir, name))
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
	}
	index := `["2025-12-01", "2025-11-17"]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, content.IndexPath), []byte(index), 0644))

	lib := content.NewLibrary(content.DirSource{Root: dir}, nil, nil)
	_, err := lib.Load(context.Background())
	require.NoError(t, err)
	ts := newTestServer(t, lib)

	w := ts.get("/", ts.unlock)
	assert.Equal(t, http.StatusNotFound, w.Code)
	doc := document(t, w)
	assert.Equal(t, "Could not load newsletter for 2025-12-01. The data file may be missing.", doc.Find("#error-message").Text())

	assert.Equal(t, http.StatusOK, ts.get("/week/2025-11-17", ts.unlock).Code)
}

func TestPageBeforeDocumentsLoad(t *testing.T) {
	ts := newTestServer(t, content.NewLibrary(content.DirSource{Root: t.TempDir()}, nil, nil))

	w := ts.get("/", ts.unlock)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, MsgLoadFailed, document(t, w).Find("#error-message").Text())

	assert.Equal(t, http.StatusServiceUnavailable, ts.get("/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, ts.get("/calendar.ics").Code)
}

func TestSelectClassroom(t *testing.T) {
	ts := newTestServer(t, testLibrary(t))

	w := ts.post("/prefs/classroom", url.Values{"classroom": {"Mr. Patel"}, "next": {"/week/2025-11-17?lang=en"}}, ts.unlock)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/week/2025-11-17?lang=en", w.Header().Get("Location"))
	class := cookieNamed(w, PrefClassroom)
	require.NotNil(t, class)

	doc := document(t, ts.get("/week/2025-11-17?lang=en", ts.unlock, class))
	assert.Equal(t, 1, doc.Find("#my-specials").Length())
	assert.Equal(t, 5, doc.Find(".my-specials-day").Length())
	assert.Equal(t, "Mr. Patel", doc.Find(".class-btn.active").AttrOr("value", ""))

	w = ts.post("/prefs/classroom", url.Values{"classroom": {"Nobody"}}, ts.unlock)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToggleDarkMode(t *testing.T) {
	ts := newTestServer(t, testLibrary(t))

	w := ts.post("/prefs/dark-mode", url.Values{"next": {"/"}}, ts.unlock)
	require.Equal(t, http.StatusSeeOther, w.Code)
	dark := cookieNamed(w, PrefDarkMode)
	require.NotNil(t, dark)
	assert.Equal(t, "true", dark.Value)

	doc := document(t, ts.get("/", ts.unlock, dark))
	assert.Equal(t, "dark-mode", doc.Find("body").AttrOr("class", ""))

	w = ts.post("/prefs/dark-mode", url.Values{"next": {"/"}}, ts.unlock, dark)
	light := cookieNamed(w, PrefDarkMode)
	require.NotNil(t, light)
	assert.Equal(t, "false", light.Value)
}

func TestEventICSHandler(t *testing.T) {
	ts := newTestServer(t, testLibrary(t))

	assert.Equal(t, http.StatusSeeOther, ts.get("/calendar/2025-12-05.ics").Code)

	w := ts.get("/calendar/2025-12-05.ics?reminderDays=1&reminderTime=18:00", ts.unlock)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=bancroft-2025-12-05.ics", w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "TRIGGER:-P0DT6H0M")

	assert.Equal(t, http.StatusNotFound, ts.get("/calendar/2025-12-06.ics", ts.unlock).Code)
	assert.Equal(t, http.StatusBadRequest, ts.get("/calendar/2025-12-05.ics?reminderTime=99:99", ts.unlock).Code)
}

func TestSubscriptionHandler(t *testing.T) {
	ts := newTestServer(t, testLibrary(t))

	w := ts.get("/calendar.ics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Disposition"), "feeds are served inline")
	body := w.Body.String()
	assert.Contains(t, body, "METHOD:PUBLISH")
	assert.Equal(t, 5, strings.Count(body, "BEGIN:VEVENT"))
}

func TestWeeksAPI(t *testing.T) {
	ts := newTestServer(t, testLibrary(t))

	w := ts.get("/api/weeks?lang=en", ts.unlock)
	require.Equal(t, http.StatusOK, w.Code)

	var resp WeeksResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2025-11-17", resp.Newest)
	require.Len(t, resp.Weeks, 2)
	assert.Equal(t, "2025-11-17", resp.Weeks[0].Key)
	assert.True(t, strings.HasSuffix(resp.Weeks[0].Label, "November 17, 2025"), resp.Weeks[0].Label)
}

func TestDashboardAPI(t *testing.T) {
	ts := newTestServer(t, testLibrary(t))

	w := ts.get("/api/dashboard?week=2025-11-17", ts.unlock)
	require.Equal(t, http.StatusOK, w.Code)

	var resp DashboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2025-11-17", resp.Week)
	assert.Equal(t, 13, resp.WeekNumber)
	assert.Equal(t, 18, resp.TotalWeeks)
	assert.Equal(t, 76, resp.TotalSchoolDays)

	assert.Equal(t, http.StatusBadRequest, ts.get("/api/dashboard?week=soon", ts.unlock).Code)
}

func TestAdminEndpoints(t *testing.T) {
	ts := newTestServer(t, testLibrary(t))

	w := ts.get("/admin/status")
	require.Equal(t, http.StatusOK, w.Code)
	var st StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.True(t, st.Ready)
	assert.Equal(t, "2025-11-17", st.Newest)
	assert.Equal(t, 2, st.Weeks)
	assert.False(t, st.AdminProtected)

	w = ts.do(httptest.NewRequest("POST", "/admin/reload", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusMethodNotAllowed, ts.get("/admin/reload").Code)
}

func TestRequestIDAndMetrics(t *testing.T) {
	ts := newTestServer(t, testLibrary(t))

	w := ts.get("/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set(headerRequestID, "abc-123")
	assert.Equal(t, "abc-123", ts.do(req).Header().Get(headerRequestID))

	ts.get("/week/2025-09-08", ts.unlock)
	body := ts.get("/metrics").Body.String()
	assert.Contains(t, body, `newsletter_http_requests_total{method="GET",route="/healthz",status="200"} 2`)
	assert.Contains(t, body, `route="/week/{date}"`)
}

func TestStaticFiles(t *testing.T) {
	ts := newTestServer(t, testLibrary(t))

	w := ts.get("/static/style.css")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "body{}", w.Body.String())
}

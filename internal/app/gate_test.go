package app

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryPrefs is an in-memory Preferences
type memoryPrefs map[string]string

func (m memoryPrefs) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m memoryPrefs) Set(key, value string) { m[key] = value }
func (m memoryPrefs) Delete(key string)     { delete(m, key) }

type countingGateRecorder struct{ ok, failed int }

func (c *countingGateRecorder) GateAttempt(ok bool) {
	if ok {
		c.ok++
	} else {
		c.failed++
	}
}

const testPassword = "lions"

var gateNow = time.Date(2025, 11, 18, 9, 30, 0, 0, time.UTC)

func TestDigest(t *testing.T) {
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", Digest("hello"))
	assert.Len(t, Digest(""), 64)
}

func TestGateAttempt(t *testing.T) {
	rec := &countingGateRecorder{}
	g := NewGate(Digest(testPassword), 30, rec)
	prefs := memoryPrefs{}

	assert.False(t, g.Attempt(prefs, "tigers", gateNow))
	assert.False(t, g.Unlocked(prefs, gateNow))
	assert.Empty(t, prefs)

	assert.True(t, g.Attempt(prefs, testPassword, gateNow))
	assert.True(t, g.Unlocked(prefs, gateNow))
	assert.True(t, g.Unlocked(prefs, gateNow.Add(29*24*time.Hour)))

	assert.Equal(t, 1, rec.ok)
	assert.Equal(t, 1, rec.failed)
}

func TestGateExpiry(t *testing.T) {
	g := NewGate(Digest(testPassword), 30, nil)
	prefs := memoryPrefs{}
	require.True(t, g.Attempt(prefs, testPassword, gateNow))

	assert.False(t, g.Unlocked(prefs, gateNow.Add(31*24*time.Hour)))
	_, kept := prefs[PrefAuth]
	assert.False(t, kept, "expired record is removed")
}

func TestGateMalformedRecords(t *testing.T) {
	g := NewGate(Digest(testPassword), 30, nil)

	for name, value := range map[string]string{
		"not base64": "%%%",
		"not json":   base64.RawURLEncoding.EncodeToString([]byte("hash")),
	} {
		t.Run(name, func(t *testing.T) {
			prefs := memoryPrefs{PrefAuth: value}
			assert.False(t, g.Unlocked(prefs, gateNow))
			_, kept := prefs[PrefAuth]
			assert.False(t, kept)
		})
	}
}

func TestGateRejectsOtherDigest(t *testing.T) {
	prefs := memoryPrefs{}
	require.True(t, NewGate(Digest("old password"), 30, nil).Attempt(prefs, "old password", gateNow))

	assert.False(t, NewGate(Digest(testPassword), 30, nil).Unlocked(prefs, gateNow))
}

func TestGateLock(t *testing.T) {
	g := NewGate(Digest(testPassword), 30, nil)
	prefs := memoryPrefs{}
	require.True(t, g.Attempt(prefs, testPassword, gateNow))

	g.Lock(prefs)
	assert.False(t, g.Unlocked(prefs, gateNow))
}

func TestGateCookie(t *testing.T) {
	g := NewGate(Digest(testPassword), 30, nil)
	w := httptest.NewRecorder()
	require.True(t, g.Attempt(NewCookiePreferences(w, httptest.NewRequest("POST", "/unlock", nil)), testPassword, gateNow))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, PrefAuth, c.Name)
	assert.Equal(t, 30*24*60*60, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(c)
	assert.True(t, g.Unlocked(NewCookiePreferences(httptest.NewRecorder(), req), gateNow))
}

func TestCookiePreferences(t *testing.T) {
	w := httptest.NewRecorder()
	p := NewCookiePreferences(w, httptest.NewRequest("GET", "/", nil))

	_, ok := p.Get(PrefClassroom)
	assert.False(t, ok)

	p.Set(PrefClassroom, "Ms. García")
	v, ok := p.Get(PrefClassroom)
	assert.True(t, ok)
	assert.Equal(t, "Ms. García", v, "writes are visible within the request")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "Ms.+Garc%C3%ADa", cookies[0].Value)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookies[0])
	next := NewCookiePreferences(httptest.NewRecorder(), req)
	v, ok = next.Get(PrefClassroom)
	assert.True(t, ok)
	assert.Equal(t, "Ms. García", v)

	next.Delete(PrefClassroom)
	_, ok = next.Get(PrefClassroom)
	assert.False(t, ok)
}

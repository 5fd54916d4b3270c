package app

import (
	"net/http"
	"net/url"
	"time"
)

// Preferences is the reader's persisted key/value storage
type Preferences interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// CookiePreferences keeps preferences in long-lived cookies. Values written
// during a request are visible to later reads of the same request.
type CookiePreferences struct {
	r       *http.Request
	w       http.ResponseWriter
	maxAge  time.Duration
	secure  bool
	pending map[string]*string
}

const preferenceMaxAge = 365 * 24 * time.Hour

// NewCookiePreferences binds preferences to one request/response pair
func NewCookiePreferences(w http.ResponseWriter, r *http.Request) *CookiePreferences {
	return &CookiePreferences{
		r:       r,
		w:       w,
		maxAge:  preferenceMaxAge,
		secure:  r.TLS != nil,
		pending: make(map[string]*string),
	}
}

func (p *CookiePreferences) Get(key string) (string, bool) {
	if v, ok := p.pending[key]; ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}
	c, err := p.r.Cookie(key)
	if err != nil {
		return "", false
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return "", false
	}
	return v, true
}

func (p *CookiePreferences) Set(key, value string) {
	p.SetFor(key, value, p.maxAge)
}

// SetFor stores value for the given lifetime
func (p *CookiePreferences) SetFor(key, value string, ttl time.Duration) {
	p.pending[key] = &value
	http.SetCookie(p.w, &http.Cookie{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (p *CookiePreferences) Delete(key string) {
	p.pending[key] = nil
	http.SetCookie(p.w, &http.Cookie{
		Name:     key,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

package app

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"time"
)

// GateRecorder counts unlock attempts
type GateRecorder interface {
	GateAttempt(ok bool)
}

// Gate is the reader password screen. The expected digest is not a secret
// and the stored record is not signed: it only remembers that this browser
// typed the password within the last few weeks.
type Gate struct {
	digest   string
	validity time.Duration
	recorder GateRecorder
}

type gateRecord struct {
	Hash    string `json:"hash"`
	Expires int64  `json:"expires"`
}

// NewGate creates a gate expecting digest, remembering an unlock for days
func NewGate(digest string, days int, recorder GateRecorder) *Gate {
	return &Gate{
		digest:   digest,
		validity: time.Duration(days) * 24 * time.Hour,
		recorder: recorder,
	}
}

// Digest is the lower-case SHA-256 hex of input
func Digest(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// Attempt checks input and, on a match, persists an unlock record
func (g *Gate) Attempt(p Preferences, input string, now time.Time) bool {
	ok := Digest(input) == g.digest
	if g.recorder != nil {
		g.recorder.GateAttempt(ok)
	}
	if !ok {
		return false
	}

	rec := gateRecord{Hash: g.digest, Expires: now.Add(g.validity).UnixMilli()}
	data, err := json.Marshal(rec)
	if err != nil {
		return false
	}
	value := base64.RawURLEncoding.EncodeToString(data)
	if cp, ok := p.(*CookiePreferences); ok {
		cp.SetFor(PrefAuth, value, g.validity)
	} else {
		p.Set(PrefAuth, value)
	}
	return true
}

// Unlocked reports whether p holds a valid, unexpired record. Malformed and
// expired records are removed.
func (g *Gate) Unlocked(p Preferences, now time.Time) bool {
	value, ok := p.Get(PrefAuth)
	if !ok {
		return false
	}

	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		p.Delete(PrefAuth)
		return false
	}
	var rec gateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		p.Delete(PrefAuth)
		return false
	}
	if now.UnixMilli() > rec.Expires {
		p.Delete(PrefAuth)
		return false
	}
	return rec.Hash == g.digest
}

// Lock forgets the unlock record
func (g *Gate) Lock(p Preferences) {
	p.Delete(PrefAuth)
}

package i18n

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatLong(t *testing.T) {
	d := time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "September 8, 2025", FormatLong(d, English))
	assert.Equal(t, "8 de septiembre de 2025", FormatLong(d, Spanish))
	assert.Equal(t, "September 8, 2025", FormatLong(d, Lang("fr")))
}

func TestParse(t *testing.T) {
	l, ok := Parse(" ES ")
	assert.True(t, ok)
	assert.Equal(t, Spanish, l)

	_, ok = Parse("fr")
	assert.False(t, ok)
}

func TestNegotiate(t *testing.T) {
	assert.Equal(t, English, Negotiate("en-US,en;q=0.9", Spanish))
	assert.Equal(t, Spanish, Negotiate("es-MX,es;q=0.9,en;q=0.5", English))
	assert.Equal(t, Spanish, Negotiate("", Spanish))
	assert.Equal(t, English, Negotiate("de-DE", English))
}

func TestPickAndOther(t *testing.T) {
	assert.Equal(t, "Hola", Spanish.Pick("Hello", "Hola"))
	assert.Equal(t, "Hello", English.Pick("Hello", "Hola"))
	assert.Equal(t, English, Spanish.Other())
	assert.Equal(t, Spanish, English.Other())
}

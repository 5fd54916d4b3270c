package content

import (
	"strings"

	"github.com/klabast/wb-services/newsletter/internal/i18n"
)

// DayKeys are the specials map keys, Monday first
var DayKeys = [5]string{"monday", "tuesday", "wednesday", "thursday", "friday"}

// RotationLetters are the recognised special-subject slots
var RotationLetters = [6]string{"A", "B", "C", "D", "E", "F"}

const (
	UnknownSubject = "—"
	DefaultIcon    = "📅"
	NoSchoolIcon   = "🚫"
)

var noSchoolMarkers = []string{"NO SCHOOL", "NO HAY", "CONFERENCES"}

// IsNoSchool reports whether a specials value marks a day without classes
func IsNoSchool(value string) bool {
	upper := strings.ToUpper(value)
	for _, m := range noSchoolMarkers {
		if strings.Contains(upper, m) {
			return true
		}
	}
	return false
}

// RotationLetter normalises a specials value and reports whether it is one of A-F
func RotationLetter(value string) (string, bool) {
	letter := strings.ToUpper(strings.TrimSpace(value))
	for _, l := range RotationLetters {
		if letter == l {
			return letter, true
		}
	}
	return letter, false
}

// Subject resolves a rotation letter to the classroom's subject, or UnknownSubject
func (c *Config) Subject(classroom, letter string) string {
	if _, ok := RotationLetter(letter); !ok {
		return UnknownSubject
	}
	if s, ok := c.Rotations[classroom][letter]; ok && s != "" {
		return s
	}
	return UnknownSubject
}

// SubjectName localises a subject; subjects are authored in English
func (c *Config) SubjectName(subject string, l i18n.Lang) string {
	if l == i18n.Spanish {
		if t, ok := c.SubjectTranslations[subject]; ok && t != "" {
			return t
		}
	}
	return subject
}

// SubjectIcon returns the pictogram of subject, or fallback
func (c *Config) SubjectIcon(subject, fallback string) string {
	if icon, ok := c.SubjectIcons[subject]; ok && icon != "" {
		return icon
	}
	return fallback
}

package content

import (
	"github.com/klabast/wb-services/newsletter/internal/calendar"
	"github.com/klabast/wb-services/newsletter/internal/i18n"
)

// Text is a bilingual string
type Text struct {
	EN string `json:"en"`
	ES string `json:"es"`
}

// In returns the text for l
func (t Text) In(l i18n.Lang) string {
	return l.Pick(t.EN, t.ES)
}

// InOrEnglish returns the text for l, falling back to English when empty
func (t Text) InOrEnglish(l i18n.Lang) string {
	if s := t.In(l); s != "" {
		return s
	}
	return t.EN
}

// WordList holds vocabulary per language
type WordList struct {
	EN []string `json:"en"`
	ES []string `json:"es"`
}

// In returns the words for l
func (w *WordList) In(l i18n.Lang) []string {
	if w == nil {
		return nil
	}
	if l == i18n.Spanish {
		return w.ES
	}
	return w.EN
}

// Image is a picture attached to a prose section
type Image struct {
	Src     string `json:"src" validate:"required"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// Reminder is a dated note for families
type Reminder struct {
	Date string `json:"date" validate:"required,isodate"`
	EN   string `json:"en"`
	ES   string `json:"es"`
}

// Book is a read-aloud of the week
type Book struct {
	Title      Text   `json:"title"`
	Author     string `json:"author"`
	YoutubeURL string `json:"youtubeUrl,omitempty"`
	Questions  []Text `json:"questions,omitempty"`
}

// MathDetails names the curriculum position of the week's math
type MathDetails struct {
	Module Text `json:"module"`
	Topic  Text `json:"topic"`
	Lesson Text `json:"lesson"`
}

// Week is one published newsletter, keyed by its Monday
type Week struct {
	Date           string            `json:"date" validate:"required,isodate"`
	Season         string            `json:"season,omitempty"`
	Welcome        Text              `json:"welcome"`
	Math           Text              `json:"math"`
	Literacy       Text              `json:"literacy"`
	WelcomeImages  []Image           `json:"welcomeImages,omitempty" validate:"dive"`
	MathImages     []Image           `json:"mathImages,omitempty" validate:"dive"`
	LiteracyImages []Image           `json:"literacyImages,omitempty" validate:"dive"`
	Specials       map[string]string `json:"specials"`
	Roars          map[string]string `json:"roars,omitempty"`
	Reminders      []Reminder        `json:"reminders,omitempty" validate:"dive"`
	Vocabulary     *WordList         `json:"vocabulary,omitempty"`
	Books          []Book            `json:"books,omitempty"`
	AskYourChild   []Text            `json:"askYourChild,omitempty"`
	MathDetails    *MathDetails      `json:"mathDetails,omitempty"`
}

// QuickLink is a bar entry pointing at an outside resource
type QuickLink struct {
	URL  string `json:"url" validate:"required"`
	Icon string `json:"icon"`
	EN   string `json:"en"`
	ES   string `json:"es"`
}

// Labels are the UI strings of one language
type Labels struct {
	Title               string    `json:"title" validate:"required"`
	Subtitle            string    `json:"subtitle"`
	WelcomeHeading      string    `json:"welcomeHeading"`
	MathHeading         string    `json:"mathHeading"`
	LiteracyHeading     string    `json:"literacyHeading"`
	SpecialsHeading     string    `json:"specialsHeading"`
	RoarsHeading        string    `json:"roarsHeading"`
	ArchiveHeading      string    `json:"archiveHeading"`
	DashboardHeading    string    `json:"dashboardHeading"`
	WeekXofY            string    `json:"weekXofY"`
	SchoolDaysLeft      string    `json:"schoolDaysLeft"`
	UpcomingDates       string    `json:"upcomingDates"`
	AddToCalendar       string    `json:"addToCalendar"`
	AskHeading          string    `json:"askHeading"`
	RemindersHeading    string    `json:"remindersHeading"`
	VocabHeading        string    `json:"vocabHeading"`
	BooksHeading        string    `json:"booksHeading"`
	DiscussionQuestions string    `json:"discussionQuestions"`
	MathDetailsModule   string    `json:"mathDetailsModule"`
	MathDetailsTopic    string    `json:"mathDetailsTopic"`
	MathDetailsLesson   string    `json:"mathDetailsLesson"`
	PrintBtn            string    `json:"printBtn"`
	ShareBtn            string    `json:"shareBtn"`
	NoSchool            string    `json:"noSchool"`
	WeekOf              string    `json:"weekOf"`
	Days                [5]string `json:"days"`
}

// Config holds the rarely-changing settings from config.json
type Config struct {
	Classrooms          []string                     `json:"classrooms" validate:"required,min=1"`
	Rotations           map[string]map[string]string `json:"rotations" validate:"required"`
	SubjectIcons        map[string]string            `json:"subjectIcons"`
	SubjectTranslations map[string]string            `json:"subjectTranslations"`
	Labels              map[i18n.Lang]*Labels        `json:"labels" validate:"required,dive"`
	SeasonLogos         map[string]string            `json:"seasonLogos"`
	QuickLinks          []QuickLink                  `json:"quickLinks,omitempty" validate:"dive"`
	ClassroomFlags      map[string]string            `json:"classroomFlags,omitempty"`
}

// LabelsFor returns the labels of l, falling back to English and then to an empty set
func (c *Config) LabelsFor(l i18n.Lang) *Labels {
	if lb, ok := c.Labels[l]; ok && lb != nil {
		return lb
	}
	if lb, ok := c.Labels[i18n.English]; ok && lb != nil {
		return lb
	}
	return &Labels{}
}

// HasClassroom reports whether name is a configured classroom
func (c *Config) HasClassroom(name string) bool {
	for _, cl := range c.Classrooms {
		if cl == name {
			return true
		}
	}
	return false
}

// Index lists the available week keys, newest first
type Index []string

// Newest returns the most recent week key
func (ix Index) Newest() string {
	if len(ix) == 0 {
		return ""
	}
	return ix[0]
}

// Contains reports whether key is a published week
func (ix Index) Contains(key string) bool {
	for _, k := range ix {
		if k == key {
			return true
		}
	}
	return false
}

// Documents are the three startup documents, immutable once loaded
type Documents struct {
	Config   *Config
	Index    Index
	Calendar *calendar.Calendar
}

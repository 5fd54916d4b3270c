package content

import (
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/klabast/wb-services/newsletter/internal/calendar"
	"github.com/klabast/wb-services/newsletter/internal/i18n"
	"github.com/klabast/wb-services/newsletter/internal/weather"
)

// Input is everything a page render depends on
type Input struct {
	Week      *Week
	Docs      *Documents
	Lang      i18n.Lang
	Classroom string
	Now       time.Time
	Weather   *weather.Daily
	// FilePrefix names downloaded share images and calendar files
	FilePrefix string
}

// View describes what every region of the newsletter page shows.
// Optional sections are nil when the week has nothing for them.
type View struct {
	Lang      i18n.Lang
	OtherLang i18n.Lang
	WeekKey   string
	Header    Header
	Classes   []ClassButton

	Welcome  Section
	Math     Section
	Literacy Section

	SpecialsHeading string
	Specials        []SpecialsRow
	MySpecials      *MySpecials
	Grids           []ClassroomGrid
	Roars           Roars

	Dashboard  *DashboardView
	Reminders  *RemindersView
	Ask        *AskView
	Vocabulary *VocabularyView
	Books      *BooksView
	QuickLinks []QuickLinkView
	Archive    Archive
}

type Header struct {
	Title      string
	Subtitle   string
	Date       string
	Logo       string
	ClassLabel string
	PrintTitle string
	ShareTitle string
}

// Flag is a classroom flag, either an emoji or an image
type Flag struct {
	Image  bool
	Value  string
	Size   string
	Height int
}

type ClassButton struct {
	Classroom string
	Label     string
	Flag      *Flag
	Active    bool
}

type Section struct {
	Heading string
	Body    template.HTML
	Images  []Image
	Share   *ShareCard
	Details *MathDetailsView
}

type MathDetailsView struct {
	ModuleLabel, Module string
	TopicLabel, Topic   string
	LessonLabel, Lesson string
}

// ShareCard is a pre-rendered image families can save or share
type ShareCard struct {
	Src          string
	Alt          string
	DownloadName string
	CardLabel    string
	SaveLabel    string
	ShareLabel   string
}

type SpecialsRow struct {
	Day       string
	ShortDate string
	Value     string
	NoSchool  bool
	Weather   *weather.Snippet
}

type MySpecials struct {
	Heading string
	Days    []MyDay
}

type MyDay struct {
	Label    string
	Icon     string
	Subject  string
	Letter   string
	NoSchool bool
	Today    bool
	Weather  *weather.Snippet
}

type ClassroomGrid struct {
	Classroom string
	Flag      *Flag
	Rows      []GridRow
}

type GridRow struct {
	Letter    string
	Icon      string
	Subject   string
	Highlight bool
}

type Roars struct {
	Heading string
	Cards   []RoarsCard
}

type RoarsCard struct {
	Classroom string
	Flag      *Flag
	Name      string
}

type DashboardView struct {
	Heading         string
	WeekLabel       string
	Progress        int
	Remaining       int
	RemainingLabel  string
	UpcomingHeading string
	Upcoming        []UpcomingView
}

type UpcomingView struct {
	Type     string
	Date     string
	Name     string
	ICSURL   string
	AddLabel string
}

type RemindersView struct {
	Heading string
	Items   []ReminderView
}

type ReminderView struct {
	Date string
	Text string
}

type AskView struct {
	Heading   string
	Questions []string
	Share     *ShareCard
}

type VocabularyView struct {
	Heading string
	Words   []string
	Share   *ShareCard
}

type BooksView struct {
	Heading string
	Items   []BookView
	Shares  []ShareCard
}

type BookView struct {
	Title          string
	Author         string
	VideoURL       string
	VideoLabel     string
	QuestionsLabel string
	Questions      []string
}

type QuickLinkView struct {
	URL   string
	Icon  string
	Label string
}

type Archive struct {
	Heading string
	Items   []ArchiveItem
}

type ArchiveItem struct {
	Key    string
	Label  string
	Active bool
}

const (
	flagSmall = "small"
	flagLarge = "large"
)

// Render builds the page description. It reads only its input, so the same
// input always yields the same view.
func Render(in Input) View {
	lang := in.Lang
	if _, ok := i18n.Parse(string(lang)); !ok {
		lang = i18n.Spanish
	}
	cfg := in.Docs.Config
	labels := cfg.LabelsFor(lang)
	week := in.Week
	r := renderer{in: in, lang: lang, cfg: cfg, labels: labels, today: calendar.Day(in.Now)}
	if r.in.FilePrefix == "" {
		r.in.FilePrefix = "newsletter"
	}

	v := View{
		Lang:      lang,
		OtherLang: lang.Other(),
		WeekKey:   week.Date,
		Header:    r.header(),
		Classes:   r.classButtons(),
		Welcome: Section{
			Heading: labels.WelcomeHeading,
			Body:    Prose(week.Welcome.In(lang)),
			Images:  week.WelcomeImages,
			Share:   r.share("weekly-summary", labels.Title+" - "+labels.Subtitle),
		},
		Math: Section{
			Heading: labels.MathHeading,
			Body:    Prose(week.Math.In(lang)),
			Images:  week.MathImages,
			Share:   r.share("math-focus", labels.MathHeading),
			Details: r.mathDetails(),
		},
		Literacy: Section{
			Heading: labels.LiteracyHeading,
			Body:    Prose(week.Literacy.In(lang)),
			Images:  week.LiteracyImages,
		},
		SpecialsHeading: labels.SpecialsHeading,
		Specials:        r.specials(),
		MySpecials:      r.mySpecials(),
		Grids:           r.grids(),
		Roars:           r.roars(),
		Dashboard:       r.dashboard(),
		Reminders:       r.reminders(),
		Ask:             r.ask(),
		Vocabulary:      r.vocabulary(),
		Books:           r.books(),
		QuickLinks:      r.quickLinks(),
		Archive:         r.archive(),
	}
	return v
}

type renderer struct {
	in     Input
	lang   i18n.Lang
	cfg    *Config
	labels *Labels
	today  time.Time
}

func (r renderer) weekStart() time.Time {
	d, err := calendar.ParseDate(r.in.Week.Date)
	if err != nil {
		return time.Time{}
	}
	return d
}

func (r renderer) longDate(iso string) string {
	d, err := calendar.ParseDate(iso)
	if err != nil {
		return iso
	}
	return i18n.FormatLong(d, r.lang)
}

func (r renderer) header() Header {
	logo := r.cfg.SeasonLogos[r.in.Week.Season]
	if logo == "" {
		logo = r.cfg.SeasonLogos["default"]
	}
	return Header{
		Title:      r.labels.Title,
		Subtitle:   r.labels.Subtitle,
		Date:       r.longDate(r.in.Week.Date),
		Logo:       logo,
		ClassLabel: r.lang.Pick("My Classroom:", "Mi Salón:"),
		PrintTitle: r.labels.PrintBtn,
		ShareTitle: r.labels.ShareBtn,
	}
}

func (r renderer) flag(classroom, size string) *Flag {
	value := r.cfg.ClassroomFlags[classroom]
	if value == "" {
		return nil
	}
	f := &Flag{Value: value, Size: size, Height: 16}
	switch size {
	case flagSmall:
		f.Height = 14
	case flagLarge:
		f.Height = 22
	}
	if src, ok := strings.CutPrefix(value, "img:"); ok {
		f.Image = true
		f.Value = src
	}
	return f
}

func (r renderer) classButtons() []ClassButton {
	out := make([]ClassButton, 0, len(r.cfg.Classrooms)+1)
	out = append(out, ClassButton{
		Label:  r.lang.Pick("All", "Todos"),
		Active: !r.cfg.HasClassroom(r.in.Classroom),
	})
	for _, c := range r.cfg.Classrooms {
		out = append(out, ClassButton{
			Classroom: c,
			Label:     c,
			Flag:      r.flag(c, flagSmall),
			Active:    c == r.in.Classroom,
		})
	}
	return out
}

func (r renderer) share(name, label string) *ShareCard {
	return &ShareCard{
		Src:          "/images/weekly/" + name + "-" + string(r.lang) + ".png",
		Alt:          label,
		DownloadName: r.in.FilePrefix + "-" + name + "-" + r.in.Week.Date + ".png",
		CardLabel:    r.lang.Pick("Shareable image", "Imagen para compartir"),
		SaveLabel:    r.lang.Pick("Save", "Guardar"),
		ShareLabel:   r.lang.Pick("Share", "Compartir"),
	}
}

func (r renderer) mathDetails() *MathDetailsView {
	md := r.in.Week.MathDetails
	if md == nil {
		return nil
	}
	return &MathDetailsView{
		ModuleLabel: r.labels.MathDetailsModule,
		Module:      md.Module.In(r.lang),
		TopicLabel:  r.labels.MathDetailsTopic,
		Topic:       md.Topic.In(r.lang),
		LessonLabel: r.labels.MathDetailsLesson,
		Lesson:      md.Lesson.In(r.lang),
	}
}

func (r renderer) dayLabel(i int) string {
	return r.labels.Days[i]
}

func (r renderer) specials() []SpecialsRow {
	start := r.weekStart()
	rows := make([]SpecialsRow, 0, len(DayKeys))
	for i, key := range DayKeys {
		val := r.in.Week.Specials[key]
		row := SpecialsRow{
			Day:       r.dayLabel(i),
			ShortDate: calendar.ShortDate(start.AddDate(0, 0, i)),
			Value:     val,
			Weather:   weather.SnippetFor(r.in.Weather, i, r.lang),
		}
		if IsNoSchool(val) {
			row.NoSchool = true
			row.Value = r.labels.NoSchool
		}
		rows = append(rows, row)
	}
	return rows
}

func (r renderer) mySpecials() *MySpecials {
	classroom := r.in.Classroom
	if !r.cfg.HasClassroom(classroom) {
		return nil
	}
	start := r.weekStart()
	ms := &MySpecials{
		Heading: r.lang.Pick(classroom+"'s Specials This Week", "Especialidades de "+classroom+" Esta Semana"),
		Days:    make([]MyDay, 0, len(DayKeys)),
	}
	for i, key := range DayKeys {
		date := start.AddDate(0, 0, i)
		letter, _ := RotationLetter(r.in.Week.Specials[key])
		day := MyDay{
			Label:   r.dayLabel(i) + " (" + calendar.ShortDate(date) + ")",
			Today:   date.Equal(r.today),
			Weather: weather.SnippetFor(r.in.Weather, i, r.lang),
		}
		if IsNoSchool(letter) {
			day.NoSchool = true
			day.Icon = NoSchoolIcon
			day.Subject = r.labels.NoSchool
		} else {
			subject := r.cfg.Subject(classroom, letter)
			day.Letter = letter
			day.Subject = r.cfg.SubjectName(subject, r.lang)
			day.Icon = r.cfg.SubjectIcon(subject, DefaultIcon)
		}
		ms.Days = append(ms.Days, day)
	}
	return ms
}

// todayLetter is the rotation letter of today, when today falls in the displayed week
func (r renderer) todayLetter() string {
	start := r.weekStart()
	for i, key := range DayKeys {
		if start.AddDate(0, 0, i).Equal(r.today) {
			if letter, ok := RotationLetter(r.in.Week.Specials[key]); ok {
				return letter
			}
		}
	}
	return ""
}

func (r renderer) grids() []ClassroomGrid {
	classrooms := r.cfg.Classrooms
	if r.cfg.HasClassroom(r.in.Classroom) {
		classrooms = []string{r.in.Classroom}
	}
	active := r.todayLetter()

	out := make([]ClassroomGrid, 0, len(classrooms))
	for _, c := range classrooms {
		rotation, ok := r.cfg.Rotations[c]
		if !ok {
			continue
		}
		g := ClassroomGrid{Classroom: c, Flag: r.flag(c, flagLarge)}
		for _, letter := range RotationLetters {
			subject := rotation[letter]
			g.Rows = append(g.Rows, GridRow{
				Letter:    letter,
				Icon:      r.cfg.SubjectIcon(subject, ""),
				Subject:   r.cfg.SubjectName(subject, r.lang),
				Highlight: letter == active,
			})
		}
		out = append(out, g)
	}
	return out
}

func (r renderer) roars() Roars {
	out := Roars{Heading: r.labels.RoarsHeading}
	for _, c := range r.cfg.Classrooms {
		out.Cards = append(out.Cards, RoarsCard{
			Classroom: c,
			Flag:      r.flag(c, flagLarge),
			Name:      r.in.Week.Roars[c],
		})
	}
	return out
}

func (r renderer) dashboard() *DashboardView {
	cal := r.in.Docs.Calendar
	if cal == nil {
		return nil
	}
	d, err := calendar.Compute(cal, r.weekStart(), r.in.Now)
	if err != nil {
		return nil
	}

	weekLabel := strings.NewReplacer(
		"{x}", strconv.Itoa(d.WeekNumber),
		"{y}", strconv.Itoa(d.TotalWeeks),
	).Replace(r.labels.WeekXofY)

	v := &DashboardView{
		Heading:         r.labels.DashboardHeading,
		WeekLabel:       weekLabel,
		Progress:        d.ProgressPercent,
		Remaining:       d.RemainingDays,
		RemainingLabel:  r.labels.SchoolDaysLeft,
		UpcomingHeading: r.labels.UpcomingDates,
	}
	for _, e := range d.Upcoming {
		v.Upcoming = append(v.Upcoming, UpcomingView{
			Type:     cal.TypeLabel(r.lang, e.Type),
			Date:     r.longDate(e.Date),
			Name:     e.Name(r.lang),
			ICSURL:   "/calendar/" + e.Date + ".ics",
			AddLabel: r.labels.AddToCalendar,
		})
	}
	return v
}

func (r renderer) reminders() *RemindersView {
	if len(r.in.Week.Reminders) == 0 {
		return nil
	}
	v := &RemindersView{Heading: r.labels.RemindersHeading}
	for _, rem := range r.in.Week.Reminders {
		v.Items = append(v.Items, ReminderView{
			Date: r.longDate(rem.Date),
			Text: r.lang.Pick(rem.EN, rem.ES),
		})
	}
	return v
}

func (r renderer) ask() *AskView {
	if len(r.in.Week.AskYourChild) == 0 {
		return nil
	}
	v := &AskView{
		Heading: r.labels.AskHeading,
		Share:   r.share("ask-your-child", r.labels.AskHeading),
	}
	for _, q := range r.in.Week.AskYourChild {
		v.Questions = append(v.Questions, q.In(r.lang))
	}
	return v
}

func (r renderer) vocabulary() *VocabularyView {
	words := r.in.Week.Vocabulary.In(r.lang)
	if len(words) == 0 {
		return nil
	}
	return &VocabularyView{
		Heading: r.labels.VocabHeading,
		Words:   words,
		Share:   r.share("vocabulary", r.labels.VocabHeading),
	}
}

func (r renderer) books() *BooksView {
	if len(r.in.Week.Books) == 0 {
		return nil
	}
	v := &BooksView{Heading: r.labels.BooksHeading}
	for i, b := range r.in.Week.Books {
		title := b.Title.InOrEnglish(r.lang)
		bv := BookView{
			Title:          title,
			Author:         b.Author,
			VideoURL:       b.YoutubeURL,
			QuestionsLabel: r.labels.DiscussionQuestions,
		}
		if bv.VideoURL != "" {
			bv.VideoLabel = r.lang.Pick("Watch Read-Aloud", "Ver Lectura en Voz Alta")
		}
		for _, q := range b.Questions {
			bv.Questions = append(bv.Questions, q.In(r.lang))
		}
		v.Items = append(v.Items, bv)
		v.Shares = append(v.Shares, *r.share("book-"+strconv.Itoa(i+1), title))
	}
	return v
}

func (r renderer) quickLinks() []QuickLinkView {
	out := make([]QuickLinkView, 0, len(r.cfg.QuickLinks))
	for _, l := range r.cfg.QuickLinks {
		out = append(out, QuickLinkView{URL: l.URL, Icon: l.Icon, Label: r.lang.Pick(l.EN, l.ES)})
	}
	return out
}

func (r renderer) archive() Archive {
	a := Archive{Heading: r.labels.ArchiveHeading}
	for _, key := range r.in.Docs.Index {
		a.Items = append(a.Items, ArchiveItem{
			Key:    key,
			Label:  r.labels.WeekOf + " " + r.longDate(key),
			Active: key == r.in.Week.Date,
		})
	}
	return a
}

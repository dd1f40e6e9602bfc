package mapview

import (
	"time"
	_ "time/tzdata" // zone names from timezonemapper must resolve on minimal images

	"travellog/geo"
	"travellog/models"

	"github.com/zsefvlol/timezonemapper"
	"golang.org/x/text/language"
)

const (
	IconEntry     = "entry"
	IconSelection = "selection"

	SelectionLabel = "You are here"
)

type Popup struct {
	Title       string `json:"title,omitempty"`
	Rating      *int   `json:"rating,omitempty"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
	VisitDate   string `json:"visit_date,omitempty"`
	Label       string `json:"label,omitempty"`
}

type Marker struct {
	ID       string     `json:"id,omitempty"`
	Position geo.LatLng `json:"position"`
	Icon     string     `json:"icon"`
	Popup    Popup      `json:"popup"`
}

// Locale decides how visit dates are written
type Locale struct {
	Tag    language.Tag
	layout string
}

var (
	locales = []Locale{
		{language.AmericanEnglish, "1/2/2006"}, // first one is the fallback
		{language.BritishEnglish, "02/01/2006"},
		{language.Spanish, "2/1/2006"},
		{language.German, "2.1.2006"},
		{language.French, "02/01/2006"},
		{language.Japanese, "2006/1/2"},
	}
	localeMatcher = language.NewMatcher(localeTags())
)

func localeTags() []language.Tag {
	tags := make([]language.Tag, len(locales))
	for i, l := range locales {
		tags[i] = l.Tag
	}
	return tags
}

// MatchLocale picks the best supported locale for an Accept-Language header value
func MatchLocale(acceptLanguage string) Locale {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return locales[0]
	}
	_, index, confidence := localeMatcher.Match(tags...)
	if confidence == language.No {
		return locales[0]
	}
	return locales[index]
}

// FormatVisitDate writes t in the time zone of the place it was taken at.
// Date-only values (midnight UTC) are kept as they are, shifting them would change the day.
func FormatVisitDate(t time.Time, p geo.LatLng, locale Locale) string {
	utc := t.UTC()
	if utc.Hour() == 0 && utc.Minute() == 0 && utc.Second() == 0 && utc.Nanosecond() == 0 {
		return utc.Format(locale.layout)
	}
	if zone, err := time.LoadLocation(timezonemapper.LatLngToTimezoneString(p.Lat, p.Lng)); err == nil && zone != nil {
		return t.In(zone).Format(locale.layout)
	}
	return utc.Format(locale.layout)
}

func EntryMarker(entry models.TravelLog, locale Locale) Marker {
	rating := entry.Rating
	return Marker{
		ID:       entry.ID,
		Position: entry.Position(),
		Icon:     IconEntry,
		Popup: Popup{
			Title:       entry.Title,
			Rating:      &rating,
			Image:       entry.Image,
			Description: entry.Description,
			VisitDate:   FormatVisitDate(entry.VisitDate, entry.Position(), locale),
		},
	}
}

// SelectionMarker returns false when nothing is selected
func SelectionMarker(selection SelectionState) (Marker, bool) {
	if !selection.Selected || selection.Point == nil {
		return Marker{}, false
	}
	return Marker{
		Position: *selection.Point,
		Icon:     IconSelection,
		Popup:    Popup{Label: SelectionLabel},
	}, true
}

// Render returns one marker per valid entry, followed by the selection marker if any
func Render(entries []models.TravelLog, selection SelectionState, locale Locale) []Marker {
	markers := make([]Marker, 0, len(entries)+1)
	for _, entry := range entries {
		if entry.Position().Validate() != nil {
			continue
		}
		markers = append(markers, EntryMarker(entry, locale))
	}
	if marker, ok := SelectionMarker(selection); ok {
		markers = append(markers, marker)
	}
	return markers
}

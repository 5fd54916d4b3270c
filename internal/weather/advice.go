package weather

import (
	"math"

	"github.com/klabast/wb-services/newsletter/internal/i18n"
)

// Snippet is one day of weather as shown next to a specials entry
type Snippet struct {
	High        int
	Low         int
	RainChance  int
	Code        int
	Icon        string
	Description string
	Tips        []string
}

// SnippetFor builds the snippet for day i of daily, or nil when there is no data for that day
func SnippetFor(daily *Daily, i int, lang i18n.Lang) *Snippet {
	if daily == nil || i < 0 || i >= daily.Len() {
		return nil
	}
	high := int(math.Round(daily.TemperatureMax[i]))
	low := int(math.Round(daily.TemperatureMin[i]))
	rain := int(math.Round(daily.PrecipitationProbabilityMax[i]))
	code := daily.WeatherCode[i]

	return &Snippet{
		High:        high,
		Low:         low,
		RainChance:  rain,
		Code:        code,
		Icon:        Icon(code),
		Description: Description(code, lang),
		Tips:        Tips(high, low, rain, code, lang),
	}
}

// Icon maps a WMO weather code to a pictogram
func Icon(code int) string {
	switch {
	case code == 0:
		return "☀️"
	case code <= 3:
		return "⛅"
	case code <= 48:
		return "☁️"
	case code <= 67:
		return "🌧️"
	case code <= 77:
		return "❄️"
	case code <= 82:
		return "🌧️"
	case code <= 86:
		return "❄️"
	case code >= 95:
		return "⛈️"
	}
	return "🌤️"
}

var descriptions = map[i18n.Lang]map[int]string{
	i18n.English: {
		0: "Clear sky", 1: "Mostly clear", 2: "Partly cloudy", 3: "Overcast",
		45: "Foggy", 48: "Icy fog", 51: "Light drizzle", 53: "Drizzle",
		55: "Heavy drizzle", 56: "Freezing drizzle", 57: "Freezing drizzle",
		61: "Light rain", 63: "Rain", 65: "Heavy rain",
		66: "Freezing rain", 67: "Freezing rain",
		71: "Light snow", 73: "Snow", 75: "Heavy snow",
		77: "Snow grains", 80: "Light showers", 81: "Showers", 82: "Heavy showers",
		85: "Snow showers", 86: "Heavy snow showers",
		95: "Thunderstorm", 96: "Thunderstorm w/ hail", 99: "Thunderstorm w/ hail",
	},
	i18n.Spanish: {
		0: "Cielo despejado", 1: "Mayormente despejado", 2: "Parcialmente nublado", 3: "Nublado",
		45: "Niebla", 48: "Niebla helada", 51: "Llovizna ligera", 53: "Llovizna",
		55: "Llovizna fuerte", 56: "Llovizna helada", 57: "Llovizna helada",
		61: "Lluvia ligera", 63: "Lluvia", 65: "Lluvia fuerte",
		66: "Lluvia helada", 67: "Lluvia helada",
		71: "Nieve ligera", 73: "Nieve", 75: "Nieve fuerte",
		77: "Granizo", 80: "Chubascos ligeros", 81: "Chubascos", 82: "Chubascos fuertes",
		85: "Chubascos de nieve", 86: "Chubascos fuertes de nieve",
		95: "Tormenta", 96: "Tormenta con granizo", 99: "Tormenta con granizo",
	},
}

// Description returns a short text for code, trying the code rounded down to tens before giving up
func Description(code int, lang i18n.Lang) string {
	table, ok := descriptions[lang]
	if !ok {
		table = descriptions[i18n.English]
		lang = i18n.English
	}
	if d, ok := table[code]; ok {
		return d
	}
	if d, ok := table[code/10*10]; ok {
		return d
	}
	return lang.Pick("Mixed", "Variable")
}

// Tips returns clothing and safety advice; there is always at least one tip
func Tips(high, low, rainChance, code int, lang i18n.Lang) []string {
	var tips []string
	add := func(en, es string) {
		tips = append(tips, lang.Pick(en, es))
	}

	switch {
	case low <= 32:
		add("🧤 Heavy coat, hat & gloves", "🧤 Abrigo grueso, gorro y guantes")
	case low <= 45:
		add("🧥 Warm jacket & layers", "🧥 Chaqueta abrigada y capas")
	case high <= 55:
		add("🧥 Light jacket", "🧥 Chaqueta ligera")
	}

	if high >= 85 {
		add("💧 Extra water bottle", "💧 Botella de agua extra")
		add("🧴 Sunscreen", "🧴 Protector solar")
	}

	rainy := (code >= 61 && code <= 67) || (code >= 80 && code <= 82)
	switch {
	case rainChance >= 50 || rainy:
		add("☂️ Umbrella & rain boots", "☂️ Paraguas y botas de lluvia")
	case rainChance >= 30:
		add("☂️ Umbrella just in case", "☂️ Paraguas por si acaso")
	}

	if (code >= 71 && code <= 77) || (code >= 85 && code <= 86) {
		add("🥾 Snow boots & warm socks", "🥾 Botas de nieve y calcetines abrigados")
	}

	if code >= 95 {
		add("⚡ Stay safe indoors if possible", "⚡ Manténganse seguros adentro si es posible")
	}

	if len(tips) == 0 {
		add("👍 Great weather for school!", "👍 ¡Buen clima para la escuela!")
	}
	return tips
}

package weather

import "strings"

// descriptionsRU maps OpenWeather English condition descriptions to Russian.
// Descriptions missing from the table pass through untranslated.
var descriptionsRU = map[string]string{
	"clear sky":                   "ясно",
	"few clouds":                  "небольшая облачность",
	"scattered clouds":            "переменная облачность",
	"broken clouds":               "облачно",
	"shower rain":                 "ливень",
	"rain":                        "дождь",
	"thunderstorm":                "гроза",
	"snow":                        "снег",
	"mist":                        "туман",
	"fog":                         "туман",
	"haze":                        "дымка",
	"dust":                        "пыль",
	"sand":                        "песчаная буря",
	"ash":                         "пепел",
	"squall":                      "шквал",
	"tornado":                     "торнадо",
	"overcast clouds":             "пасмурно",
	"light rain":                  "легкий дождь",
	"moderate rain":               "умеренный дождь",
	"heavy rain":                  "сильный дождь",
	"light snow":                  "легкий снег",
	"moderate snow":               "умеренный снег",
	"heavy snow":                  "сильный снег",
	"freezing rain":               "ледяной дождь",
	"light intensity drizzle":     "легкая морось",
	"drizzle":                     "морось",
	"heavy intensity drizzle":     "сильная морось",
	"light intensity shower rain": "легкий ливень",
	"heavy intensity shower rain": "сильный ливень",
	"ragged shower rain":          "прерывистый ливень",
	"light thunderstorm":          "легкая гроза",
	"thunderstorm with light rain": "гроза с легким дождем",
	"thunderstorm with rain":       "гроза с дождем",
	"thunderstorm with heavy rain": "гроза с сильным дождем",
	"sleet":                        "мокрый снег",
	"light shower sleet":           "легкий снег с дождем",
	"shower sleet":                 "снег с дождем",
	"light rain and snow":          "легкий дождь и снег",
	"rain and snow":                "дождь и снег",
	"light shower snow":            "легкий снегопад",
	"shower snow":                  "снегопад",
	"heavy shower snow":            "сильный снегопад",
}

// TranslateDescription localizes a condition description, passing the input
// through unchanged when no mapping exists.
func TranslateDescription(description string) string {
	if t, ok := descriptionsRU[strings.ToLower(description)]; ok {
		return t
	}
	return description
}

// lookupDescription reports the localized text and whether the description
// is present in the table. The forecast path only rewrites known
// descriptions; current weather always goes through TranslateDescription.
func lookupDescription(description string) (string, bool) {
	t, ok := descriptionsRU[strings.ToLower(description)]
	return t, ok
}

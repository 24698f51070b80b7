package weather

import "fmt"

// wmoCodes maps WMO weather interpretation codes to short descriptions.
var wmoCodes = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow",
	73: "Moderate snow",
	75: "Heavy snow",
	77: "Snow grains",
	80: "Slight showers",
	81: "Moderate showers",
	82: "Violent showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm w/ slight hail",
	99: "Thunderstorm w/ heavy hail",
}

// Describe returns the text for a WMO code, or the code itself when
// the table has no entry.
func Describe(code int) string {
	if s, ok := wmoCodes[code]; ok {
		return s
	}
	return fmt.Sprintf("Code %d", code)
}

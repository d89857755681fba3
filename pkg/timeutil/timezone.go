package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// countryCodeTimezones maps international calling codes to a representative
// IANA timezone. Codes with several zones (notably "1") use the most common.
var countryCodeTimezones = map[string]string{
	"1":   "America/New_York",
	"52":  "America/Mexico_City",
	"54":  "America/Argentina/Buenos_Aires",
	"55":  "America/Sao_Paulo",
	"56":  "America/Santiago",
	"57":  "America/Bogota",
	"58":  "America/Caracas",
	"51":  "America/Lima",
	"593": "America/Guayaquil",
	"595": "America/Asuncion",
	"598": "America/Montevideo",
	"591": "America/La_Paz",
	"506": "America/Costa_Rica",
	"507": "America/Panama",
	"502": "America/Guatemala",
	"503": "America/El_Salvador",
	"504": "America/Tegucigalpa",
	"505": "America/Managua",
	"34":  "Europe/Madrid",
	"33":  "Europe/Paris",
	"49":  "Europe/Berlin",
	"44":  "Europe/London",
	"39":  "Europe/Rome",
	"86":  "Asia/Shanghai",
	"91":  "Asia/Kolkata",
	"81":  "Asia/Tokyo",
}

// ExtractCountryCode extracts the calling code from an international phone
// number. Longest known codes are tried first so "593" wins over "59".
func ExtractCountryCode(phone string) string {
	if phone == "" {
		return ""
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, phone)
	cleaned = strings.TrimPrefix(cleaned, "+")

	for _, length := range []int{3, 2, 1} {
		if len(cleaned) >= length {
			code := cleaned[:length]
			if _, ok := countryCodeTimezones[code]; ok {
				return code
			}
		}
	}

	return ""
}

// TimezoneForPhone guesses the IANA timezone for a phone number based on its
// calling code, falling back to UTC.
func TimezoneForPhone(phone string) string {
	if code := ExtractCountryCode(phone); code != "" {
		return countryCodeTimezones[code]
	}
	return "UTC"
}

// LocalToUTC converts a wall-clock "HH:MM" string from the named timezone to
// UTC, using today's date for the offset. The result is always zero-padded,
// even for UTC tenants where no offset applies.
func LocalToUTC(localTime, timezoneName string) (string, error) {
	parsed, err := time.Parse("15:04", localTime)
	if err != nil {
		return "", fmt.Errorf("invalid time %q: %w", localTime, err)
	}

	if timezoneName == "" || timezoneName == "UTC" {
		return parsed.Format("15:04"), nil
	}

	loc, err := time.LoadLocation(timezoneName)
	if err != nil {
		return "", fmt.Errorf("unknown timezone %q: %w", timezoneName, err)
	}

	now := time.Now().In(loc)
	localDT := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc)

	return localDT.UTC().Format("15:04"), nil
}

// UTCToLocal converts a UTC "HH:MM" string to wall-clock time in the named
// timezone, using today's date for the offset.
func UTCToLocal(utcTime, timezoneName string) (string, error) {
	parsed, err := time.Parse("15:04", utcTime)
	if err != nil {
		return "", fmt.Errorf("invalid time %q: %w", utcTime, err)
	}

	if timezoneName == "" || timezoneName == "UTC" {
		return parsed.Format("15:04"), nil
	}

	loc, err := time.LoadLocation(timezoneName)
	if err != nil {
		return "", fmt.Errorf("unknown timezone %q: %w", timezoneName, err)
	}

	now := time.Now().UTC()
	utcDT := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)

	return utcDT.In(loc).Format("15:04"), nil
}

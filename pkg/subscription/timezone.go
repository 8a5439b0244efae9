package subscription

import (
	"time"

	ics "github.com/arran4/golang-ical"
	log "github.com/sirupsen/logrus"
)

// windowsToIANA maps common Windows timezone names to IANA timezone names.
// Feeds exported from Outlook and Exchange use these in TZID values.
var windowsToIANA = map[string]string{
	"Pacific Standard Time":        "America/Los_Angeles",
	"Mountain Standard Time":       "America/Denver",
	"Central Standard Time":        "America/Chicago",
	"Eastern Standard Time":        "America/New_York",
	"Atlantic Standard Time":       "America/Halifax",
	"Alaskan Standard Time":        "America/Anchorage",
	"Hawaiian Standard Time":       "Pacific/Honolulu",
	"GMT Standard Time":            "Europe/London",
	"Central Europe Standard Time": "Europe/Paris",
	"China Standard Time":          "Asia/Shanghai",
	"Tokyo Standard Time":          "Asia/Tokyo",
	"India Standard Time":          "Asia/Kolkata",
	"AUS Eastern Standard Time":    "Australia/Sydney",
}

// zoneRegistry resolves TZID values to locations. It is built from the
// VTIMEZONE components of a single feed and is only valid for that parse.
type zoneRegistry struct {
	zones map[string]*time.Location
}

func newZoneRegistry(cal *ics.Calendar) *zoneRegistry {
	zones := make(map[string]*time.Location)
	for _, component := range cal.Components {
		tz, ok := component.(*ics.VTimezone)
		if !ok {
			continue
		}
		idProp := tz.GetProperty(ics.ComponentProperty(ics.PropertyTzid))
		if idProp == nil || idProp.Value == "" {
			continue
		}
		zones[idProp.Value] = lookupLocation(idProp.Value)
	}
	return &zoneRegistry{zones: zones}
}

// resolve returns the location for a TZID, preferring zones declared in the
// feed's own VTIMEZONE components. Unknown identifiers fall back to UTC.
func (z *zoneRegistry) resolve(tzid string) *time.Location {
	if loc, ok := z.zones[tzid]; ok {
		return loc
	}
	return lookupLocation(tzid)
}

// lookupLocation maps a timezone identifier to a location using the IANA
// database, translating Windows timezone names where possible.
func lookupLocation(tzid string) *time.Location {
	if loc, err := time.LoadLocation(tzid); err == nil {
		return loc
	}
	if ianaName, ok := windowsToIANA[tzid]; ok {
		if loc, err := time.LoadLocation(ianaName); err == nil {
			return loc
		}
	}
	log.Warnf("unknown timezone %q, falling back to UTC", tzid)
	return time.UTC
}

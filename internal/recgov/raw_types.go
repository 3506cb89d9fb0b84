package recgov

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// ParseError is a response that decoded but did not match the expected schema.
type ParseError struct {
	Path   string
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed response: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed response from %s: %s: %s", e.Path, e.Field, e.Reason)
}

type permitContentRaw struct {
	Payload *struct {
		Name      string                       `json:"name"`
		Divisions map[string]permitDivisionRaw `json:"divisions"`
	} `json:"payload"`
}

type permitDivisionRaw struct {
	Name string `json:"name"`
}

type permitAvailabilityRaw struct {
	Payload      *permitAvailabilityPayloadRaw      `json:"payload"`
	Availability map[string]divisionAvailabilityRaw `json:"availability"`
}

type permitAvailabilityPayloadRaw struct {
	Availability map[string]divisionAvailabilityRaw `json:"availability"`
}

type divisionAvailabilityRaw struct {
	DateAvailability map[string]dateAvailabilityRaw `json:"date_availability"`
}

type dateAvailabilityRaw struct {
	Total     *int `json:"total"`
	Remaining *int `json:"remaining"`
}

type campgroundRaw struct {
	Campground *struct {
		FacilityName string `json:"facility_name"`
	} `json:"campground"`
}

type campgroundMonthRaw struct {
	Campsites map[string]campsiteRaw `json:"campsites"`
}

type campsiteRaw struct {
	CampsiteID     string            `json:"campsite_id"`
	Site           string            `json:"site"`
	Loop           string            `json:"loop"`
	CampsiteType   string            `json:"campsite_type"`
	Availabilities map[string]string `json:"availabilities"`
}

const campsiteStatusAvailable = "Available"

// divisionAvailability returns the availability map from either the wrapped
// or the bare response shape.
func (r permitAvailabilityRaw) divisionAvailability(path string) (map[string]divisionAvailabilityRaw, error) {
	if r.Payload != nil && r.Payload.Availability != nil {
		return r.Payload.Availability, nil
	}
	if r.Availability != nil {
		return r.Availability, nil
	}
	return nil, &ParseError{Path: path, Field: "payload.availability", Reason: "missing"}
}

// parseAPIDate accepts the API's midnight-UTC timestamps and bare dates.
func parseAPIDate(path, field, value string) (civil.Date, error) {
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return civil.DateOf(ts.UTC()), nil
	}
	if d, err := civil.ParseDate(value); err == nil {
		return d, nil
	}
	return civil.Date{}, &ParseError{Path: path, Field: field, Reason: fmt.Sprintf("invalid date %q", value)}
}

// sortedKeys orders map keys numerically when both keys are integers and
// lexically otherwise, so records get a stable sub-unit encounter order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aErr := strconv.ParseInt(keys[i], 10, 64)
		b, bErr := strconv.ParseInt(keys[j], 10, 64)
		if aErr == nil && bErr == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}

func campsiteLabel(site campsiteRaw) string {
	label := strings.TrimSpace(site.Site)
	loop := strings.TrimSpace(site.Loop)
	switch {
	case label == "":
		return ""
	case loop == "":
		return "Site " + label
	default:
		return "Site " + label + ", Loop " + loop
	}
}

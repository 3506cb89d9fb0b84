package recgov

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/olliecrow/rec_availability_monitor/internal/availability"
)

// CampsiteFilter restricts which campsites of a campground are considered.
// Zero value keeps every campsite.
type CampsiteFilter struct {
	IDs  []string
	Type string
}

func (f CampsiteFilter) keep(id string, site campsiteRaw) bool {
	if len(f.IDs) > 0 {
		found := false
		for _, want := range f.IDs {
			if strings.TrimSpace(want) == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if t := strings.ToLower(strings.TrimSpace(f.Type)); t != "" && !strings.Contains(strings.ToLower(site.CampsiteType), t) {
		return false
	}
	return true
}

// CampgroundSource reads per-campsite availability for campgrounds. A campsite
// is an open slot (remaining 1) on dates whose status is "Available".
type CampgroundSource struct {
	client *Client
	filter CampsiteFilter
}

func NewCampgroundSource(client *Client, filter CampsiteFilter) *CampgroundSource {
	return &CampgroundSource{client: client, filter: filter}
}

func (s *CampgroundSource) Kind() availability.Kind {
	return availability.KindCampground
}

func (s *CampgroundSource) Open(ctx context.Context, id string) (*availability.Record, error) {
	path := "/api/camps/campgrounds/" + url.PathEscape(id)
	var raw campgroundRaw
	if err := s.client.get(ctx, path, nil, &raw); err != nil {
		return nil, fmt.Errorf("campground info: %w", err)
	}
	if raw.Campground == nil {
		return nil, &ParseError{Path: path, Field: "campground", Reason: "missing"}
	}
	name := strings.TrimSpace(raw.Campground.FacilityName)
	if name == "" {
		name = "Campground " + id
	}
	return availability.NewRecord(id, availability.KindCampground, name), nil
}

func (s *CampgroundSource) FetchMonth(ctx context.Context, rec *availability.Record, month civil.Date) error {
	path := "/api/camps/availability/campground/" + url.PathEscape(rec.ID) + "/month"

	var raw campgroundMonthRaw
	if err := s.client.get(ctx, path, monthQuery(month.In(time.UTC)), &raw); err != nil {
		return fmt.Errorf("campground availability: %w", err)
	}
	if raw.Campsites == nil {
		return &ParseError{Path: path, Field: "campsites", Reason: "missing"}
	}

	for _, key := range sortedKeys(raw.Campsites) {
		site := raw.Campsites[key]
		id := strings.TrimSpace(site.CampsiteID)
		if id == "" {
			id = key
		}
		if !s.filter.keep(id, site) {
			continue
		}
		unit := availability.SubUnit{ID: id, Name: campsiteLabel(site)}
		for _, dateKey := range sortedKeys(site.Availabilities) {
			date, err := parseAPIDate(path, "campsites."+key+".availabilities", dateKey)
			if err != nil {
				return err
			}
			slot := availability.Slot{Capacity: 1}
			if site.Availabilities[dateKey] == campsiteStatusAvailable {
				slot.Remaining = 1
			}
			rec.Set(date, unit, slot)
		}
	}
	return nil
}

func (s *CampgroundSource) Close() error {
	return s.client.Close()
}

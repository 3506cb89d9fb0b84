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

// PermitSource reads division availability for rafting permits.
type PermitSource struct {
	client *Client
}

func NewPermitSource(client *Client) *PermitSource {
	return &PermitSource{client: client}
}

func (s *PermitSource) Kind() availability.Kind {
	return availability.KindPermit
}

func (s *PermitSource) Open(ctx context.Context, id string) (*availability.Record, error) {
	path := "/api/permitcontent/" + url.PathEscape(id)
	var raw permitContentRaw
	if err := s.client.get(ctx, path, nil, &raw); err != nil {
		return nil, fmt.Errorf("permit info: %w", err)
	}
	if raw.Payload == nil {
		return nil, &ParseError{Path: path, Field: "payload", Reason: "missing"}
	}

	name := strings.TrimSpace(raw.Payload.Name)
	if name == "" {
		name = "Permit " + id
	}
	rec := availability.NewRecord(id, availability.KindPermit, name)
	for divisionID, division := range raw.Payload.Divisions {
		rec.HintName(divisionID, strings.TrimSpace(division.Name))
	}
	return rec, nil
}

func (s *PermitSource) FetchMonth(ctx context.Context, rec *availability.Record, month civil.Date) error {
	path := "/api/permits/" + url.PathEscape(rec.ID) + "/availability/month"
	query := monthQuery(month.In(time.UTC))
	query["commercial_acct"] = "false"

	var raw permitAvailabilityRaw
	if err := s.client.get(ctx, path, query, &raw); err != nil {
		return fmt.Errorf("permit availability: %w", err)
	}
	divisions, err := raw.divisionAvailability(path)
	if err != nil {
		return err
	}

	for _, divisionID := range sortedKeys(divisions) {
		dates := divisions[divisionID].DateAvailability
		unit := availability.SubUnit{ID: divisionID}
		for _, key := range sortedKeys(dates) {
			entry := dates[key]
			field := "availability." + divisionID + ".date_availability." + key
			if entry.Remaining == nil {
				return &ParseError{Path: path, Field: field + ".remaining", Reason: "missing"}
			}
			date, err := parseAPIDate(path, field, key)
			if err != nil {
				return err
			}
			slot := availability.Slot{Remaining: *entry.Remaining}
			if entry.Total != nil {
				slot.Capacity = *entry.Total
			}
			rec.Set(date, unit, slot)
		}
	}
	return nil
}

func (s *PermitSource) Close() error {
	return s.client.Close()
}

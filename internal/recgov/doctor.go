package recgov

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/olliecrow/rec_availability_monitor/internal/availability"
)

const (
	doctorPermitID     = "233393"
	doctorCampgroundID = "232447"
)

type DoctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Details string `json:"details"`
}

type DoctorReport struct {
	Checks []DoctorCheck `json:"checks"`
}

// RunDoctor probes both pipelines against well-known identifiers. Each check
// makes two requests and gets twice the per-request timeout.
func RunDoctor(ctx context.Context, client *Client, now time.Time, timeout time.Duration) DoctorReport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	month := civil.DateOf(now.UTC())
	month.Day = 1

	checkTimeout := 2 * timeout
	var checks []DoctorCheck
	checks = append(checks, checkSource(ctx, NewPermitSource(client), doctorPermitID, month, checkTimeout))
	checks = append(checks, checkSource(ctx, NewCampgroundSource(client, CampsiteFilter{}), doctorCampgroundID, month, checkTimeout))
	return DoctorReport{Checks: checks}
}

func (r DoctorReport) Healthy() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return len(r.Checks) > 0
}

func checkSource(parent context.Context, source availability.Source, id string, month civil.Date, timeout time.Duration) DoctorCheck {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	name := string(source.Kind()) + " fetch"
	rec, err := source.Open(ctx, id)
	if err != nil {
		return DoctorCheck{Name: name, OK: false, Details: err.Error()}
	}
	if err := source.FetchMonth(ctx, rec, month); err != nil {
		return DoctorCheck{Name: name, OK: false, Details: err.Error()}
	}
	return DoctorCheck{
		Name: name,
		OK:   true,
		Details: fmt.Sprintf(
			"%s (%s): %d sub-unit(s) listed for %04d-%02d",
			rec.Name, id, len(rec.SubUnits()), month.Year, int(month.Month),
		),
	}
}

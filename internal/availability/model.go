package availability

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Kind names which pipeline produced a record or summary.
type Kind string

const (
	KindPermit     Kind = "permit"
	KindCampground Kind = "campground"
)

var ErrInvalidWindow = errors.New("invalid date window")

// DateWindow is an inclusive calendar-date range.
type DateWindow struct {
	Start civil.Date `json:"start"`
	End   civil.Date `json:"end"`
}

func NewDateWindow(start, end civil.Date) (DateWindow, error) {
	if !start.IsValid() || !end.IsValid() {
		return DateWindow{}, fmt.Errorf("%w: dates must be valid calendar dates", ErrInvalidWindow)
	}
	if end.Before(start) {
		return DateWindow{}, fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidWindow, end, start)
	}
	return DateWindow{Start: start, End: end}, nil
}

// ParseDateWindow parses two YYYY-MM-DD strings into a window.
func ParseDateWindow(start, end string) (DateWindow, error) {
	s, err := civil.ParseDate(start)
	if err != nil {
		return DateWindow{}, fmt.Errorf("%w: not a valid date: %q", ErrInvalidWindow, start)
	}
	e, err := civil.ParseDate(end)
	if err != nil {
		return DateWindow{}, fmt.Errorf("%w: not a valid date: %q", ErrInvalidWindow, end)
	}
	return NewDateWindow(s, e)
}

func (w DateWindow) Contains(d civil.Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days is the number of calendar dates in the window.
func (w DateWindow) Days() int {
	return w.End.DaysSince(w.Start) + 1
}

// Months returns the first day of every calendar month overlapping the window.
func (w DateWindow) Months() []civil.Date {
	var out []civil.Date
	month := civil.Date{Year: w.Start.Year, Month: w.Start.Month, Day: 1}
	for !month.After(w.End) {
		out = append(out, month)
		next := month.In(time.UTC).AddDate(0, 1, 0)
		month = civil.DateOf(next)
	}
	return out
}

// IsWeekend reports whether d is a Friday or Saturday launch date.
func IsWeekend(d civil.Date) bool {
	switch d.In(time.UTC).Weekday() {
	case time.Friday, time.Saturday:
		return true
	default:
		return false
	}
}

// Constraints is the filter set applied by Aggregate.
type Constraints struct {
	MinRemaining int
	WeekendsOnly bool
	// Nights is the contiguous stay length; zero evaluates each date independently.
	Nights   int
	Detailed bool
}

func (c Constraints) normalized() Constraints {
	if c.MinRemaining < 1 {
		c.MinRemaining = 1
	}
	if c.Nights < 0 {
		c.Nights = 0
	}
	return c
}

type SubUnit struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Slot is one sub-unit's availability on one date. Capacity is display-only.
type Slot struct {
	Remaining int
	Capacity  int
}

// Record is one identifier's availability: date -> sub-unit ID -> slot.
type Record struct {
	ID   string
	Kind Kind
	Name string

	subUnits []SubUnit
	seen     map[string]int
	hints    map[string]string
	days     map[civil.Date]map[string]Slot
}

func NewRecord(id string, kind Kind, name string) *Record {
	return &Record{
		ID:    id,
		Kind:  kind,
		Name:  name,
		seen:  map[string]int{},
		hints: map[string]string{},
		days:  map[civil.Date]map[string]Slot{},
	}
}

// Set stores the slot for (date, unit). The first Set for a unit fixes its
// encounter order; later calls may fill in a missing name.
func (r *Record) Set(date civil.Date, unit SubUnit, slot Slot) {
	if slot.Remaining < 0 {
		slot.Remaining = 0
	}
	if unit.Name == "" {
		unit.Name = r.hints[unit.ID]
	}
	if idx, ok := r.seen[unit.ID]; ok {
		if r.subUnits[idx].Name == "" && unit.Name != "" {
			r.subUnits[idx].Name = unit.Name
		}
	} else {
		r.seen[unit.ID] = len(r.subUnits)
		r.subUnits = append(r.subUnits, unit)
	}
	byUnit, ok := r.days[date]
	if !ok {
		byUnit = map[string]Slot{}
		r.days[date] = byUnit
	}
	byUnit[unit.ID] = slot
}

// HintName records a display name for a sub-unit that may appear later.
// It does not make the sub-unit part of the record.
func (r *Record) HintName(unitID, name string) {
	if name == "" {
		return
	}
	r.hints[unitID] = name
}

func (r *Record) Slot(date civil.Date, unitID string) (Slot, bool) {
	byUnit, ok := r.days[date]
	if !ok {
		return Slot{}, false
	}
	slot, ok := byUnit[unitID]
	return slot, ok
}

// SubUnits returns the sub-units in encounter order.
func (r *Record) SubUnits() []SubUnit {
	out := make([]SubUnit, len(r.subUnits))
	copy(out, r.subUnits)
	return out
}

// Match is one qualifying (date, sub-unit) pair.
type Match struct {
	Date        civil.Date `json:"date"`
	SubUnit     string     `json:"sub_unit"`
	SubUnitName string     `json:"sub_unit_name,omitempty"`
	Remaining   int        `json:"remaining"`
	Capacity    int        `json:"capacity,omitempty"`
	Nights      int        `json:"nights,omitempty"`
}

// Checkout is the first date after the stay that starts at m.Date.
func (m Match) Checkout() civil.Date {
	nights := m.Nights
	if nights < 1 {
		nights = 1
	}
	return m.Date.AddDays(nights)
}

// Summary is the per-identifier aggregation result.
type Summary struct {
	ID                string  `json:"id"`
	Kind              Kind    `json:"kind"`
	Name              string  `json:"name,omitempty"`
	TotalSubUnits     int     `json:"total_sub_units"`
	AvailableSubUnits int     `json:"available_sub_units"`
	Matches           []Match `json:"matches,omitempty"`
	Error             string  `json:"error,omitempty"`
}

func (s Summary) HasAvailability() bool {
	return s.Error == "" && s.AvailableSubUnits > 0
}

// Report is one run's set of summaries, in input order.
type Report struct {
	Kind      Kind       `json:"kind"`
	Window    DateWindow `json:"window"`
	Summaries []Summary  `json:"summaries"`
	FetchedAt time.Time  `json:"fetched_at"`
}

func (r Report) HasAvailability() bool {
	for _, s := range r.Summaries {
		if s.HasAvailability() {
			return true
		}
	}
	return false
}

// Failed reports whether every identifier failed to fetch.
func (r Report) Failed() bool {
	if len(r.Summaries) == 0 {
		return false
	}
	for _, s := range r.Summaries {
		if s.Error == "" {
			return false
		}
	}
	return true
}

package availability

import "cloud.google.com/go/civil"

// Aggregate evaluates one record against a window and constraints.
//
// Sub-units count toward the total when they have at least one slot inside
// the window. With c.Nights > 0 a launch date qualifies only when every night
// of the stay falls inside the window and meets c.MinRemaining on the same
// sub-unit; the match then reports the smallest remaining count of the stay.
func Aggregate(rec *Record, window DateWindow, c Constraints) Summary {
	c = c.normalized()
	out := Summary{
		ID:   rec.ID,
		Kind: rec.Kind,
		Name: rec.Name,
	}

	units := rec.SubUnits()
	present := make([]bool, len(units))
	qualified := make([]bool, len(units))

	for d := window.Start; !d.After(window.End); d = d.AddDays(1) {
		for i, unit := range units {
			slot, ok := rec.Slot(d, unit.ID)
			if !ok {
				continue
			}
			present[i] = true
			if c.WeekendsOnly && !IsWeekend(d) {
				continue
			}
			remaining, ok := qualifies(rec, window, c, d, unit.ID)
			if !ok {
				continue
			}
			qualified[i] = true
			if c.Detailed {
				out.Matches = append(out.Matches, Match{
					Date:        d,
					SubUnit:     unit.ID,
					SubUnitName: unit.Name,
					Remaining:   remaining,
					Capacity:    slot.Capacity,
					Nights:      c.Nights,
				})
			}
		}
	}

	for i := range units {
		if present[i] {
			out.TotalSubUnits++
		}
		if qualified[i] {
			out.AvailableSubUnits++
		}
	}
	return out
}

func qualifies(rec *Record, window DateWindow, c Constraints, launch civil.Date, unitID string) (int, bool) {
	nights := c.Nights
	if nights < 1 {
		nights = 1
	}
	lowest := -1
	for i := 0; i < nights; i++ {
		d := launch.AddDays(i)
		if !window.Contains(d) {
			return 0, false
		}
		slot, ok := rec.Slot(d, unitID)
		if !ok || slot.Remaining < c.MinRemaining {
			return 0, false
		}
		if lowest < 0 || slot.Remaining < lowest {
			lowest = slot.Remaining
		}
	}
	return lowest, true
}

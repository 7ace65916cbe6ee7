// Package availability projects, for a partial DutySchedule, the per-day
// per-position set of doctors who may legally fill each slot (spec.md
// §4.3). It is purely derived state: rebuilt whenever the partial
// schedule changes, never mutated in place.
package availability

import (
	"github.com/covermd/dutyplanner/pkg/calendar"
	"github.com/covermd/dutyplanner/pkg/doctor"
	"github.com/covermd/dutyplanner/pkg/duty"
)

// Row holds, per position, the ordered list of candidate doctors plus an
// is-set bit meaning "this slot is already committed".
type Row struct {
	Day        calendar.Day
	Candidates [][]*doctor.Doctor // indexed by position-1
	IsSetAt    []bool             // indexed by position-1
}

// DoctorsForPositions returns the union of candidates across the given
// positions (1-indexed), preserving first-seen order.
func (r *Row) DoctorsForPositions(positions ...int) []*doctor.Doctor {
	seen := map[*doctor.Doctor]bool{}
	out := []*doctor.Doctor{}
	for _, p := range positions {
		if p < 1 || p > len(r.Candidates) {
			continue
		}
		for _, d := range r.Candidates[p-1] {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out
}

// AverageDoctorsPerFreePosition is the mean candidate-list length across
// unset positions, 0 if every position is already set.
func (r *Row) AverageDoctorsPerFreePosition() float64 {
	total := 0
	count := 0
	for p, isSet := range r.IsSetAt {
		if isSet {
			continue
		}
		total += len(r.Candidates[p])
		count++
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

// IsSet reports whether every position in the row is already committed.
func (r *Row) IsSet() bool {
	for _, isSet := range r.IsSetAt {
		if !isSet {
			return false
		}
	}
	return true
}

// Schedule is the Day x Position grid of candidate lists.
type Schedule struct {
	Positions int
	Rows      []*Row // 0-indexed by day-1
}

// Row returns the availability row for day (1-indexed).
func (s *Schedule) Row(day int) *Row {
	return s.Rows[day-1]
}

// Project builds an AvailabilitySchedule from the surviving doctor pool
// and a partial DutySchedule, per spec.md §4.3.
func Project(doctors []*doctor.Doctor, schedule *duty.DutySchedule) *Schedule {
	eligible := filterBelowMaximum(doctors, schedule)

	n := schedule.NumDays()
	rows := make([]*Row, n)
	for day := 1; day <= n; day++ {
		rows[day-1] = projectDay(eligible, schedule, day)
	}
	return &Schedule{Positions: schedule.Positions, Rows: rows}
}

// filterBelowMaximum drops doctors whose already-held duty count has
// reached their cap.
func filterBelowMaximum(doctors []*doctor.Doctor, schedule *duty.DutySchedule) []*doctor.Doctor {
	out := make([]*doctor.Doctor, 0, len(doctors))
	for _, d := range doctors {
		if len(schedule.DutiesForDoctor(d)) < d.Preferences.MaximumAcceptedDuties {
			out = append(out, d)
		}
	}
	return out
}

func projectDay(doctors []*doctor.Doctor, schedule *duty.DutySchedule, day int) *Row {
	row, _ := schedule.Row(day)
	p := schedule.Positions

	candidates := make([][]*doctor.Doctor, p)
	isSetAt := make([]bool, p)
	for i := range candidates {
		candidates[i] = []*doctor.Doctor{}
	}

	pool := map[*doctor.Doctor]bool{}
	for _, d := range doctors {
		pool[d] = true
	}

	for position := 1; position <= p; position++ {
		cell := row.Cell(position)
		if cell.Doctor != nil {
			candidates[position-1] = append(candidates[position-1], cell.Doctor)
			isSetAt[position-1] = true
			delete(pool, cell.Doctor)
		}
	}

	free := row.FreePositions()
	n := schedule.NumDays()

	for _, d := range doctors {
		if !pool[d] {
			continue
		}
		if !eligibleOnDay(d, schedule, row.Day, day, n) {
			continue
		}
		for position := 1; position <= p; position++ {
			if !free[position] {
				continue
			}
			if d.AcceptsPosition(position) {
				candidates[position-1] = append(candidates[position-1], d)
			}
		}
	}

	return &Row{Day: row.Day, Candidates: candidates, IsSetAt: isSetAt}
}

func eligibleOnDay(d *doctor.Doctor, schedule *duty.DutySchedule, day calendar.Day, dayNumber, n int) bool {
	if adjacentDayRow, err := schedule.Row(dayNumber - 1); err == nil && adjacentDayRow.HasDuty(d) {
		return false
	}
	if adjacentDayRow, err := schedule.Row(dayNumber + 1); err == nil && adjacentDayRow.HasDuty(d) {
		return false
	}

	if d.Preferences.RequestedDays[dayNumber+1] || d.Preferences.RequestedDays[dayNumber-1] {
		return false
	}
	weekdayOK := d.AcceptsWeekday(day.Weekday) || d.RequestsDay(dayNumber)
	if !weekdayOK {
		return false
	}
	if d.HasException(dayNumber) {
		return false
	}

	if dayNumber == 1 {
		lastDayOfPrevMonth := calendar.PreviousMonthLength(day.Year, day.Month)
		if d.LastMonthDuties[lastDayOfPrevMonth] {
			return false
		}
	}
	if dayNumber == n {
		if d.NextMonthDuties[1] {
			return false
		}
	}

	return true
}

// Package duty implements the day x position grid of duty cells
// (spec.md §3, §4.2): DutySchedule owns cell state; AvailabilityProjector
// and StrainEvaluator read it but never mutate it directly.
package duty

import (
	"fmt"

	"github.com/covermd/dutyplanner/pkg/calendar"
	"github.com/covermd/dutyplanner/pkg/doctor"
)

// OutOfRangeError is a programmer error: an out-of-bounds (day, position)
// access. Per spec.md §7 it fails fast rather than being recovered from.
type OutOfRangeError struct {
	Day, Position int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("duty: (day=%d, position=%d) out of range", e.Day, e.Position)
}

// Cell is one (day, position) slot, optionally bound to a doctor.
type Cell struct {
	Day          calendar.Day
	Position     int
	Doctor       *doctor.Doctor
	SetByUser    bool
	StrainPoints int
	PK           *int
}

// Update mutates only the fields that are supplied (per spec.md §4.2: "the
// only write path is cell.update(...), which only overwrites the provided
// fields"). pk and strainPoints are pointers so "not provided" is
// distinguishable from "set to zero".
func (c *Cell) Update(d *doctor.Doctor, pk *int, strainPoints *int, setByUser *bool) {
	c.Doctor = d
	if setByUser != nil {
		c.SetByUser = *setByUser
	}
	if strainPoints != nil {
		c.StrainPoints = *strainPoints
	}
	if pk != nil {
		c.PK = pk
	}
}

// clone returns a detached copy of the cell, used by Copy.
func (c *Cell) clone() *Cell {
	clone := *c
	return &clone
}

// DutyRow is one day's worth of cells.
type DutyRow struct {
	Day   calendar.Day
	cells []*Cell // 0-indexed by position-1
}

// FreePositions returns the set of positions with no committed doctor.
func (r *DutyRow) FreePositions() map[int]bool {
	free := map[int]bool{}
	for _, c := range r.cells {
		if c.Doctor == nil {
			free[c.Position] = true
		}
	}
	return free
}

// HasDuty reports whether d holds any duty on this row's day.
func (r *DutyRow) HasDuty(d *doctor.Doctor) bool {
	if d == nil {
		return false
	}
	for _, c := range r.cells {
		if c.Doctor == d {
			return true
		}
	}
	return false
}

// SetDuties returns the committed cells on this row, in position order.
func (r *DutyRow) SetDuties() []*Cell {
	out := make([]*Cell, 0, len(r.cells))
	for _, c := range r.cells {
		if c.Doctor != nil {
			out = append(out, c)
		}
	}
	return out
}

// Cell returns the cell at the given position (1-indexed). Panics-free: it
// returns nil if out of range; callers that need OutOfRangeError should go
// through DutySchedule.Get.
func (r *DutyRow) Cell(position int) *Cell {
	if position < 1 || position > len(r.cells) {
		return nil
	}
	return r.cells[position-1]
}

// DutySchedule is the day x position grid of duty cells for one month.
type DutySchedule struct {
	Year      int
	Month     int
	Positions int
	Days      []calendar.Day // 0-indexed by day-1
	rows      []*DutyRow     // 0-indexed by day-1
}

// New builds an empty DutySchedule for (year, month, positions) — the
// order is fixed per spec.md §9's resolved Open Question: callers always
// pass (year, month, positions), never (month, year, positions).
func New(year, month, positions int, holidays calendar.HolidaySource) *DutySchedule {
	days := calendar.BuildMonth(year, month, holidays)
	rows := make([]*DutyRow, len(days))
	for i, day := range days {
		cells := make([]*Cell, positions)
		for p := 0; p < positions; p++ {
			cells[p] = &Cell{Day: day, Position: p + 1, StrainPoints: day.StrainPoints}
		}
		rows[i] = &DutyRow{Day: day, cells: cells}
	}
	return &DutySchedule{Year: year, Month: month, Positions: positions, Days: days, rows: rows}
}

// NumDays returns the number of days in the schedule.
func (s *DutySchedule) NumDays() int {
	return len(s.rows)
}

// Get returns the cell at (day, position), both 1-indexed.
func (s *DutySchedule) Get(day, position int) (*Cell, error) {
	if day < 1 || day > len(s.rows) || position < 1 || position > s.Positions {
		return nil, &OutOfRangeError{Day: day, Position: position}
	}
	return s.rows[day-1].cells[position-1], nil
}

// Row returns the DutyRow for day (1-indexed).
func (s *DutySchedule) Row(day int) (*DutyRow, error) {
	if day < 1 || day > len(s.rows) {
		return nil, &OutOfRangeError{Day: day}
	}
	return s.rows[day-1], nil
}

// MustRow is the unchecked alternative to Row, for callers where day is
// already known to be in range (e.g. iterating s.Days). It panics if day
// is out of range.
func (s *DutySchedule) MustRow(day int) *DutyRow {
	return s.rows[day-1]
}

// Cells returns every cell in the schedule, day-major then position-minor.
func (s *DutySchedule) Cells() []*Cell {
	out := make([]*Cell, 0, len(s.rows)*s.Positions)
	for _, row := range s.rows {
		out = append(out, row.cells...)
	}
	return out
}

// DutiesForDoctor returns every committed cell bound to d, in day order.
func (s *DutySchedule) DutiesForDoctor(d *doctor.Doctor) []*Cell {
	out := []*Cell{}
	for _, row := range s.rows {
		for _, c := range row.cells {
			if c.Doctor == d {
				out = append(out, c)
			}
		}
	}
	return out
}

// Copy returns a deep copy of cell state (doctor bindings, strain points,
// set-by-user flags, pks) over the same calendar shape.
func (s *DutySchedule) Copy() *DutySchedule {
	clone := &DutySchedule{
		Year:      s.Year,
		Month:     s.Month,
		Positions: s.Positions,
		Days:      s.Days,
		rows:      make([]*DutyRow, len(s.rows)),
	}
	for i, row := range s.rows {
		cells := make([]*Cell, len(row.cells))
		for j, c := range row.cells {
			cells[j] = c.clone()
		}
		clone.rows[i] = &DutyRow{Day: row.Day, cells: cells}
	}
	return clone
}

// Merge copies every set cell from other into s, overwriting only cells
// that are currently empty in s. Cells with SetByUser=true in s are never
// touched, per spec.md §4.2.
func (s *DutySchedule) Merge(other *DutySchedule) error {
	if other.NumDays() != s.NumDays() || other.Positions != s.Positions {
		return fmt.Errorf("duty: cannot merge schedules of different shape")
	}
	for i, row := range s.rows {
		otherRow := other.rows[i]
		for j, c := range row.cells {
			if c.SetByUser {
				continue
			}
			oc := otherRow.cells[j]
			if oc.Doctor == nil {
				continue
			}
			if c.Doctor == nil {
				*c = *oc
			}
		}
	}
	return nil
}

// IsFilled reports whether every cell is bound to a doctor.
func (s *DutySchedule) IsFilled() bool {
	for _, row := range s.rows {
		for _, c := range row.cells {
			if c.Doctor == nil {
				return false
			}
		}
	}
	return true
}

// NotFilledRowsCount returns the number of day-rows with at least one
// unset cell.
func (s *DutySchedule) NotFilledRowsCount() int {
	count := 0
	for _, row := range s.rows {
		for _, c := range row.cells {
			if c.Doctor == nil {
				count++
				break
			}
		}
	}
	return count
}
